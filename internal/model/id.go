package model

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

type IDType string

const (
	IDTypeSuggestion IDType = "sug"
	IDTypeConflict   IDType = "cfl"
	IDTypeCorrection IDType = "cor"
)

var validIDTypes = map[IDType]bool{
	IDTypeSuggestion: true,
	IDTypeConflict:   true,
	IDTypeCorrection: true,
}

var idRegex = regexp.MustCompile(`^(sug|cfl|cor)_[0-9a-f]{32}$`)

// idNamespace is the fixed UUID namespace for all Prism ids. Changing it
// would invalidate every id-based dedup check against stored suggestions.
var idNamespace = uuid.MustParse("7b1f7a3e-5d2c-4f8a-9c6e-2d4b8a1e3f50")

// keySep separates key parts so that ("ab","c") and ("a","bc") hash
// differently.
const keySep = "\x1f"

// DeterministicID derives a stable id from the given content parts.
// Identical inputs always produce identical ids; this is what makes the
// id-equality dedup in the engine idempotent across re-runs over an
// unchanged snapshot.
func DeterministicID(idType IDType, parts ...string) (string, error) {
	if !validIDTypes[idType] {
		return "", fmt.Errorf("invalid ID type: %s", idType)
	}
	key := string(idType) + keySep + strings.Join(parts, keySep)
	u := uuid.NewSHA1(idNamespace, []byte(key))
	return fmt.Sprintf("%s_%s", idType, hex.EncodeToString(u[:])), nil
}

// MustID is DeterministicID for call sites with a compile-time-constant
// id type; it panics only on an invalid type.
func MustID(idType IDType, parts ...string) string {
	id, err := DeterministicID(idType, parts...)
	if err != nil {
		panic(err)
	}
	return id
}

func ValidateID(id string) bool {
	return idRegex.MatchString(id)
}

func ParseIDType(id string) (IDType, error) {
	if !ValidateID(id) {
		return "", fmt.Errorf("invalid ID format: %s", id)
	}
	match := idRegex.FindStringSubmatch(id)
	return IDType(match[1]), nil
}

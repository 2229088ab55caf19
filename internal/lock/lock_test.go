package lock

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexRelock(t *testing.T) {
	k := NewKeyedMutex()
	k.Lock("workspace.yaml")
	k.Unlock("workspace.yaml")
	k.Lock("workspace.yaml")
	k.Unlock("workspace.yaml")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	done := make(chan struct{})

	k.Lock("a.yaml")
	go func() {
		k.Lock("b.yaml")
		k.Unlock("b.yaml")
		close(done)
	}()
	<-done
	k.Unlock("a.yaml")
}

func TestKeyedMutexWithSerializes(t *testing.T) {
	k := NewKeyedMutex()
	var counter int64

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := k.With("shared", func() error {
				atomic.AddInt64(&counter, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), counter)
}

func TestPIDLockAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.lock")
	l := NewPIDLock(path)
	require.NoError(t, l.Acquire())
	defer l.Release()
}

func TestPIDLockSecondHolderRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.lock")

	first := NewPIDLock(path)
	require.NoError(t, first.Acquire())
	defer first.Release()

	second := NewPIDLock(path)
	err := second.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another daemon")
}

func TestPIDLockReleaseAllowsRelock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.lock")

	first := NewPIDLock(path)
	require.NoError(t, first.Acquire())
	require.NoError(t, first.Release())

	second := NewPIDLock(path)
	require.NoError(t, second.Acquire())
	second.Release()
}

func TestPIDLockDoubleReleaseSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prism.lock")
	l := NewPIDLock(path)
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
}

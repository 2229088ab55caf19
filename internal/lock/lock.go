// Package lock provides the two kinds of mutual exclusion prism needs: a
// process-wide PID lock so only one daemon serves a workspace, and a keyed
// mutex serializing writes per workspace file.
package lock

import (
	"fmt"
	"os"
	"sync"
	"syscall"
)

// KeyedMutex hands out one mutex per key, created on first use. Keys are
// workspace file paths; locking one workspace never blocks another.
type KeyedMutex struct {
	mu      sync.Mutex
	mutexes map[string]*sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{mutexes: make(map[string]*sync.Mutex)}
}

func (k *KeyedMutex) Lock(key string) {
	k.mutexFor(key).Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.mutexFor(key).Unlock()
}

// With runs fn while holding the key's mutex.
func (k *KeyedMutex) With(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

func (k *KeyedMutex) mutexFor(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if mu, ok := k.mutexes[key]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	k.mutexes[key] = mu
	return mu
}

// PIDLock is an advisory flock on a well-known path. The holder's PID is
// written into the file for diagnostics; the flock, not the PID, is what
// enforces exclusion.
type PIDLock struct {
	path string
	file *os.File
}

func NewPIDLock(path string) *PIDLock {
	return &PIDLock{path: path}
}

// Acquire takes the lock without blocking. It fails when another process
// holds it, which usually means a daemon is already running.
func (p *PIDLock) Acquire() error {
	f, err := os.OpenFile(p.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("acquire lock (another daemon may be running): %w", err)
	}
	if err := writePID(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return err
	}
	p.file = f
	return nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// Release drops the lock and removes the file. Safe to call twice.
func (p *PIDLock) Release() error {
	if p.file == nil {
		return nil
	}
	if err := syscall.Flock(int(p.file.Fd()), syscall.LOCK_UN); err != nil {
		p.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	os.Remove(p.path)
	p.file = nil
	return nil
}

package storage

import "sync"

// KeyedMutex serializes conflicting writes to the same user. Entries are
// reference counted: the map slot is removed exactly when the last holder
// unlocks, so the map never grows beyond the set of users with writes in
// flight.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[int64]*lockEntry)}
}

// Lock acquires the mutex for key, materializing it on first use. Map access
// itself never blocks behind another key's critical section.
func (k *KeyedMutex) Lock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &lockEntry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key and drops the map slot once no other
// goroutine holds or waits on it.
func (k *KeyedMutex) Unlock(key int64) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		k.mu.Unlock()
		panic("storage: unlock of unheld keyed mutex")
	}
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// Len reports the number of live entries.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

// Guard bundles the data-level locks: per-user mutual exclusion for
// conflicting word writes and a single mutex that keeps aggregate statistics
// scans from overlapping each other.
type Guard struct {
	Users *KeyedMutex
	Stats sync.Mutex
}

func NewGuard() *Guard {
	return &Guard{Users: NewKeyedMutex()}
}

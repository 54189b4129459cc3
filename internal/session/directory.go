package session

import (
	"sync"
)

// Directory is the process-wide registry of live sessions, keyed by join
// code. It is an explicit store passed to every handler; there is no hidden
// package-level singleton. Deletion is the only way a code becomes reusable.
type Directory struct {
	mu       sync.RWMutex
	sessions map[string]*Engine
	alloc    *Allocator
}

// NewDirectory creates an empty registry backed by the given code allocator.
func NewDirectory(alloc *Allocator) *Directory {
	return &Directory{
		sessions: make(map[string]*Engine),
		alloc:    alloc,
	}
}

// Create allocates a code unique among registered sessions, constructs the
// session engine and registers it.
func (d *Directory) Create(name, presenterIdentity string) *Engine {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing := make(map[string]struct{}, len(d.sessions))
	for code := range d.sessions {
		existing[code] = struct{}{}
	}
	code := d.alloc.Allocate(existing)
	e := NewEngine(code, name, presenterIdentity)
	d.sessions[code] = e
	return e
}

// LookupByCode returns the session registered under code.
func (d *Directory) LookupByCode(code string) (*Engine, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.sessions[code]
	return e, ok
}

// LookupByIdentity scans all sessions for one owned or joined by identity.
// Within each session the presenter match is checked before membership.
func (d *Directory) LookupByIdentity(identity string) (*Engine, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, e := range d.sessions {
		if e.IsPresenter(identity) {
			return e, true
		}
		if e.HasParticipant(identity) {
			return e, true
		}
	}
	return nil, false
}

// Remove unregisters the session under code, freeing the code for reuse.
func (d *Directory) Remove(code string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.sessions[code]; !ok {
		return false
	}
	delete(d.sessions, code)
	return true
}

// Len returns the number of registered sessions.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.sessions)
}

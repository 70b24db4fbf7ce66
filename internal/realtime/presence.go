package realtime

import "sync"

// Presence maps a user id to its single live connection. Process-local; a
// multi-process deployment needs an external presence directory instead.
type Presence struct {
	mu    sync.RWMutex
	conns map[uint64]Conn
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[uint64]Conn)}
}

// Set registers the connection for the user, overwriting any prior entry
// (last-connected-wins). The superseded handle is not closed here; it decays
// when its own read loop ends.
func (p *Presence) Set(userID uint64, c Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[userID] = c
}

func (p *Presence) Get(userID uint64) (Conn, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[userID]
	return c, ok
}

// Remove deletes the entry only if it still maps to exactly this connection.
// A disconnect of a superseded handle must not evict a newer reconnection.
func (p *Presence) Remove(userID uint64, c Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.conns[userID]
	if !ok || cur.ID() != c.ID() {
		return false
	}
	delete(p.conns, userID)
	return true
}

func (p *Presence) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}

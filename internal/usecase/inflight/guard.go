// Package inflight cancels a superseded operation when a newer one of the same kind starts.
package inflight

import (
	"context"
	"sync"
)

// Guard tracks the latest operation of one kind. The zero value is ready to use.
type Guard struct {
	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// Ticket identifies one started operation.
type Ticket struct {
	guard  *Guard
	seq    uint64
	ctx    context.Context
	cancel context.CancelFunc
}

// Begin starts a new operation derived from parent and cancels the previous one.
func (g *Guard) Begin(parent context.Context) *Ticket {
	ctx, cancel := context.WithCancel(parent)

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	g.seq++
	g.cancel = cancel
	seq := g.seq
	g.mu.Unlock()

	return &Ticket{guard: g, seq: seq, ctx: ctx, cancel: cancel}
}

// Context returns the operation context. It is cancelled when a newer operation begins.
func (t *Ticket) Context() context.Context { return t.ctx }

// Current reports whether no newer operation has begun.
func (t *Ticket) Current() bool {
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	return t.guard.seq == t.seq
}

// Commit runs apply only if the ticket is still current. No Begin can interleave with apply.
func (t *Ticket) Commit(apply func()) bool {
	t.guard.mu.Lock()
	defer t.guard.mu.Unlock()
	if t.guard.seq != t.seq {
		return false
	}
	apply()
	return true
}

// Done releases the operation context.
func (t *Ticket) Done() {
	t.cancel()

	t.guard.mu.Lock()
	if t.guard.seq == t.seq {
		t.guard.cancel = nil
	}
	t.guard.mu.Unlock()
}

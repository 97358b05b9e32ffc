package services

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// loopGuard ensures at most one dispatch loop per campaign within this
// process. The status guard in the repository covers the cross-process case.
type loopGuard struct {
	mu     sync.Mutex
	active map[primitive.ObjectID]bool
}

func newLoopGuard() *loopGuard {
	return &loopGuard{active: make(map[primitive.ObjectID]bool)}
}

func (g *loopGuard) acquire(id primitive.ObjectID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active[id] {
		return false
	}
	g.active[id] = true
	return true
}

func (g *loopGuard) release(id primitive.ObjectID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, id)
}

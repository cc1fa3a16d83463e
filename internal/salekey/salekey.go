package salekey

import (
	"sync"
	"time"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
)

// Generator produces sale timestamp keys in the tracker's wire format
// (microsecond precision, lexically sortable). Two keys requested within the
// same microsecond in one process are bumped forward so they never collide
// locally; collisions across processes still surface from the store as a
// duplicate-key error.
type Generator struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorWithClock is for tests that need a deterministic clock.
func NewGeneratorWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.now().Truncate(time.Microsecond)
	if !t.After(g.last) {
		t = g.last.Add(time.Microsecond)
	}
	g.last = t
	return t.Format(domain.TimestampLayout)
}

// Today returns the current calendar date in the ledger's date format.
func (g *Generator) Today() string {
	return g.now().Format(domain.DateLayout)
}

package order

import (
	"errors"
	"sort"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
)

var (
	ErrItemNotOnMenu = errors.New("item not on the channel menu")
	ErrEmptyOrder    = errors.New("order has no lines")
)

// Builder accumulates an in-progress multi-line sale for one channel during
// one editing session. Nothing here touches the store: the service looks up
// prices and persists lines when the order is committed.
type Builder struct {
	channel string
	pending map[string]int
}

func NewBuilder(channel string) *Builder {
	return &Builder{
		channel: channel,
		pending: make(map[string]int),
	}
}

func (b *Builder) Channel() string {
	return b.channel
}

// Add increments the item's pending quantity by one. The menu snapshot is the
// channel's catalog at edit time; price is deliberately not captured here.
func (b *Builder) Add(itemName string, menu map[string]float64) error {
	if _, ok := menu[itemName]; !ok {
		return ErrItemNotOnMenu
	}
	b.pending[itemName]++
	return nil
}

// Remove drops the item's line entirely rather than decrementing, so an
// accidental add is undone in one step. Removing an absent item is a no-op.
func (b *Builder) Remove(itemName string) {
	delete(b.pending, itemName)
}

func (b *Builder) Clear() {
	b.pending = make(map[string]int)
}

func (b *Builder) Empty() bool {
	return len(b.pending) == 0
}

// Lines snapshots the pending set in stable item order.
func (b *Builder) Lines() []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(b.pending))
	for itemName, quantity := range b.pending {
		lines = append(lines, domain.OrderLine{ItemName: itemName, Quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ItemName < lines[j].ItemName })
	return lines
}

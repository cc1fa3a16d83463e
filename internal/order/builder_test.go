package order

import (
	"errors"
	"testing"

	"github.com/Chiwu19/Yumm-Yard-Tracker/internal/domain"
)

var testMenu = map[string]float64{
	"Tea":    20,
	"Coffee": 35,
}

func TestAddIncrementsByOne(t *testing.T) {
	b := NewBuilder(domain.ChannelOffline)

	if err := b.Add("Tea", testMenu); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := b.Add("Tea", testMenu); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := b.Add("Coffee", testMenu); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	lines := b.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].ItemName != "Coffee" || lines[0].Quantity != 1 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
	if lines[1].ItemName != "Tea" || lines[1].Quantity != 2 {
		t.Fatalf("unexpected second line: %+v", lines[1])
	}
}

func TestAddRejectsItemNotOnMenu(t *testing.T) {
	b := NewBuilder(domain.ChannelOffline)

	if err := b.Add("Biryani", testMenu); !errors.Is(err, ErrItemNotOnMenu) {
		t.Fatalf("expected ErrItemNotOnMenu, got %v", err)
	}
	if !b.Empty() {
		t.Fatalf("rejected add must not change the pending set")
	}
}

func TestRemoveDropsLineEntirely(t *testing.T) {
	b := NewBuilder(domain.ChannelOffline)

	for i := 0; i < 3; i++ {
		if err := b.Add("Tea", testMenu); err != nil {
			t.Fatalf("add failed: %v", err)
		}
	}

	// Remove zeroes the line rather than decrementing, and removing twice
	// is the same as removing once.
	b.Remove("Tea")
	if !b.Empty() {
		t.Fatalf("expected empty builder after remove, got %+v", b.Lines())
	}
	b.Remove("Tea")
	if !b.Empty() {
		t.Fatalf("expected remove to stay a no-op, got %+v", b.Lines())
	}
}

func TestClearEmptiesPendingSet(t *testing.T) {
	b := NewBuilder(domain.ChannelOffline)

	if err := b.Add("Tea", testMenu); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := b.Add("Coffee", testMenu); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	b.Clear()
	if !b.Empty() {
		t.Fatalf("expected empty builder after clear")
	}
	if len(b.Lines()) != 0 {
		t.Fatalf("expected no lines after clear")
	}
}

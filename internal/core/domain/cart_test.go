package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func product(id string) Product {
	return Product{
		ID:       id,
		Title:    "title-" + id,
		ImageURL: "https://img/" + id,
		Price:    decimal.RequireFromString("1.5"),
	}
}

func TestWithAdded_AppendsInOrder(t *testing.T) {
	var c Cart
	c = c.WithAdded(product("p1"))
	c = c.WithAdded(product("p2"))
	c = c.WithAdded(product("p3"))

	if len(c) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(c))
	}
	for i, id := range []string{"p1", "p2", "p3"} {
		if c[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, c[i].ID)
		}
		if c[i].Quantity != 1 {
			t.Errorf("%s: expected quantity 1, got %d", id, c[i].Quantity)
		}
	}
}

func TestWithAdded_DoesNotModifyReceiver(t *testing.T) {
	base := Cart{}.WithAdded(product("p1"))
	_ = base.WithAdded(product("p2"))

	if len(base) != 1 {
		t.Errorf("expected receiver to keep 1 entry, got %d", len(base))
	}
}

func TestWithIncremented(t *testing.T) {
	c := Cart{}.WithAdded(product("p1")).WithAdded(product("p2"))

	next := c.WithIncremented("p2")
	if next[1].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", next[1].Quantity)
	}
	if next[0].Quantity != 1 {
		t.Errorf("expected untouched entry to stay at 1, got %d", next[0].Quantity)
	}
	if c[1].Quantity != 1 {
		t.Error("receiver was modified")
	}
}

func TestWithIncremented_UnknownIDIsNoop(t *testing.T) {
	c := Cart{}.WithAdded(product("p1"))

	next := c.WithIncremented("missing")
	if len(next) != 1 || next[0].Quantity != 1 {
		t.Errorf("expected unchanged cart, got %+v", next)
	}
}

func TestWithDecremented_RemovesAtZero(t *testing.T) {
	c := Cart{}.WithAdded(product("p1")).WithAdded(product("p2"))

	next := c.WithDecremented("p1")
	if len(next) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(next))
	}
	if next[0].ID != "p2" {
		t.Errorf("expected p2 to remain, got %s", next[0].ID)
	}

	again := next.WithDecremented("p1")
	if len(again) != 1 {
		t.Errorf("expected decrement of missing id to be a no-op, got %+v", again)
	}
}

func TestIncrementThenDecrement_RoundTrip(t *testing.T) {
	c := Cart{}.WithAdded(product("p1")).WithIncremented("p1").WithIncremented("p1")

	next := c.WithIncremented("p1").WithDecremented("p1")
	if len(next) != 1 || next[0].Quantity != 3 {
		t.Errorf("expected p1 at quantity 3, got %+v", next)
	}
}

func TestUnits(t *testing.T) {
	c := Cart{}.WithAdded(product("p1")).WithAdded(product("p2")).WithIncremented("p2")

	if c.Units() != 3 {
		t.Errorf("expected 3 units, got %d", c.Units())
	}
}

func TestNormalize(t *testing.T) {
	items := []CartItem{
		{Product: product("p1"), Quantity: 2},
		{Product: product(""), Quantity: 1},
		{Product: product("p2"), Quantity: 0},
		{Product: product("p1"), Quantity: 5},
		{Product: product("p3"), Quantity: 1},
		{Product: Product{ID: "p4", Price: decimal.NewFromInt(-1)}, Quantity: 2},
	}

	c, dropped := Normalize(items)
	if dropped != 4 {
		t.Errorf("expected 4 dropped entries, got %d", dropped)
	}
	if len(c) != 2 || c[0].ID != "p1" || c[1].ID != "p3" {
		t.Fatalf("unexpected cart: %+v", c)
	}
	if c[0].Quantity != 2 {
		t.Errorf("expected first p1 entry to win, got quantity %d", c[0].Quantity)
	}
}

func TestClone_NilIsEmpty(t *testing.T) {
	var c Cart
	cloned := c.Clone()
	if cloned == nil {
		t.Error("expected non-nil clone")
	}
}

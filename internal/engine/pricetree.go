package engine

import "github.com/tidwall/btree"

// PriceTree is an ordered container of *PriceLevel keyed by price,
// satisfying spec §4.1's contract table: O(log n) insert/remove/get and
// in-order neighbour/extremum lookups, backed by tidwall/btree's
// generic B-tree (the teacher already reaches for this library for the
// same purpose in internal/engine/orderbook.go).
//
// Traversal is restartable mid-matching: after any mutation the caller
// re-seeds from the book's cached best pointer rather than holding a stale
// iterator (spec §4.1).
type PriceTree struct {
	tree *btree.BTreeG[*PriceLevel]
}

// newPriceTree builds a tree ordered by less. Bid trees and sell-stop trees
// use a max-first comparator; ask trees and buy-stop trees use min-first.
func newPriceTree(less func(a, b *PriceLevel) bool) *PriceTree {
	return &PriceTree{tree: btree.NewBTreeG(less)}
}

func maxFirst(a, b *PriceLevel) bool { return a.Price > b.Price }
func minFirst(a, b *PriceLevel) bool { return a.Price < b.Price }

// Insert adds a new level. It is a caller error to insert a price that
// already exists (the caller is expected to look the level up first via Get
// and append to it instead) — Insert panics in that case, since it signals
// an internal invariant violation, not a malformed request (spec §7).
func (t *PriceTree) Insert(level *PriceLevel) {
	if _, ok := t.tree.Get(level); ok {
		panic("engine: duplicate price level inserted")
	}
	t.tree.Set(level)
}

// Remove deletes and returns the level at price, if present.
func (t *PriceTree) Remove(price uint64) (*PriceLevel, bool) {
	return t.tree.Delete(&PriceLevel{Price: price})
}

// Get returns the level at price without removing it.
func (t *PriceTree) Get(price uint64) (*PriceLevel, bool) {
	return t.tree.Get(&PriceLevel{Price: price})
}

// Min returns the tree's first-ordered level (the "best" level for
// whichever side this tree represents).
func (t *PriceTree) Min() (*PriceLevel, bool) {
	return t.tree.Min()
}

// Max returns the tree's last-ordered level.
func (t *PriceTree) Max() (*PriceLevel, bool) {
	return t.tree.Max()
}

// NextHigher returns the tree's in-order successor of level, in *tree
// order* (not numeric price order — for a bid tree, "higher" in tree order
// means "next best", i.e. a strictly lower price).
func (t *PriceTree) NextHigher(level *PriceLevel) (*PriceLevel, bool) {
	var found *PriceLevel
	seenSelf := false
	t.tree.Ascend(level, func(item *PriceLevel) bool {
		if !seenSelf {
			seenSelf = true
			return true
		}
		found = item
		return false
	})
	return found, found != nil
}

// NextLower returns the tree's in-order predecessor of level.
func (t *PriceTree) NextLower(level *PriceLevel) (*PriceLevel, bool) {
	var found *PriceLevel
	seenSelf := false
	t.tree.Descend(level, func(item *PriceLevel) bool {
		if !seenSelf {
			seenSelf = true
			return true
		}
		found = item
		return false
	})
	return found, found != nil
}

// Len reports how many levels the tree currently holds.
func (t *PriceTree) Len() int { return t.tree.Len() }

// Items returns every level in tree order, for tests and diagnostics.
func (t *PriceTree) Items() []*PriceLevel {
	return t.tree.Items()
}

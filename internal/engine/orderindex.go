package engine

import "container/list"

// treeKind identifies which of the book's six trees a resting order lives
// in, so the OrderIndex can route a cancel/reduce/replace to the right
// PriceTree without the caller having to remember.
type treeKind uint8

const (
	treeBids treeKind = iota
	treeAsks
	treeBuyStops
	treeSellStops
	treeTrailingBuyStops
	treeTrailingSellStops
)

// location is the stable handle spec §3/§4.1 requires: an order id maps to
// exactly the level it rests on and its position in that level's queue.
type location struct {
	kind  treeKind
	level *PriceLevel
	elem  *list.Element
}

// OrderIndex maps order id -> location, giving O(1) lookup for
// cancel/reduce/modify/execute instead of a tree walk (spec §3).
type OrderIndex struct {
	locations map[uint64]*location
}

func newOrderIndex() *OrderIndex {
	return &OrderIndex{locations: make(map[uint64]*location)}
}

func (idx *OrderIndex) get(id uint64) (*location, bool) {
	loc, ok := idx.locations[id]
	return loc, ok
}

func (idx *OrderIndex) set(id uint64, loc *location) {
	idx.locations[id] = loc
}

func (idx *OrderIndex) delete(id uint64) {
	delete(idx.locations, id)
}

func (idx *OrderIndex) has(id uint64) bool {
	_, ok := idx.locations[id]
	return ok
}

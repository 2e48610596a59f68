package vectortile

// Tile is the set of fragments rendered for one tile key. A tile is valid once
// it has been completely populated; an empty tile can still be valid.
type Tile struct {
	items []Item
	valid bool
}

func New() *Tile { return &Tile{} }

// Add appends item. With checkDuplicates an existing item with equal points
// absorbs the new ids instead.
func (t *Tile) Add(item Item, checkDuplicates bool) {
	if checkDuplicates {
		for i := range t.items {
			if t.items[i].Equal(item) {
				for id := range item.ids {
					t.items[i].AddID(id)
				}
				return
			}
		}
	}
	t.items = append(t.items, item.Clone())
}

func (t *Tile) AddItems(items []Item, checkDuplicates bool) {
	for _, it := range items {
		t.Add(it, checkDuplicates)
	}
}

// Merge adds every item of o.
func (t *Tile) Merge(o *Tile, checkDuplicates bool) {
	if o == nil {
		return
	}
	t.AddItems(o.items, checkDuplicates)
}

// Remove drops id from every item and discards items left without ids.
func (t *Tile) Remove(id int64) {
	kept := t.items[:0]
	for _, it := range t.items {
		it.RemoveID(id)
		if it.IDCount() > 0 {
			kept = append(kept, it)
		}
	}
	for i := len(kept); i < len(t.items); i++ {
		t.items[i] = Item{}
	}
	t.items = kept
}

// Items returns the fragments. The slice must not be modified.
func (t *Tile) Items() []Item { return t.items }

func (t *Tile) Len() int { return len(t.items) }

func (t *Tile) Empty() bool { return len(t.items) == 0 }

func (t *Tile) Valid() bool { return t.valid }

func (t *Tile) SetValid(v bool) { t.valid = v }

// Equal compares two tiles item by item: ids as sets, geometry in order.
func (t *Tile) Equal(o *Tile) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.valid != o.valid || len(t.items) != len(o.items) {
		return false
	}
	for i := range t.items {
		if !t.items[i].sameContent(o.items[i]) {
			return false
		}
	}
	return true
}

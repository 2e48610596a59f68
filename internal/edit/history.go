package edit

// DefaultHistoryLimit bounds undo depth when no limit is configured.
const DefaultHistoryLimit = 64

// History keeps the live value of an edit and the snapshots it can step back
// and forth through. The value at construction is the first snapshot.
type History[T any] struct {
	current T
	history []T
	cursor  int
	limit   int
	clone   func(T) T
}

// NewHistory returns a history seeded with initial. A limit below 1 keeps
// every snapshot.
func NewHistory[T any](initial T, clone func(T) T, limit int) *History[T] {
	h := &History[T]{current: initial, clone: clone, limit: limit}
	h.SaveState()
	return h
}

// Current points at the live value. Mutations through it are not recorded
// until SaveState.
func (h *History[T]) Current() *T { return &h.current }

// SaveState drops any redo branch and records the live value.
func (h *History[T]) SaveState() {
	if len(h.history) > 0 {
		h.history = h.history[:h.cursor+1]
	}
	h.history = append(h.history, h.clone(h.current))
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = append(h.history[:0], h.history[len(h.history)-h.limit:]...)
	}
	h.cursor = len(h.history) - 1
}

// Undo steps back one snapshot. It fails at the oldest one.
func (h *History[T]) Undo() bool {
	if !h.CanUndo() {
		return false
	}
	h.cursor--
	h.current = h.clone(h.history[h.cursor])
	return true
}

// Redo steps forward one snapshot. It fails at the newest one.
func (h *History[T]) Redo() bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	h.current = h.clone(h.history[h.cursor])
	return true
}

// Restore discards unsaved changes to the live value.
func (h *History[T]) Restore() {
	h.current = h.clone(h.history[h.cursor])
}

func (h *History[T]) CanUndo() bool { return h.cursor > 0 }

func (h *History[T]) CanRedo() bool { return h.cursor < len(h.history)-1 }

// Len is the number of snapshots held.
func (h *History[T]) Len() int { return len(h.history) }

func (h *History[T]) Cursor() int { return h.cursor }

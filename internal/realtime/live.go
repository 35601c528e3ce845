package realtime

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
)

// Identifiable is implemented by rows that can be patched by id.
type Identifiable interface {
	RecordID() uint64
}

func indexOf[T Identifiable](list []T, id uint64) int {
	return slices.IndexFunc(list, func(it T) bool { return it.RecordID() == id })
}

// ApplyInsert appends item unless an entry with the same id exists.  The
// input slice is never modified.
func ApplyInsert[T Identifiable](list []T, item T) []T {
	if indexOf(list, item.RecordID()) >= 0 {
		return list
	}
	out := make([]T, len(list), len(list)+1)
	copy(out, list)
	return append(out, item)
}

// ApplyUpdate replaces the entry with item's id in place.  An unknown id
// leaves the list unchanged.
func ApplyUpdate[T Identifiable](list []T, item T) []T {
	i := indexOf(list, item.RecordID())
	if i < 0 {
		return list
	}
	out := slices.Clone(list)
	out[i] = item
	return out
}

// ApplyDelete removes the entry with id, keeping the order of the rest.
func ApplyDelete[T Identifiable](list []T, id uint64) []T {
	i := indexOf(list, id)
	if i < 0 {
		return list
	}
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

// LiveList is an ordered list kept current by change events.  Keep decides
// membership: an updated row that no longer qualifies is removed and one
// that starts to qualify is appended.  With Limit > 0 the list holds at
// most Limit entries and drops from the front when it grows past it.
type LiveList[T Identifiable] struct {
	mu    sync.RWMutex
	items []T
	Keep  func(T) bool
	Limit int
}

func NewLiveList[T Identifiable](keep func(T) bool) *LiveList[T] {
	return &LiveList[T]{items: []T{}, Keep: keep}
}

// Reset replaces the contents, typically with a fresh database snapshot.
func (l *LiveList[T]) Reset(items []T) {
	cp := make([]T, 0, len(items))
	for _, it := range items {
		if l.keep(it) {
			cp = append(cp, it)
		}
	}
	l.mu.Lock()
	l.items = l.capped(cp)
	l.mu.Unlock()
}

// Snapshot returns a copy safe to hand to callers.
func (l *LiveList[T]) Snapshot() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

func (l *LiveList[T]) keep(it T) bool { return l.Keep == nil || l.Keep(it) }

// capped drops the oldest entries beyond Limit.  The caller holds mu or
// owns list.
func (l *LiveList[T]) capped(list []T) []T {
	if l.Limit <= 0 || len(list) <= l.Limit {
		return list
	}
	return slices.Clone(list[len(list)-l.Limit:])
}

// Apply patches the list with one event.
func (l *LiveList[T]) Apply(e Event) error {
	if e.Type == Delete {
		l.mu.Lock()
		l.items = ApplyDelete(l.items, e.ID)
		l.mu.Unlock()
		return nil
	}
	if e.Type != Insert && e.Type != Update {
		return nil
	}
	var item T
	if err := json.Unmarshal(e.Record, &item); err != nil {
		return fmt.Errorf("decode %s record: %w", e.Topic, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case !l.keep(item):
		l.items = ApplyDelete(l.items, item.RecordID())
	case e.Type == Insert:
		l.items = ApplyInsert(l.items, item)
	case indexOf(l.items, item.RecordID()) >= 0:
		l.items = ApplyUpdate(l.items, item)
	default:
		l.items = ApplyInsert(l.items, item)
	}
	l.items = l.capped(l.items)
	return nil
}

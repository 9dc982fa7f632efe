package mirror

import "github.com/grovetools/recordsync/pkg/records"

// Upsert returns items with r applied: an item with the same id is replaced in place,
// otherwise r is prepended. The input slice is never modified.
func Upsert[R records.Record](items []R, r R) []R {
	idx := indexOf(items, r.RecordID())
	if idx >= 0 {
		out := make([]R, len(items))
		copy(out, items)
		out[idx] = r
		return out
	}
	out := make([]R, 0, len(items)+1)
	out = append(out, r)
	return append(out, items...)
}

// Remove returns items without any record whose id is id.
func Remove[R records.Record](items []R, id string) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		if item.RecordID() != id {
			out = append(out, item)
		}
	}
	return out
}

// FindByID returns the first record with the given id.
func FindByID[R records.Record](items []R, id string) (R, bool) {
	if idx := indexOf(items, id); idx >= 0 {
		return items[idx], true
	}
	var zero R
	return zero, false
}

// FilterByState returns the records whose state equals state, in their original order.
func FilterByState[R records.Record](items []R, state string) []R {
	out := make([]R, 0)
	for _, item := range items {
		if item.RecordState() == state {
			out = append(out, item)
		}
	}
	return out
}

func indexOf[R records.Record](items []R, id string) int {
	for i, item := range items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

package catalog

import "sort"

// MaxLineQuantity caps the quantity of one product in a cart or order.
const MaxLineQuantity = 999

// ValidQuantity reports whether q is within [1, MaxLineQuantity].
func ValidQuantity(q int) bool { return q >= 1 && q <= MaxLineQuantity }

// Line is a requested (product, quantity) pair.
type Line struct {
	ProductID int64
	Quantity  int
}

// MergeLines sums quantities of duplicate products. The result keeps the
// order in which each product first appeared.
func MergeLines(lines []Line) []Line {
	idx := make(map[int64]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// ProductIDs returns the distinct product ids of lines in ascending order.
func ProductIDs(lines []Line) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MissingIDs returns the ids absent from found, ascending.
func MissingIDs(ids []int64, found map[int64]*Product) []int64 {
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i] < missing[j] })
	return missing
}

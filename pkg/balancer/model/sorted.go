package model

import "golang.org/x/exp/slices"

// insertSortedUnique inserts v into the sorted slice arr, which must not
// already contain v, preserving order. Used for regionsPerServer /
// regionsPerHost / regionsPerRack, where a region belongs to exactly one
// group at a time.
func insertSortedUnique(arr []RegionIndex, v RegionIndex) []RegionIndex {
	i, found := slices.BinarySearch(arr, v)
	if found {
		return arr
	}
	arr = append(arr, 0)
	copy(arr[i+1:], arr[i:])
	arr[i] = v
	return arr
}

// insertSortedDup inserts v into the sorted slice arr, allowing
// duplicates, preserving order. Used for the primariesOfRegions* arrays,
// where equal values indicate co-located replicas.
func insertSortedDup(arr []RegionIndex, v RegionIndex) []RegionIndex {
	i, _ := slices.BinarySearch(arr, v)
	arr = append(arr, 0)
	copy(arr[i+1:], arr[i:])
	arr[i] = v
	return arr
}

// removeSortedOne removes one occurrence of v from the sorted slice arr.
// arr must contain v; if it does not, arr is returned unchanged (a
// defensive no-op, since this only happens on a logic error already
// caught earlier by an Apply precondition check).
func removeSortedOne(arr []RegionIndex, v RegionIndex) []RegionIndex {
	i, found := slices.BinarySearch(arr, v)
	if !found {
		return arr
	}
	return append(arr[:i], arr[i+1:]...)
}

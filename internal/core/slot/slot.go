// Package slot tracks per-dimension slot occupancy as bit vectors and
// performs first-fit slot searches. Allocations name concrete slot indices,
// which launched jobs see in their environment.
package slot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidBitmap     = errors.New("invalid slot bitmap")
	ErrInvalidAllocation = errors.New("invalid slot allocation")
	ErrSlotBusy          = errors.New("slot is already busy")
)

// Allocation is a per-dimension list of ascending slot indices.
type Allocation [][]int

// Counts returns the number of slots held in each dimension.
func (a Allocation) Counts() []int {
	counts := make([]int, len(a))
	for i, idx := range a {
		counts[i] = len(idx)
	}
	return counts
}

// Dimension returns the indices of dimension i joined by commas, the form
// exposed to jobs through the environment.
func (a Allocation) Dimension(i int) string {
	if i < 0 || i >= len(a) {
		return ""
	}
	parts := make([]string, len(a[i]))
	for j, n := range a[i] {
		parts[j] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// String encodes the allocation as comma-joined indices per dimension,
// dimensions separated by ';'.
func (a Allocation) String() string {
	dims := make([]string, len(a))
	for i := range a {
		dims[i] = a.Dimension(i)
	}
	return strings.Join(dims, ";")
}

// ParseAllocation decodes the String form of an allocation over dims
// dimensions.
func ParseAllocation(s string, dims int) (Allocation, error) {
	parts := strings.Split(s, ";")
	if len(parts) != dims {
		return nil, fmt.Errorf("%w: %q has %d dimensions, want %d", ErrInvalidAllocation, s, len(parts), dims)
	}
	alloc := make(Allocation, dims)
	for i, part := range parts {
		alloc[i] = []int{}
		if part == "" {
			continue
		}
		for _, field := range strings.Split(part, ",") {
			n, err := strconv.Atoi(field)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: %q", ErrInvalidAllocation, s)
			}
			alloc[i] = append(alloc[i], n)
		}
	}
	return alloc, nil
}

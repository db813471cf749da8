package slot

import (
	"fmt"
	"strings"
)

// Bitmap records which slots of each dimension are busy. The length of each
// dimension is fixed when the bitmap is created.
type Bitmap struct {
	busy [][]bool
}

// New returns an all-free bitmap with the given per-dimension totals.
func New(totals []int) *Bitmap {
	busy := make([][]bool, len(totals))
	for i, n := range totals {
		busy[i] = make([]bool, n)
	}
	return &Bitmap{busy: busy}
}

// Parse decodes one line of '0'/'1' characters per dimension.
func Parse(data string) (*Bitmap, error) {
	if !strings.HasSuffix(data, "\n") {
		return nil, fmt.Errorf("%w: missing trailing newline", ErrInvalidBitmap)
	}
	lines := strings.Split(strings.TrimSuffix(data, "\n"), "\n")
	busy := make([][]bool, len(lines))
	for i, line := range lines {
		busy[i] = make([]bool, len(line))
		for j, c := range line {
			switch c {
			case '0':
			case '1':
				busy[i][j] = true
			default:
				return nil, fmt.Errorf("%w: unexpected character %q in dimension %d", ErrInvalidBitmap, c, i)
			}
		}
	}
	return &Bitmap{busy: busy}, nil
}

// String encodes the bitmap in the format read by Parse.
func (b *Bitmap) String() string {
	var sb strings.Builder
	for _, dim := range b.busy {
		for _, busy := range dim {
			if busy {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Dims returns the number of dimensions.
func (b *Bitmap) Dims() int {
	return len(b.busy)
}

// Totals returns the number of slots in each dimension.
func (b *Bitmap) Totals() []int {
	totals := make([]int, len(b.busy))
	for i, dim := range b.busy {
		totals[i] = len(dim)
	}
	return totals
}

// Free returns the number of free slots in each dimension.
func (b *Bitmap) Free() []int {
	free := make([]int, len(b.busy))
	for i, dim := range b.busy {
		for _, busy := range dim {
			if !busy {
				free[i]++
			}
		}
	}
	return free
}

// Used returns the number of busy slots in each dimension.
func (b *Bitmap) Used() []int {
	used := b.Totals()
	for i, free := range b.Free() {
		used[i] -= free
	}
	return used
}

// IsBusy reports whether slot idx of dimension dim is busy.
func (b *Bitmap) IsBusy(dim, idx int) bool {
	if dim < 0 || dim >= len(b.busy) || idx < 0 || idx >= len(b.busy[dim]) {
		return false
	}
	return b.busy[dim][idx]
}

// FindAllocation selects, in every dimension independently, the req[i]
// lowest-indexed free slots. It returns false without touching the bitmap if
// any dimension lacks capacity.
func (b *Bitmap) FindAllocation(req []int) (Allocation, bool) {
	if len(req) != len(b.busy) {
		return nil, false
	}
	free := b.Free()
	for i, n := range req {
		if n < 0 || free[i] < n {
			return nil, false
		}
	}

	alloc := make(Allocation, len(req))
	for i, n := range req {
		alloc[i] = make([]int, 0, n)
		for j := 0; j < len(b.busy[i]) && len(alloc[i]) < n; j++ {
			if !b.busy[i][j] {
				alloc[i] = append(alloc[i], j)
			}
		}
	}
	return alloc, true
}

// Commit marks every slot of the allocation busy. Nothing is changed if any
// index is out of range or already busy.
func (b *Bitmap) Commit(a Allocation) error {
	if err := b.check(a); err != nil {
		return err
	}
	for i, idx := range a {
		for _, j := range idx {
			if b.busy[i][j] {
				return fmt.Errorf("%w: dimension %d slot %d", ErrSlotBusy, i, j)
			}
		}
	}
	for i, idx := range a {
		for _, j := range idx {
			b.busy[i][j] = true
		}
	}
	return nil
}

// Release marks every slot of the allocation free. Releasing a free slot is
// a no-op.
func (b *Bitmap) Release(a Allocation) error {
	if err := b.check(a); err != nil {
		return err
	}
	for i, idx := range a {
		for _, j := range idx {
			b.busy[i][j] = false
		}
	}
	return nil
}

func (b *Bitmap) check(a Allocation) error {
	if len(a) != len(b.busy) {
		return fmt.Errorf("%w: %d dimensions, want %d", ErrInvalidAllocation, len(a), len(b.busy))
	}
	for i, idx := range a {
		for _, j := range idx {
			if j < 0 || j >= len(b.busy[i]) {
				return fmt.Errorf("%w: dimension %d has no slot %d", ErrInvalidAllocation, i, j)
			}
		}
	}
	return nil
}

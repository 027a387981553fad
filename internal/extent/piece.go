package extent

import "fmt"

// Piece identifies one partition of an unstructured dataset plus the number
// of ghost levels wanted around it.
type Piece struct {
	Index int
	Count int
	Ghost int
}

// Whole is the single piece covering the entire dataset.
func Whole() Piece {
	return Piece{Index: 0, Count: 1}
}

// Validate checks 0 <= Index < Count and Ghost >= 0.
func (p Piece) Validate() error {
	if p.Count < 1 {
		return fmt.Errorf("piece count %d must be positive: %w", p.Count, ErrInvalid)
	}
	if p.Index < 0 || p.Index >= p.Count {
		return fmt.Errorf("piece index %d out of range [0,%d): %w", p.Index, p.Count, ErrInvalid)
	}
	if p.Ghost < 0 {
		return fmt.Errorf("ghost level %d is negative: %w", p.Ghost, ErrInvalid)
	}
	return nil
}

// IsWhole reports whether p covers the whole dataset.
func (p Piece) IsWhole() bool {
	return p.Count == 1 && p.Index == 0
}

// WithGhost returns p with the ghost level replaced.
func (p Piece) WithGhost(g int) Piece {
	p.Ghost = g
	return p
}

func (p Piece) String() string {
	return fmt.Sprintf("%d/%d+%d", p.Index, p.Count, p.Ghost)
}

// SplitExtent returns the block of whole that piece p covers. whole is cut
// into p.Count slabs along its longest axis; when there are more pieces than
// points on that axis the surplus pieces are empty. Ghost levels pad the
// block and are clamped to whole.
func SplitExtent(whole Extent, p Piece) Extent {
	if whole.IsEmpty() || p.Validate() != nil {
		return Empty()
	}
	dims := whole.Dimensions()
	axis := 0
	for a := 1; a < 3; a++ {
		if dims[a] > dims[axis] {
			axis = a
		}
	}
	start, end := split(dims[axis], p.Index, p.Count)
	if start >= end {
		return Empty()
	}
	out := whole
	out[2*axis] = whole[2*axis] + start
	out[2*axis+1] = whole[2*axis] + end - 1
	if p.Ghost > 0 {
		out = out.PadUniform(p.Ghost).Clamp(whole)
	}
	return out
}

// SplitRange returns the half-open item range [start, end) of n items that
// piece p covers, widened by p.Ghost items on each side and clamped to [0, n).
func SplitRange(n int, p Piece) (start, end int) {
	if n <= 0 || p.Validate() != nil {
		return 0, 0
	}
	start, end = split(n, p.Index, p.Count)
	if start >= end {
		return start, start
	}
	start = max(0, start-p.Ghost)
	end = min(n, end+p.Ghost)
	return start, end
}

// split divides n items into count near-equal runs; the first n%count runs
// get one extra item.
func split(n, index, count int) (start, end int) {
	size := n / count
	rem := n % count
	start = index*size + min(index, rem)
	end = start + size
	if index < rem {
		end++
	}
	return start, end
}

package pipeline

import (
	"fmt"

	"github.com/vk/streamgrid/internal/extent"
)

// RequestKind tells the two request shapes apart.
type RequestKind int

const (
	// KindPiece asks for a partition of an unstructured dataset.
	KindPiece RequestKind = iota
	// KindExtent asks for a structured index-space box.
	KindExtent
)

func (k RequestKind) String() string {
	if k == KindExtent {
		return "extent"
	}
	return "piece"
}

// Request is what a consumer asks a port to produce. A request is either a
// structured extent or a piece, and may carry a time.
//
// A piece request on an output that declares a whole extent is resolved to
// the block of that extent the piece covers; Structured is then true and
// Extent holds the block while Kind stays KindPiece.
type Request struct {
	Kind       RequestKind
	Extent     extent.Extent
	Structured bool
	Piece      extent.Piece
	Time       float64
	HasTime    bool
}

// ExtentRequest asks for a structured extent.
func ExtentRequest(e extent.Extent) Request {
	return Request{Kind: KindExtent, Extent: e, Structured: true, Piece: extent.Whole()}
}

// PieceRequest asks for piece index of count with ghost levels.
func PieceRequest(index, count, ghost int) Request {
	return Request{Kind: KindPiece, Extent: extent.Empty(), Piece: extent.Piece{Index: index, Count: count, Ghost: ghost}}
}

// WholeRequest asks for the entire dataset.
func WholeRequest() Request {
	return PieceRequest(0, 1, 0)
}

// AtTime returns r with a requested time.
func (r Request) AtTime(t float64) Request {
	r.Time = t
	r.HasTime = true
	return r
}

// WithoutTime returns r with the time removed.
func (r Request) WithoutTime() Request {
	r.Time = 0
	r.HasTime = false
	return r
}

// IsEmpty reports whether r resolves to no data at all.
func (r Request) IsEmpty() bool {
	return r.Structured && r.Extent.IsEmpty()
}

// Validate checks the request's own invariants.
func (r Request) Validate() error {
	if r.Kind == KindPiece {
		if err := r.Piece.Validate(); err != nil {
			return fmt.Errorf("piece %s: %w", r.Piece, ErrInvalidRequest)
		}
	}
	return nil
}

// Equal compares every field.
func (r Request) Equal(o Request) bool {
	return r == o
}

func (r Request) String() string {
	var s string
	switch {
	case r.Kind == KindExtent:
		s = "extent " + r.Extent.String()
	case r.Structured:
		s = fmt.Sprintf("piece %s -> %s", r.Piece, r.Extent)
	default:
		s = "piece " + r.Piece.String()
	}
	if r.HasTime {
		s += fmt.Sprintf(" @%g", r.Time)
	}
	return s
}

// orWhole maps the zero Request to WholeRequest so targets can omit it.
func (r Request) orWhole() Request {
	if r == (Request{}) {
		return WholeRequest()
	}
	return r
}

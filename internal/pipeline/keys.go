package pipeline

import (
	"github.com/vk/streamgrid/internal/extent"
	"github.com/vk/streamgrid/internal/metadata"
)

// KeyScope is the scope of the keys the executive itself understands.
const KeyScope = "executive"

// Keys are the standard metadata keys registered by every pipeline.
type Keys struct {
	// Informational keys, set by DescribeOutputs.
	WholeExtent *metadata.Key
	MaxPieces   *metadata.Key
	TimeSteps   *metadata.Key
	TimeRange   *metadata.Key
	DataType    *metadata.Key

	// Request keys, mirrored from the negotiated Request.
	UpdateExtent         *metadata.Key
	UpdatePiece          *metadata.Key
	UpdateNumberOfPieces *metadata.Key
	UpdateGhostLevels    *metadata.Key
	UpdateTime           *metadata.Key

	// Per-execution keys, set on an output's data record.
	DataExtent *metadata.Key
	DataTime   *metadata.Key
	DataRange  *metadata.Key
	DataObject *metadata.Key
}

func registerKeys(r *metadata.Registry) *Keys {
	return &Keys{
		WholeExtent: r.MustRegister(KeyScope, "WHOLE_EXTENT", metadata.KindIntVector, metadata.WithLength(6), metadata.TracksModification()),
		MaxPieces:   r.MustRegister(KeyScope, "MAXIMUM_NUMBER_OF_PIECES", metadata.KindInt),
		TimeSteps:   r.MustRegister(KeyScope, "TIME_STEPS", metadata.KindFloatVector, metadata.TracksModification()),
		TimeRange:   r.MustRegister(KeyScope, "TIME_RANGE", metadata.KindFloatVector, metadata.WithLength(2)),
		DataType:    r.MustRegister(KeyScope, "DATA_TYPE", metadata.KindString),

		UpdateExtent:         r.MustRegister(KeyScope, "UPDATE_EXTENT", metadata.KindIntVector, metadata.WithLength(6)),
		UpdatePiece:          r.MustRegister(KeyScope, "UPDATE_PIECE", metadata.KindInt),
		UpdateNumberOfPieces: r.MustRegister(KeyScope, "UPDATE_NUMBER_OF_PIECES", metadata.KindInt),
		UpdateGhostLevels:    r.MustRegister(KeyScope, "UPDATE_GHOST_LEVELS", metadata.KindInt),
		UpdateTime:           r.MustRegister(KeyScope, "UPDATE_TIME", metadata.KindFloat),

		DataExtent: r.MustRegister(KeyScope, "DATA_EXTENT", metadata.KindIntVector, metadata.WithLength(6)),
		DataTime:   r.MustRegister(KeyScope, "DATA_TIME", metadata.KindFloat),
		DataRange:  r.MustRegister(KeyScope, "DATA_RANGE", metadata.KindFloatVector, metadata.WithLength(2)),
		DataObject: r.MustRegister(KeyScope, "DATA_OBJECT", metadata.KindObject),
	}
}

// Whole returns the WHOLE_EXTENT of an informational record.
func (k *Keys) Whole(rec *metadata.Record) (extent.Extent, bool) {
	if rec == nil {
		return extent.Empty(), false
	}
	v, ok := rec.IntVector(k.WholeExtent)
	if !ok {
		return extent.Empty(), false
	}
	e, err := extent.FromSlice(v)
	return e, err == nil
}

// Steps returns the time information of an informational record. An
// output with TIME_RANGE but no TIME_STEPS is continuous.
func (k *Keys) Steps(rec *metadata.Record) (extent.TimeSteps, bool) {
	if rec == nil {
		return extent.TimeSteps{}, false
	}
	steps, hasSteps := rec.FloatVector(k.TimeSteps)
	rng, hasRange := rec.FloatVector(k.TimeRange)
	switch {
	case hasSteps:
		return extent.Discrete(steps...), true
	case hasRange:
		return extent.ContinuousRange(rng[0], rng[1]), true
	}
	return extent.TimeSteps{}, false
}

// SetSteps writes TIME_STEPS and TIME_RANGE, or only TIME_RANGE for a
// continuous set.
func (k *Keys) SetSteps(rec *metadata.Record, ts extent.TimeSteps) error {
	if !ts.Continuous {
		if err := rec.Set(k.TimeSteps, ts.Values); err != nil {
			return err
		}
	} else {
		rec.Remove(k.TimeSteps)
	}
	return rec.Set(k.TimeRange, ts.Range)
}

// writeRequest mirrors a request into a request record.
func (k *Keys) writeRequest(rec *metadata.Record, r Request) {
	rec.Clear()
	if r.Structured {
		_ = rec.Set(k.UpdateExtent, r.Extent)
	}
	if r.Kind == KindPiece {
		_ = rec.Set(k.UpdatePiece, r.Piece.Index)
		_ = rec.Set(k.UpdateNumberOfPieces, r.Piece.Count)
		_ = rec.Set(k.UpdateGhostLevels, r.Piece.Ghost)
	}
	if r.HasTime {
		_ = rec.Set(k.UpdateTime, r.Time)
	}
}

// ReadRequest rebuilds a request from a request record.
func (k *Keys) ReadRequest(rec *metadata.Record) (Request, bool) {
	if rec == nil || rec.Len() == 0 {
		return Request{}, false
	}
	var r Request
	index, hasPiece := rec.Int(k.UpdatePiece)
	if hasPiece {
		count, _ := rec.Int(k.UpdateNumberOfPieces)
		ghost, _ := rec.Int(k.UpdateGhostLevels)
		r = PieceRequest(index, count, ghost)
	}
	if v, ok := rec.IntVector(k.UpdateExtent); ok {
		e, err := extent.FromSlice(v)
		if err == nil {
			if !hasPiece {
				r = ExtentRequest(e)
			} else {
				r.Extent = e
				r.Structured = true
			}
		}
	} else if !hasPiece {
		r = WholeRequest()
	}
	if t, ok := rec.Float(k.UpdateTime); ok {
		r = r.AtTime(t)
	}
	return r, true
}

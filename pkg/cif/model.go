package cif

import "github.com/cifkit/cifkit/pkg/types"

// These re-exports give callers a single import for the whole public
// surface. The underlying definitions live in pkg/types alongside the
// internal packages that also depend on them.
type (
	Mode                = types.Mode
	CellType            = types.CellType
	CatHandle           = types.CatHandle
	Slot                = types.Slot
	RowView             = types.RowView
	ReaderOptions       = types.ReaderOptions
	RowFunc             = types.RowFunc
	EndFrameFunc        = types.EndFrameFunc
	FinalizeFunc        = types.FinalizeFunc
	UnknownCategoryFunc = types.UnknownCategoryFunc
	UnknownKeywordFunc  = types.UnknownKeywordFunc
	ReleaseFunc         = types.ReleaseFunc
)

const (
	ModeText   = types.ModeText
	ModeBinary = types.ModeBinary

	CellString = types.CellString
	CellInt    = types.CellInt
	CellFloat  = types.CellFloat

	OmittedValue = types.OmittedValue
	UnknownValue = types.UnknownValue
)

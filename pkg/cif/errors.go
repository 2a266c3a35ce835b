package cif

import "github.com/cifkit/cifkit/pkg/types"

// Error and its companions are re-exported from pkg/types so that callers
// of this package never need to import the internal model package
// directly. The definitions live in pkg/types because the internal
// parsing packages (which cannot import cif without a cycle) need them
// too.
type (
	Error   = types.Error
	ErrKind = types.ErrKind
)

const (
	ErrKindIO       = types.ErrKindIO
	ErrKindFormat   = types.ErrKindFormat
	ErrKindValue    = types.ErrKindValue
	ErrKindCallback = types.ErrKindCallback
)

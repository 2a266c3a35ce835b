package types

// Mode selects which wire grammar a Reader drives: the textual mmCIF
// grammar or the packed BinaryCIF grammar.
type Mode int

const (
	ModeText Mode = iota
	ModeBinary
)

func (m Mode) String() string {
	if m == ModeBinary {
		return "binary"
	}
	return "text"
}

// CellType declares the decoded representation of a keyword's values.
// Text-mode keywords are always CellString; binary-mode keywords may
// declare any of the three.
type CellType int

const (
	CellString CellType = iota
	CellInt
	CellFloat
)

func (t CellType) String() string {
	switch t {
	case CellString:
		return "string"
	case CellInt:
		return "int"
	case CellFloat:
		return "float"
	default:
		return "unknown"
	}
}

// CatHandle identifies a category registered with a Reader.
type CatHandle int

// The two reserved non-values, as spelled in the text grammar. Binary
// masks encode them as 1 and 2.
const (
	OmittedValue = "."
	UnknownValue = "?"
)

// Slot is the per-read observation of one keyword within the current row.
// At most one of Omitted/Unknown is set; both imply InFile. When neither
// is set, the field matching Type holds the observed value, except that a
// binary string column always fills Str whatever the declared Type.
type Slot struct {
	Name    string
	Type    CellType
	InFile  bool
	Omitted bool
	Unknown bool

	Str   string
	Int   int32
	Float float64
}

// Present reports whether the slot carries an actual value (observed,
// neither omitted nor unknown).
func (s Slot) Present() bool {
	return s.InFile && !s.Omitted && !s.Unknown
}

// RowView is the ordered view of a category's keyword slots handed to a
// row callback. Slots appear in registration order. Borrowed string data
// referenced by a Slot is valid only for the duration of the callback.
type RowView struct {
	Category string
	Slots    []Slot
	Line     int // 1-based text line number; 0 in binary mode
}

// Slot looks up a keyword's slot by case-insensitive name.
func (r RowView) Slot(name string) (Slot, bool) {
	for _, s := range r.Slots {
		if equalFold(s.Name, name) {
			return s, true
		}
	}
	return Slot{}, false
}

// String returns the string value of a keyword, or "" if absent/omitted/unknown.
func (r RowView) String(name string) string {
	if s, ok := r.Slot(name); ok && s.Present() {
		return s.Str
	}
	return ""
}

// Int returns the int32 value of a keyword, or 0 if absent/omitted/unknown.
func (r RowView) Int(name string) int32 {
	if s, ok := r.Slot(name); ok && s.Present() {
		return s.Int
	}
	return 0
}

// Float returns the float64 value of a keyword, or 0 if absent/omitted/unknown.
func (r RowView) Float(name string) float64 {
	if s, ok := r.Slot(name); ok && s.Present() {
		return s.Float
	}
	return 0
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

// RowFunc is invoked once per materialized row. State is the opaque value
// passed to RegisterCategory. The Slot data in row is only valid for the
// duration of the call.
type RowFunc func(state any, row RowView) error

// EndFrameFunc fires at each mmCIF save-frame boundary (text mode only),
// once per registered category, without live row data.
type EndFrameFunc func(state any) error

// FinalizeFunc fires once per registered category at the end of a data
// block.
type FinalizeFunc func(state any) error

// UnknownCategoryFunc receives a category name referenced by the input
// that was never registered, plus a text line number (0 in binary mode).
type UnknownCategoryFunc func(category string, line int)

// UnknownKeywordFunc receives a registered category's unregistered
// keyword, plus a text line number (0 in binary mode).
type UnknownKeywordFunc func(category, keyword string, line int)

// ReleaseFunc releases opaque per-category state when the reader is torn
// down or ClearCategories is called.
type ReleaseFunc func(state any)

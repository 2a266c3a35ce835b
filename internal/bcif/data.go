package bcif

// dataKind tags the current representation of a column payload as it
// moves through the decoder pipeline. Narrow integer types are widened
// into the shared int32 vector on read; the kind remembers the source
// width because IntegerPacking's sentinel values depend on it.
type dataKind int

const (
	dataRaw dataKind = iota
	dataI8
	dataU8
	dataI16
	dataU16
	dataI32
	dataU32
	dataF32
	dataF64
	dataStrings
)

func (k dataKind) String() string {
	switch k {
	case dataRaw:
		return "raw"
	case dataI8:
		return "i8"
	case dataU8:
		return "u8"
	case dataI16:
		return "i16"
	case dataU16:
		return "u16"
	case dataI32:
		return "i32"
	case dataU32:
		return "u32"
	case dataF32:
		return "f32"
	case dataF64:
		return "f64"
	case dataStrings:
		return "strings"
	default:
		return "unknown"
	}
}

// isInt reports whether the payload lives in the I32 vector.
func (k dataKind) isInt() bool {
	switch k {
	case dataI8, dataU8, dataI16, dataU16, dataI32, dataU32:
		return true
	}
	return false
}

// isFloat reports whether the payload lives in the F64 vector.
func (k dataKind) isFloat() bool {
	return k == dataF32 || k == dataF64
}

// Data is the decoder pipeline's working value: raw bytes before the
// first stage, then one of the typed vectors.
type Data struct {
	Kind dataKind
	Raw  []byte
	I32  []int32
	F64  []float64
	Strs []string
}

// Len returns the element count of the current representation.
func (d Data) Len() int {
	switch {
	case d.Kind == dataRaw:
		return len(d.Raw)
	case d.Kind.isInt():
		return len(d.I32)
	case d.Kind.isFloat():
		return len(d.F64)
	default:
		return len(d.Strs)
	}
}

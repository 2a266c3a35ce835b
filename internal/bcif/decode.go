package bcif

import (
	"math"

	"github.com/cifkit/cifkit/internal/buf"
	"github.com/cifkit/cifkit/pkg/types"
)

// decodeChain runs an encoding chain (already in application order, see
// parseEncodingChain) over a raw payload and returns the materialized
// typed vector.
func decodeChain(raw []byte, chain []Encoding, opts types.ReaderOptions) (Data, error) {
	d := Data{Kind: dataRaw, Raw: raw}
	for _, enc := range chain {
		var err error
		d, err = applyEncoding(d, enc, opts)
		if err != nil {
			return Data{}, err
		}
	}
	return d, nil
}

func applyEncoding(d Data, enc Encoding, opts types.ReaderOptions) (Data, error) {
	switch enc.Kind {
	case EncByteArray:
		return decodeByteArray(d, enc)
	case EncIntegerPacking:
		return decodeIntegerPacking(d)
	case EncDelta:
		return decodeDelta(d, enc)
	case EncRunLength:
		return decodeRunLength(d, opts)
	case EncFixedPoint:
		return decodeFixedPoint(d, enc)
	case EncStringArray:
		return decodeStringArray(d, enc, opts)
	default:
		return Data{}, types.FormatError("unknown encoding kind", 0)
	}
}

// decodeByteArray reinterprets raw bytes as a little-endian fixed-width
// vector. Reads go through encoding/binary's little-endian accessors,
// so the result is host-endianness independent.
func decodeByteArray(d Data, enc Encoding) (Data, error) {
	if d.Kind != dataRaw {
		return Data{}, types.FormatError("ByteArray input must be raw bytes", 0)
	}
	raw := d.Raw
	width := typeWidth(enc.Type)
	if width == 0 {
		return Data{}, types.FormatError("ByteArray with unrecognized element type", 0)
	}
	if len(raw)%width != 0 {
		return Data{}, types.FormatError("ByteArray size does not divide by element width", 0)
	}
	n := len(raw) / width
	switch enc.Type {
	case TypeInt8:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(int8(raw[i]))
		}
		return Data{Kind: dataI8, I32: out}, nil
	case TypeUint8:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(raw[i])
		}
		return Data{Kind: dataU8, I32: out}, nil
	case TypeInt16:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(int16(buf.U16LE(raw[i*2:])))
		}
		return Data{Kind: dataI16, I32: out}, nil
	case TypeUint16:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(buf.U16LE(raw[i*2:]))
		}
		return Data{Kind: dataU16, I32: out}, nil
	case TypeInt32:
		out := make([]int32, n)
		for i := range out {
			out[i] = buf.I32LE(raw[i*4:])
		}
		return Data{Kind: dataI32, I32: out}, nil
	case TypeUint32:
		out := make([]int32, n)
		for i := range out {
			out[i] = int32(buf.U32LE(raw[i*4:]))
		}
		return Data{Kind: dataU32, I32: out}, nil
	case TypeFloat32:
		out := make([]float64, n)
		for i := range out {
			out[i] = float64(math.Float32frombits(buf.U32LE(raw[i*4:])))
		}
		return Data{Kind: dataF32, F64: out}, nil
	default: // TypeFloat64
		out := make([]float64, n)
		for i := range out {
			out[i] = math.Float64frombits(buf.U64LE(raw[i*8:]))
		}
		return Data{Kind: dataF64, F64: out}, nil
	}
}

func typeWidth(t int32) int {
	switch t {
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeFloat64:
		return 8
	default:
		return 0
	}
}

// decodeIntegerPacking expands runs of saturated sentinel values into
// single int32 terms. The sentinels are the source type's extremes: max
// (and min, for the signed types). Each run of sentinels accumulates
// into the next non-sentinel terminator; a trailing sentinel run with
// no terminator contributes nothing.
func decodeIntegerPacking(d Data) (Data, error) {
	var upper, lower int64
	switch d.Kind {
	case dataI8:
		upper, lower = math.MaxInt8, math.MinInt8
	case dataU8:
		upper, lower = math.MaxUint8, math.MinInt64
	case dataI16:
		upper, lower = math.MaxInt16, math.MinInt16
	case dataU16:
		upper, lower = math.MaxUint16, math.MinInt64
	default:
		return Data{}, types.FormatError("IntegerPacking input must be an 8- or 16-bit integer vector", 0)
	}
	out := make([]int32, 0, len(d.I32))
	var sum int64
	for _, v := range d.I32 {
		sum += int64(v)
		if int64(v) == upper || int64(v) == lower {
			continue
		}
		if sum < math.MinInt32 || sum > math.MaxInt32 {
			return Data{}, types.FormatError("IntegerPacking sum overflows int32", 0)
		}
		out = append(out, int32(sum))
		sum = 0
	}
	return Data{Kind: dataI32, I32: out}, nil
}

// decodeDelta prefix-sums an integer vector in place, starting from the
// declared origin.
func decodeDelta(d Data, enc Encoding) (Data, error) {
	if !d.Kind.isInt() {
		return Data{}, types.FormatError("Delta input must be an integer vector", 0)
	}
	sum := int64(enc.Origin)
	for i, v := range d.I32 {
		sum += int64(v)
		if sum < math.MinInt32 || sum > math.MaxInt32 {
			return Data{}, types.FormatError("Delta sum overflows int32", 0)
		}
		d.I32[i] = int32(sum)
	}
	return Data{Kind: dataI32, I32: d.I32}, nil
}

// decodeRunLength expands (value, count) pairs into a flat vector. The
// expanded length is bounded by the configured cell size so a hostile
// pair cannot force an unbounded allocation.
func decodeRunLength(d Data, opts types.ReaderOptions) (Data, error) {
	if !d.Kind.isInt() {
		return Data{}, types.FormatError("RunLength input must be an integer vector", 0)
	}
	if len(d.I32)%2 != 0 {
		return Data{}, types.FormatError("RunLength input has odd length", 0)
	}
	maxElems := opts.MaxCellSize / 4
	total := 0
	for i := 1; i < len(d.I32); i += 2 {
		n := d.I32[i]
		if n < 0 {
			return Data{}, types.FormatError("RunLength with negative count", 0)
		}
		sum, ok := buf.AddOverflowSafe(total, int(n))
		if !ok || sum > maxElems {
			return Data{}, types.FormatError("RunLength expansion exceeds cell size limit", 0)
		}
		total = sum
	}
	out := make([]int32, 0, total)
	for i := 0; i < len(d.I32); i += 2 {
		v, n := d.I32[i], d.I32[i+1]
		for j := int32(0); j < n; j++ {
			out = append(out, v)
		}
	}
	return Data{Kind: dataI32, I32: out}, nil
}

// decodeFixedPoint divides each integer by the declared factor into a
// float64 vector.
func decodeFixedPoint(d Data, enc Encoding) (Data, error) {
	if !d.Kind.isInt() {
		return Data{}, types.FormatError("FixedPoint input must be an integer vector", 0)
	}
	if enc.Factor == 0 {
		return Data{}, types.FormatError("FixedPoint with zero factor", 0)
	}
	factor := float64(enc.Factor)
	out := make([]float64, len(d.I32))
	for i, v := range d.I32 {
		out[i] = float64(v) / factor
	}
	return Data{Kind: dataF64, F64: out}, nil
}

// decodeStringArray maps per-row indices into substrings of the string
// pool. The index vector arrives through the stage's own data
// sub-chain; the substring boundaries arrive through the offset
// sub-chain.
func decodeStringArray(d Data, enc Encoding, opts types.ReaderOptions) (Data, error) {
	indices := d
	if d.Kind == dataRaw {
		var err error
		indices, err = decodeChain(d.Raw, enc.DataEncoding, opts)
		if err != nil {
			return Data{}, err
		}
	}
	if !indices.Kind.isInt() {
		return Data{}, types.FormatError("StringArray indices must be an integer vector", 0)
	}
	offsets, err := decodeChain(enc.Offsets, enc.OffsetEncoding, opts)
	if err != nil {
		return Data{}, err
	}
	if !offsets.Kind.isInt() {
		return Data{}, types.FormatError("StringArray offsets must be an integer vector", 0)
	}
	pool := enc.StringData
	subs := make([]string, 0, max(len(offsets.I32)-1, 0))
	for i := 0; i+1 < len(offsets.I32); i++ {
		lo, hi := offsets.I32[i], offsets.I32[i+1]
		span, ok := buf.Slice(pool, int(lo), int(hi-lo))
		if !ok {
			return Data{}, types.FormatError("StringArray offset out of range", 0)
		}
		subs = append(subs, string(span))
	}
	out := make([]string, len(indices.I32))
	for i, idx := range indices.I32 {
		if idx < 0 || int(idx) >= len(subs) {
			return Data{}, types.FormatError("StringArray index out of range", 0)
		}
		out[i] = subs[idx]
	}
	return Data{Kind: dataStrings, Strs: out}, nil
}

// decodeMask decodes a mask payload and coerces the result to the
// canonical per-row byte vector (0 present, 1 omitted, 2 unknown).
func decodeMask(raw []byte, chain []Encoding, opts types.ReaderOptions) ([]uint8, error) {
	d, err := decodeChain(raw, chain, opts)
	if err != nil {
		return nil, err
	}
	if !d.Kind.isInt() {
		return nil, types.FormatError("mask must decode to an integer vector", 0)
	}
	out := make([]uint8, len(d.I32))
	for i, v := range d.I32 {
		out[i] = uint8(v)
	}
	return out, nil
}

package bcif

import (
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/cifkit/cifkit/pkg/types"
)

// EncKind discriminates the six recognized column encodings. The set is
// closed: an unrecognized kind string is a format error at parse time.
type EncKind int

const (
	EncByteArray EncKind = iota
	EncIntegerPacking
	EncDelta
	EncRunLength
	EncFixedPoint
	EncStringArray
)

func (k EncKind) String() string {
	switch k {
	case EncByteArray:
		return "ByteArray"
	case EncIntegerPacking:
		return "IntegerPacking"
	case EncDelta:
		return "Delta"
	case EncRunLength:
		return "RunLength"
	case EncFixedPoint:
		return "FixedPoint"
	case EncStringArray:
		return "StringArray"
	default:
		return "unknown"
	}
}

// ByteArray element type codes, as assigned by the upstream format.
const (
	TypeInt8    = 1
	TypeInt16   = 2
	TypeInt32   = 3
	TypeUint8   = 4
	TypeUint16  = 5
	TypeUint32  = 6
	TypeFloat32 = 32
	TypeFloat64 = 33
)

// Encoding is one parsed stage of a column's (or mask's) transform
// chain. Only the fields relevant to Kind are populated.
type Encoding struct {
	Kind   EncKind
	Type   int32 // ByteArray element type code
	Origin int32 // Delta start value
	Factor int32 // FixedPoint divisor

	// StringArray only.
	StringData     []byte
	Offsets        []byte // raw payload, decoded through OffsetEncoding
	DataEncoding   []Encoding
	OffsetEncoding []Encoding
}

// parseEncodingChain reads an array of encoding maps and returns the
// chain in application order: the file lists stages in the order they
// were applied while encoding, so decoders must run them reversed.
func parseEncodingChain(dec *msgpack.Decoder, opts types.ReaderOptions) ([]Encoding, error) {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, types.FormatError("encoding list is not an array", 0)
	}
	if n <= 0 {
		return nil, nil
	}
	chain := make([]Encoding, n)
	for i := 0; i < n; i++ {
		enc, err := parseEncoding(dec, opts)
		if err != nil {
			return nil, err
		}
		// Reverse while filling.
		chain[n-1-i] = enc
	}
	return chain, nil
}

// parseEncoding reads one encoding map. Field order within the map is
// not guaranteed, so every field is collected and kind is validated
// after the map closes. Auxiliary fields outside the recognized set
// (e.g. srcSize hints some writers emit) are skipped.
func parseEncoding(dec *msgpack.Decoder, opts types.ReaderOptions) (Encoding, error) {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return Encoding{}, types.FormatError("encoding entry is not a map", 0)
	}
	var (
		enc      Encoding
		kind     string
		seenKind bool
	)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeString()
		if err != nil {
			return Encoding{}, types.FormatError("bad key in encoding map", 0)
		}
		switch key {
		case "kind":
			kind, err = dec.DecodeString()
			if err != nil {
				return Encoding{}, types.FormatError("encoding kind is not a string", 0)
			}
			seenKind = true
		case "type":
			enc.Type, err = decodeI32(dec, "encoding type")
		case "origin":
			enc.Origin, err = decodeI32(dec, "encoding origin")
		case "factor":
			enc.Factor, err = decodeI32(dec, "encoding factor")
		case "stringData":
			enc.StringData, err = decodeBin(dec, opts, "stringData")
		case "offsets":
			enc.Offsets, err = decodeBin(dec, opts, "offsets")
		case "dataEncoding":
			enc.DataEncoding, err = parseEncodingChain(dec, opts)
		case "offsetEncoding":
			enc.OffsetEncoding, err = parseEncodingChain(dec, opts)
		default:
			err = dec.Skip()
		}
		if err != nil {
			return Encoding{}, err
		}
	}
	if !seenKind {
		return Encoding{}, types.FormatError("encoding without a kind", 0)
	}
	switch kind {
	case "ByteArray":
		enc.Kind = EncByteArray
	case "IntegerPacking":
		enc.Kind = EncIntegerPacking
	case "Delta":
		enc.Kind = EncDelta
	case "RunLength":
		enc.Kind = EncRunLength
	case "FixedPoint":
		enc.Kind = EncFixedPoint
	case "StringArray":
		enc.Kind = EncStringArray
	default:
		return Encoding{}, types.FormatError("unknown encoding kind "+kind, 0)
	}
	return enc, nil
}

func decodeI32(dec *msgpack.Decoder, what string) (int32, error) {
	v, err := dec.DecodeInt32()
	if err != nil {
		return 0, types.FormatError(what+" is not an integer", 0)
	}
	return v, nil
}

// decodeBin reads a bin or str payload, enforcing the configured cell
// size bound.
func decodeBin(dec *msgpack.Decoder, opts types.ReaderOptions, what string) ([]byte, error) {
	code, err := dec.PeekCode()
	if err != nil {
		return nil, types.IOError("reading "+what, err)
	}
	if code == msgpcode.Nil {
		if err := dec.DecodeNil(); err != nil {
			return nil, types.IOError("reading "+what, err)
		}
		return nil, nil
	}
	b, err := dec.DecodeBytes()
	if err != nil {
		return nil, types.FormatError(what+" is not a binary payload", 0)
	}
	if len(b) > opts.MaxCellSize {
		return nil, types.FormatError(what+" exceeds cell size limit", 0)
	}
	return b, nil
}

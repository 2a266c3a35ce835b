// Package bcif implements the BinaryCIF back end: a msgpack object
// reader that locates the dataBlocks array and parses each block's
// category/column tree, the typed decoder pipeline over the six
// recognized column encodings, and the row materializer that projects
// decoded columns into the shared category dispatch protocol.
package bcif

import (
	"io"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/cifkit/cifkit/internal/dispatch"
	"github.com/cifkit/cifkit/internal/obslog"
	"github.com/cifkit/cifkit/pkg/types"
)

// encoded is a raw payload plus the chain that recovers its typed
// vector.
type encoded struct {
	raw   []byte
	chain []Encoding
}

// column is one parsed column of a category: name, data payload, and
// optional presence mask.
type column struct {
	name string
	data encoded
	mask *encoded
}

// category is one parsed category of a data block.
type category struct {
	name     string
	rowCount int // -1 when the category map did not declare one
	columns  []column
}

// Reader consumes the BinaryCIF object stream one data block per
// ReadBlock call.
type Reader struct {
	dec  *msgpack.Decoder
	opts types.ReaderOptions
}

// NewReader layers a msgpack decoder over src (normally an
// instream.Buffer).
func NewReader(src io.Reader, opts types.ReaderOptions) *Reader {
	return &Reader{dec: msgpack.NewDecoder(src), opts: opts.WithDefaults()}
}

// ReadHeader consumes the top-level map up to the dataBlocks key and
// returns the number of blocks its array holds. Header entries before
// it (encoder, version, and whatever else a writer chose to record) are
// skipped.
func (r *Reader) ReadHeader() (int, error) {
	n, err := r.dec.DecodeMapLen()
	if err != nil || n < 0 {
		return 0, types.FormatError("binary input does not start with a map", 0)
	}
	for i := 0; i < n; i++ {
		key, err := r.dec.DecodeString()
		if err != nil {
			return 0, types.FormatError("bad key in file header", 0)
		}
		if key == "dataBlocks" {
			blocks, err := r.dec.DecodeArrayLen()
			if err != nil || blocks < 0 {
				return 0, types.FormatError("dataBlocks is not an array", 0)
			}
			return blocks, nil
		}
		if err := r.skipAny(); err != nil {
			return 0, err
		}
	}
	return 0, types.FormatError("file header has no dataBlocks entry", 0)
}

// ReadBlock consumes one element of the dataBlocks array, decoding and
// dispatching every registered category it contains, then firing
// end-of-block finalize callbacks — the same end-of-block contract the
// text interpreter honors.
func (r *Reader) ReadBlock(disp *dispatch.Dispatcher) error {
	n, err := r.dec.DecodeMapLen()
	if err != nil || n < 0 {
		return types.FormatError("data block is not a map", 0)
	}
	for i := 0; i < n; i++ {
		key, err := r.dec.DecodeString()
		if err != nil {
			return types.FormatError("bad key in data block", 0)
		}
		if key != "categories" {
			if err := r.skipAny(); err != nil {
				return err
			}
			continue
		}
		cats, err := r.dec.DecodeArrayLen()
		if err != nil || cats < 0 {
			return types.FormatError("categories is not an array", 0)
		}
		for c := 0; c < cats; c++ {
			cat, err := r.readCategory()
			if err != nil {
				return err
			}
			reg, ok := disp.Lookup(cat.name)
			if !ok {
				disp.NotifyUnknownCategory(cat.name, 0)
				continue
			}
			obslog.L().Debug("category dispatched", "category", cat.name, "columns", len(cat.columns))
			if err := emitCategory(reg, cat, disp, r.opts); err != nil {
				return err
			}
		}
	}
	return disp.Each(func(cat *dispatch.Category) error {
		return cat.FireFinalize()
	})
}

// readCategory parses one category map into the tree form the decoder
// pipeline consumes.
func (r *Reader) readCategory() (category, error) {
	n, err := r.dec.DecodeMapLen()
	if err != nil || n < 0 {
		return category{}, types.FormatError("category entry is not a map", 0)
	}
	cat := category{rowCount: -1}
	for i := 0; i < n; i++ {
		key, err := r.dec.DecodeString()
		if err != nil {
			return category{}, types.FormatError("bad key in category map", 0)
		}
		switch key {
		case "name":
			cat.name, err = r.dec.DecodeString()
			if err != nil {
				return category{}, types.FormatError("category name is not a string", 0)
			}
		case "rowCount":
			rows, e := decodeI32(r.dec, "rowCount")
			if e != nil {
				return category{}, e
			}
			cat.rowCount = int(rows)
		case "columns":
			cols, e := r.dec.DecodeArrayLen()
			if e != nil || cols < 0 {
				return category{}, types.FormatError("columns is not an array", 0)
			}
			cat.columns = make([]column, 0, cols)
			for c := 0; c < cols; c++ {
				col, e := r.readColumn()
				if e != nil {
					return category{}, e
				}
				cat.columns = append(cat.columns, col)
			}
		default:
			err = r.skipAny()
		}
		if err != nil {
			return category{}, err
		}
	}
	if cat.name == "" {
		return category{}, types.FormatError("category without a name", 0)
	}
	return cat, nil
}

// readColumn parses one column map: name, data payload + chain, and an
// optional mask (nil or absent means every row is present).
func (r *Reader) readColumn() (column, error) {
	n, err := r.dec.DecodeMapLen()
	if err != nil || n < 0 {
		return column{}, types.FormatError("column entry is not a map", 0)
	}
	var col column
	for i := 0; i < n; i++ {
		key, err := r.dec.DecodeString()
		if err != nil {
			return column{}, types.FormatError("bad key in column map", 0)
		}
		switch key {
		case "name":
			col.name, err = r.dec.DecodeString()
			if err != nil {
				return column{}, types.FormatError("column name is not a string", 0)
			}
		case "data":
			col.data, err = r.readEncoded("column data")
		case "mask":
			code, e := r.dec.PeekCode()
			if e != nil {
				return column{}, types.IOError("reading column mask", e)
			}
			if code == msgpcode.Nil {
				err = r.dec.DecodeNil()
				break
			}
			var mask encoded
			mask, err = r.readEncoded("column mask")
			if err == nil {
				col.mask = &mask
			}
		default:
			err = r.skipAny()
		}
		if err != nil {
			return column{}, err
		}
	}
	if col.name == "" {
		return column{}, types.FormatError("column without a name", 0)
	}
	return col, nil
}

// readEncoded parses a { data: bin, encoding: [...] } pair.
func (r *Reader) readEncoded(what string) (encoded, error) {
	n, err := r.dec.DecodeMapLen()
	if err != nil || n < 0 {
		return encoded{}, types.FormatError(what+" is not a map", 0)
	}
	var enc encoded
	for i := 0; i < n; i++ {
		key, err := r.dec.DecodeString()
		if err != nil {
			return encoded{}, types.FormatError("bad key in "+what, 0)
		}
		switch key {
		case "data":
			enc.raw, err = decodeBin(r.dec, r.opts, what)
		case "encoding":
			enc.chain, err = parseEncodingChain(r.dec, r.opts)
		default:
			err = r.skipAny()
		}
		if err != nil {
			return encoded{}, err
		}
	}
	return enc, nil
}

// skipAny discards the next value, recursing through arrays and maps,
// and translates a short read into the module's IO error kind.
func (r *Reader) skipAny() error {
	if err := r.dec.Skip(); err != nil {
		return types.IOError("skipping value", err)
	}
	return nil
}

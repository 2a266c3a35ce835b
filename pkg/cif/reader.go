package cif

import (
	"io"

	"github.com/cifkit/cifkit/internal/bcif"
	"github.com/cifkit/cifkit/internal/dispatch"
	"github.com/cifkit/cifkit/internal/instream"
	"github.com/cifkit/cifkit/internal/obslog"
	"github.com/cifkit/cifkit/internal/text"
	"github.com/cifkit/cifkit/pkg/types"
)

// Reader drives one of the two wire formats block by block, delivering
// registered categories' rows to their callbacks. A Reader is not safe
// for concurrent use and is not reentrant: a callback must not itself
// drive the reader.
type Reader struct {
	mode Mode
	opts ReaderOptions
	disp *dispatch.Dispatcher

	interp *text.Interpreter // text mode
	bin    *bcif.Reader      // binary mode

	blocksRemaining int // binary: -1 until the header has been read
	failed          error
	closed          bool
}

// NewReader wraps src in a reader for the given wire format. The source
// is pulled in chunks (see ReaderOptions.RefillSize); any io.Reader
// works, including files, in-memory buffers, and decompression streams.
func NewReader(src io.Reader, mode Mode, opts ReaderOptions) (*Reader, error) {
	if src == nil {
		return nil, types.ValueError("nil source")
	}
	if mode != ModeText && mode != ModeBinary {
		return nil, types.ValueError("invalid mode")
	}
	opts = opts.WithDefaults()
	r := &Reader{
		mode:            mode,
		opts:            opts,
		disp:            dispatch.New(),
		blocksRemaining: -1,
	}
	stream := instream.New(src, opts)
	if mode == ModeText {
		r.interp = text.NewInterpreter(text.NewTokenizer(stream), r.disp)
	} else {
		r.bin = bcif.NewReader(stream, opts)
	}
	return r, nil
}

// NewTextReader returns a reader for the textual mmCIF grammar.
func NewTextReader(src io.Reader, opts ReaderOptions) (*Reader, error) {
	return NewReader(src, ModeText, opts)
}

// NewBinaryReader returns a reader for the BinaryCIF grammar.
func NewBinaryReader(src io.Reader, opts ReaderOptions) (*Reader, error) {
	return NewReader(src, ModeBinary, opts)
}

// RegisterCategory registers a category by case-insensitive name.
// Registering a name again replaces the prior registration, releasing
// its state. Registrations persist across ReadBlock calls until
// ClearCategories or Close.
func (r *Reader) RegisterCategory(name string, row RowFunc, endFrame EndFrameFunc, finalize FinalizeFunc, state any, release ReleaseFunc) CatHandle {
	return r.disp.RegisterCategory(name, row, endFrame, finalize, state, release)
}

// RegisterKeyword adds a keyword to a registered category. Text-mode
// cells are always strings; declaring CellInt or CellFloat on a text
// reader is rejected.
func (r *Reader) RegisterKeyword(h CatHandle, name string, cellType CellType) error {
	if r.mode == ModeText && cellType != CellString {
		return types.ValueError("text mode keywords must be string-typed")
	}
	r.disp.RegisterKeyword(h, name, cellType)
	return nil
}

// SetUnknownCategoryCallback installs the notification fired the first
// time the input references a category that was never registered.
func (r *Reader) SetUnknownCategoryCallback(fn UnknownCategoryFunc) {
	r.disp.SetUnknownCategoryCallback(fn)
}

// SetUnknownKeywordCallback installs the notification fired the first
// time the input references an unregistered keyword of a registered
// category.
func (r *Reader) SetUnknownKeywordCallback(fn UnknownKeywordFunc) {
	r.disp.SetUnknownKeywordCallback(fn)
}

// ClearCategories releases all registered state and drops every
// registration and unknown-site callback.
func (r *Reader) ClearCategories() {
	r.disp.ClearCategories()
}

// ReadBlock advances through one data block, firing callbacks for every
// registered category it contains. more reports whether another block
// follows. Once ReadBlock has returned an error the reader is failed:
// further calls return the same error and the caller should discard it.
func (r *Reader) ReadBlock() (more bool, err error) {
	if r.closed {
		return false, types.ValueError("reader is closed")
	}
	if r.failed != nil {
		return false, r.failed
	}
	obslog.L().Debug("reading block", "mode", r.mode.String())
	if r.mode == ModeText {
		more, err = r.interp.ReadBlock()
	} else {
		more, err = r.readBinaryBlock()
	}
	if err != nil {
		r.failed = err
	}
	return more, err
}

func (r *Reader) readBinaryBlock() (bool, error) {
	if r.blocksRemaining < 0 {
		n, err := r.bin.ReadHeader()
		if err != nil {
			return false, err
		}
		r.blocksRemaining = n
	}
	if r.blocksRemaining == 0 {
		return false, nil
	}
	if err := r.bin.ReadBlock(r.disp); err != nil {
		return false, err
	}
	r.blocksRemaining--
	return r.blocksRemaining > 0, nil
}

// Close releases the reader's buffers and runs every registered
// category's release hook. The reader is unusable afterwards.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.disp.ClearCategories()
	r.interp = nil
	r.bin = nil
	return nil
}

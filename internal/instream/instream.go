// Package instream implements a sliding byte buffer: a chunked pull
// from an opaque io.Reader into a single growable buffer, exposing line
// extraction for text mode and exact-length slicing for binary mode.
package instream

import (
	"io"

	"github.com/cifkit/cifkit/internal/buf"
	"github.com/cifkit/cifkit/pkg/types"
)

// Buffer pulls bytes from a source reader on demand and exposes two
// primitives: ReadLine (text mode) and ReadExact (binary mode). Bytes
// before the oldest byte still referenced by an outstanding token are
// discarded by a compacting move before each refill, so a caller must
// treat a returned slice as valid only until the next ReadLine/ReadExact
// call.
type Buffer struct {
	src    io.Reader
	opts   types.ReaderOptions
	data   []byte
	pos    int // next unscanned byte ("next_line_start")
	start  int // oldest byte still referenced ("line_start")
	filled int // number of valid bytes in data
	eof    bool
	lineNo int
}

// New wraps src in a sliding buffer configured by opts.
func New(src io.Reader, opts types.ReaderOptions) *Buffer {
	opts = opts.WithDefaults()
	return &Buffer{
		src:  src,
		opts: opts,
		data: make([]byte, opts.RefillSize),
	}
}

// LineNo returns the 1-based line number most recently returned by ReadLine.
func (b *Buffer) LineNo() int { return b.lineNo }

// ReadLine returns the next line, with its terminator stripped. Recognized
// terminators are "\n", "\r", "\r\n", and NUL. Returns io.EOF once the
// source is exhausted and no partial line remains. The returned slice
// aliases the internal buffer and is valid only until the next call to
// ReadLine or ReadExact.
func (b *Buffer) ReadLine() ([]byte, error) {
	b.start = b.pos
	for {
		region := b.data[b.pos:b.filled]
		matched, term := scanTerminator(region, b.eof)
		if matched < 0 && len(region) > b.opts.MaxLineLength {
			return nil, types.FormatError("line exceeds maximum length", b.lineNo+1)
		}
		switch {
		case matched >= 0:
			line := region[:matched]
			b.pos += matched + term
			b.lineNo++
			if len(line) > b.opts.MaxLineLength {
				return nil, types.FormatError("line exceeds maximum length", b.lineNo)
			}
			return line, nil
		case matched == noTerminatorEOF && b.eof:
			if len(region) == 0 {
				return nil, io.EOF
			}
			b.pos = b.filled
			b.lineNo++
			return region, nil
		}
		if err := b.ensure(len(region) + 1); err != nil {
			return nil, err
		}
	}
}

// Read implements io.Reader over the buffered content, serving bytes
// already pulled into the sliding buffer before refilling from the
// source. This is the face the binary object reader consumes: it layers
// a msgpack decoder on top without bypassing the buffer.
func (b *Buffer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if b.pos >= b.filled {
		b.start = b.pos
		if err := b.ensure(1); err != nil {
			return 0, err
		}
		if b.filled == b.pos {
			return 0, io.EOF
		}
	}
	n := copy(p, b.data[b.pos:b.filled])
	b.pos += n
	b.start = b.pos
	return n, nil
}

// ReadExact returns exactly n bytes (binary mode). Fails with an IO error
// if the source ends before n bytes become available. The returned slice
// aliases the internal buffer and is valid only until the next call to
// ReadLine or ReadExact.
func (b *Buffer) ReadExact(n int) ([]byte, error) {
	b.start = b.pos
	if err := b.ensure(n); err != nil {
		return nil, err
	}
	out, ok := buf.Slice(b.data[:b.filled], b.pos, n)
	if !ok {
		return nil, types.IOError("unexpected end of input", io.ErrUnexpectedEOF)
	}
	b.pos += n
	return out, nil
}

const noTerminatorEOF = -1
const ambiguousCR = -2

// scanTerminator looks for a line terminator in region. It returns the
// index of the terminator and its byte length, noTerminatorEOF if none was
// found and the caller should treat a trailing partial line as the final
// line (only meaningful once eof is true), or ambiguousCR when region ends
// in a bare '\r' and more data is needed to know whether it is followed by
// '\n'.
func scanTerminator(region []byte, eof bool) (idx, term int) {
	for i := 0; i < len(region); i++ {
		switch region[i] {
		case '\n', 0:
			return i, 1
		case '\r':
			if i+1 < len(region) {
				if region[i+1] == '\n' {
					return i, 2
				}
				return i, 1
			}
			if eof {
				return i, 1
			}
			return ambiguousCR, 0
		}
	}
	return noTerminatorEOF, 0
}

// ensure guarantees at least need unread bytes are available past pos,
// compacting and refilling from the source as necessary. It is a no-op
// once the source is exhausted and the buffer already holds everything
// there is to hold.
func (b *Buffer) ensure(need int) error {
	for b.filled-b.pos < need && !b.eof {
		b.compact()
		b.grow(need)
		n, err := b.pull()
		b.filled += n
		if err == io.EOF {
			b.eof = true
			continue
		}
		if err != nil {
			return types.IOError("reading input", err)
		}
	}
	return nil
}

// compact discards bytes before start (no longer referenced by any
// outstanding token) by shifting the live region to the front of data.
func (b *Buffer) compact() {
	if b.start == 0 {
		return
	}
	n := copy(b.data, b.data[b.start:b.filled])
	b.filled = n
	b.pos -= b.start
	b.start = 0
}

// grow enlarges data, if necessary, so at least opts.RefillSize bytes (or
// need, if larger) can be appended after filled.
func (b *Buffer) grow(need int) {
	target := b.opts.RefillSize
	if need > target {
		target = need
	}
	if len(b.data)-b.filled >= target {
		return
	}
	grown := make([]byte, b.filled+target)
	copy(grown, b.data[:b.filled])
	b.data = grown
}

// pull issues a single Read call into the free tail of data, returning the
// number of bytes it delivered. A Read that reports (0, nil) is retried
// once rather than treated as a spurious EOF, per io.Reader's contract
// that a zero-length read without error is legal but discouraged.
func (b *Buffer) pull() (int, error) {
	for attempts := 0; attempts < 2; attempts++ {
		n, err := b.src.Read(b.data[b.filled:])
		if n > 0 || err != nil {
			return n, err
		}
	}
	return 0, nil
}

package instream

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cifkit/cifkit/pkg/types"
)

func TestReadLineTerminators(t *testing.T) {
	src := strings.NewReader("alpha\nbeta\r\ngamma\rdelta\x00epsilon")
	b := New(src, types.ReaderOptions{RefillSize: 4})

	want := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for _, w := range want {
		line, err := b.ReadLine()
		require.NoError(t, err)
		require.Equal(t, w, string(line))
	}
	_, err := b.ReadLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadLineSplitCRLFAcrossRefill(t *testing.T) {
	// Force a refill boundary to fall exactly between \r and \n.
	src := strings.NewReader("ab\r\ncd")
	b := New(src, types.ReaderOptions{RefillSize: 3})

	line, err := b.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "ab", string(line))

	line, err = b.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "cd", string(line))
}

func TestReadLineNoTrailingTerminator(t *testing.T) {
	b := New(strings.NewReader("onlyline"), types.ReaderOptions{RefillSize: 2})
	line, err := b.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "onlyline", string(line))
	_, err = b.ReadLine()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadExact(t *testing.T) {
	b := New(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}), types.ReaderOptions{RefillSize: 2})
	got, err := b.ReadExact(4)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, got)
	got, err = b.ReadExact(2)
	require.NoError(t, err)
	require.Equal(t, []byte{5, 6}, got)
	_, err = b.ReadExact(1)
	require.Error(t, err)
	var cifErr *types.Error
	require.ErrorAs(t, err, &cifErr)
	require.Equal(t, types.ErrKindIO, cifErr.Kind)
}

type partialReader struct {
	chunks [][]byte
	i      int
}

func (p *partialReader) Read(dst []byte) (int, error) {
	if p.i >= len(p.chunks) {
		return 0, io.EOF
	}
	n := copy(dst, p.chunks[p.i])
	p.i++
	return n, nil
}

func TestReadExactAcrossMultipleReads(t *testing.T) {
	src := &partialReader{chunks: [][]byte{{1, 2}, {3}, {4, 5, 6}}}
	b := New(src, types.ReaderOptions{RefillSize: 8})
	got, err := b.ReadExact(6)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, got)
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReadLinePropagatesIOError(t *testing.T) {
	b := New(errReader{}, types.ReaderOptions{})
	_, err := b.ReadLine()
	require.Error(t, err)
	var cifErr *types.Error
	require.ErrorAs(t, err, &cifErr)
	require.Equal(t, types.ErrKindIO, cifErr.Kind)
}

func TestReadServesBufferedBytesFirst(t *testing.T) {
	b := New(strings.NewReader("abcdef"), types.ReaderOptions{RefillSize: 4})
	// Pull some bytes into the buffer through ReadExact, then drain the
	// rest through the io.Reader face.
	got, err := b.ReadExact(2)
	require.NoError(t, err)
	require.Equal(t, "ab", string(got))

	rest, err := io.ReadAll(io.Reader(b))
	require.NoError(t, err)
	require.Equal(t, "cdef", string(rest))

	n, err := b.Read(make([]byte, 4))
	require.Zero(t, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadLineMaxLengthExceeded(t *testing.T) {
	b := New(strings.NewReader(strings.Repeat("x", 100)+"\n"), types.ReaderOptions{MaxLineLength: 10, RefillSize: 4})
	_, err := b.ReadLine()
	require.Error(t, err)
	var cifErr *types.Error
	require.ErrorAs(t, err, &cifErr)
	require.Equal(t, types.ErrKindFormat, cifErr.Kind)
}

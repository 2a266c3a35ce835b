package cif

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/cifkit/cifkit/pkg/types"
)

// recordedRow is a callback observation flattened for comparison across
// the two wire formats.
type recordedRow struct {
	category string
	cells    map[string]string // keyword -> value, "." for omitted, "?" for unknown
}

func recordRows(t *testing.T, r *Reader, categories map[string][]string) *[]recordedRow {
	t.Helper()
	rows := &[]recordedRow{}
	for cat, kws := range categories {
		cat := cat
		h := r.RegisterCategory(cat, func(_ any, row RowView) error {
			rec := recordedRow{category: cat, cells: map[string]string{}}
			for _, s := range row.Slots {
				switch {
				case s.Omitted:
					rec.cells[s.Name] = "."
				case s.Unknown:
					rec.cells[s.Name] = "?"
				case s.InFile:
					rec.cells[s.Name] = s.Str
				}
			}
			*rows = append(*rows, rec)
			return nil
		}, nil, nil, nil, nil)
		for _, kw := range kws {
			require.NoError(t, r.RegisterKeyword(h, kw, CellString))
		}
	}
	return rows
}

func readToEnd(t *testing.T, r *Reader) {
	t.Helper()
	for {
		more, err := r.ReadBlock()
		require.NoError(t, err)
		if !more {
			return
		}
	}
}

func TestTextReaderEndToEnd(t *testing.T) {
	src := "data_x\n_entry.id   1YTI\nloop_\n_atom.name\n_atom.z\nCA 6\nN .\n"
	r, err := NewTextReader(strings.NewReader(src), ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	rows := recordRows(t, r, map[string][]string{
		"_entry": {"id"},
		"_atom":  {"name", "z"},
	})
	readToEnd(t, r)

	require.Equal(t, []recordedRow{
		{category: "_atom", cells: map[string]string{"name": "CA", "z": "6"}},
		{category: "_atom", cells: map[string]string{"name": "N", "z": "."}},
		{category: "_entry", cells: map[string]string{"id": "1YTI"}},
	}, *rows)
}

func TestTextModeRejectsTypedKeywords(t *testing.T) {
	r, err := NewTextReader(strings.NewReader("data_x\n"), ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	h := r.RegisterCategory("_t", nil, nil, nil, nil, nil)
	err = r.RegisterKeyword(h, "a", CellInt)
	var cerr *types.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, types.ErrKindValue, cerr.Kind)
	require.NoError(t, r.RegisterKeyword(h, "a", CellString))
}

func TestReaderFailsStickyAfterParseError(t *testing.T) {
	r, err := NewTextReader(strings.NewReader("data_x\n_t.a 'oops\n"), ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	h := r.RegisterCategory("_t", nil, nil, nil, nil, nil)
	require.NoError(t, r.RegisterKeyword(h, "a", CellString))

	_, err = r.ReadBlock()
	require.Error(t, err)
	_, again := r.ReadBlock()
	require.Equal(t, err, again)
}

func TestCallbackErrorPropagatesUnchanged(t *testing.T) {
	boom := errors.New("boom")
	r, err := NewTextReader(strings.NewReader("data_x\n_t.a 1\n"), ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()

	h := r.RegisterCategory("_t", func(any, RowView) error { return boom }, nil, nil, nil, nil)
	require.NoError(t, r.RegisterKeyword(h, "a", CellString))

	_, err = r.ReadBlock()
	require.ErrorIs(t, err, boom)
	var cerr *types.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, types.ErrKindCallback, cerr.Kind)
	require.Equal(t, "boom", cerr.Msg)
}

func TestCloseRunsReleaseHooks(t *testing.T) {
	r, err := NewTextReader(strings.NewReader("data_x\n"), ReaderOptions{})
	require.NoError(t, err)

	released := false
	r.RegisterCategory("_t", nil, nil, nil, "state", func(state any) {
		released = true
	})
	require.NoError(t, r.Close())
	require.True(t, released)

	_, err = r.ReadBlock()
	var cerr *types.Error
	require.ErrorAs(t, err, &cerr)
	require.Equal(t, types.ErrKindValue, cerr.Kind)
}

// binaryFixture encodes the same logical content as textFixture: two
// categories, one with a masked cell, using StringArray columns so the
// delivered cells are strings in both formats.
const textFixture = "data_x\n" +
	"_entry.id 1YTI\n" +
	"loop_\n_atom.name\n_atom.z\n" +
	"CA 6\n" +
	"N ?\n" +
	"O .\n"

func i32LE(values ...int32) []byte {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], uint32(v))
	}
	return raw
}

func stringColumn(name, pool string, offsets, indices []int32, mask []byte) map[string]any {
	col := map[string]any{
		"name": name,
		"data": map[string]any{
			"data": i32LE(indices...),
			"encoding": []any{map[string]any{
				"kind":           "StringArray",
				"stringData":     []byte(pool),
				"offsets":        i32LE(offsets...),
				"offsetEncoding": []any{map[string]any{"kind": "ByteArray", "type": 3}},
				"dataEncoding":   []any{map[string]any{"kind": "ByteArray", "type": 3}},
			}},
		},
		"mask": nil,
	}
	if mask != nil {
		col["mask"] = map[string]any{
			"data":     mask,
			"encoding": []any{map[string]any{"kind": "ByteArray", "type": 4}},
		}
	}
	return col
}

func binaryFixture(t *testing.T) []byte {
	t.Helper()
	file, err := msgpack.Marshal(map[string]any{
		"encoder": "cifkit-test",
		"version": "0.3.0",
		"dataBlocks": []any{map[string]any{
			"header": "x",
			"categories": []any{
				map[string]any{
					"name":    "_entry",
					"columns": []any{stringColumn("id", "1YTI", []int32{0, 4}, []int32{0}, nil)},
				},
				map[string]any{
					"name": "_atom",
					"columns": []any{
						stringColumn("name", "CANO", []int32{0, 2, 3, 4}, []int32{0, 1, 2}, nil),
						stringColumn("z", "6", []int32{0, 1}, []int32{0, 0, 0}, []byte{0, 2, 1}),
					},
				},
			},
		}},
	})
	require.NoError(t, err)
	return file
}

// The same logical content encoded as text and as binary produces
// identical row-callback sequences.
func TestBinaryTextParity(t *testing.T) {
	categories := map[string][]string{
		"_entry": {"id"},
		"_atom":  {"name", "z"},
	}

	tr, err := NewTextReader(strings.NewReader(textFixture), ReaderOptions{})
	require.NoError(t, err)
	defer tr.Close()
	textRows := recordRows(t, tr, categories)
	readToEnd(t, tr)

	br, err := NewBinaryReader(bytes.NewReader(binaryFixture(t)), ReaderOptions{})
	require.NoError(t, err)
	defer br.Close()
	binRows := recordRows(t, br, categories)
	readToEnd(t, br)

	require.ElementsMatch(t, *textRows, *binRows)
	// Within one category, rows arrive in file order in both formats.
	filterCat := func(rows []recordedRow, cat string) []recordedRow {
		var out []recordedRow
		for _, r := range rows {
			if r.category == cat {
				out = append(out, r)
			}
		}
		return out
	}
	require.Equal(t, filterCat(*textRows, "_atom"), filterCat(*binRows, "_atom"))
}

func TestBinaryMultipleBlocks(t *testing.T) {
	file, err := msgpack.Marshal(map[string]any{
		"dataBlocks": []any{
			map[string]any{"categories": []any{map[string]any{
				"name":    "_t",
				"columns": []any{stringColumn("a", "one", []int32{0, 3}, []int32{0}, nil)},
			}}},
			map[string]any{"categories": []any{map[string]any{
				"name":    "_t",
				"columns": []any{stringColumn("a", "two", []int32{0, 3}, []int32{0}, nil)},
			}}},
		},
	})
	require.NoError(t, err)

	r, err := NewBinaryReader(bytes.NewReader(file), ReaderOptions{})
	require.NoError(t, err)
	defer r.Close()
	rows := recordRows(t, r, map[string][]string{"_t": {"a"}})

	more, err := r.ReadBlock()
	require.NoError(t, err)
	require.True(t, more)
	require.Len(t, *rows, 1)
	require.Equal(t, "one", (*rows)[0].cells["a"])

	more, err = r.ReadBlock()
	require.NoError(t, err)
	require.False(t, more)
	require.Len(t, *rows, 2)
	require.Equal(t, "two", (*rows)[1].cells["a"])
}

func TestInspectText(t *testing.T) {
	got, err := Inspect([]byte(textFixture), ModeText, ReaderOptions{})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"_entry": {"id"},
		"_atom":  {"name", "z"},
	}, got)
}

func TestInspectBinary(t *testing.T) {
	got, err := Inspect(binaryFixture(t), ModeBinary, ReaderOptions{})
	require.NoError(t, err)
	require.Equal(t, map[string][]string{
		"_entry": {"id"},
		"_atom":  {"name", "z"},
	}, got)
}

func TestDumpText(t *testing.T) {
	got, err := Dump([]byte(textFixture), ModeText, ReaderOptions{})
	require.NoError(t, err)
	require.Equal(t, []map[string]any{{"id": "1YTI"}}, got["_entry"])
	require.Equal(t, []map[string]any{
		{"name": "CA", "z": "6"},
		{"name": "N", "z": "?"},
		{"name": "O", "z": "."},
	}, got["_atom"])
}

func TestDumpBinaryMatchesText(t *testing.T) {
	text, err := Dump([]byte(textFixture), ModeText, ReaderOptions{})
	require.NoError(t, err)
	bin, err := Dump(binaryFixture(t), ModeBinary, ReaderOptions{})
	require.NoError(t, err)
	require.Equal(t, text, bin)
}

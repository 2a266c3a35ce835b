package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaseInsensitiveLookup(t *testing.T) {
	tbl := New[int]()
	tbl.Put("_Foo.Bar", 1)
	tbl.Put("_atom_site.id", 2)
	tbl.Put("_ATOM_SITE.TYPE_SYMBOL", 3)

	for _, name := range []string{"_foo.bar", "_FOO.BAR", "_Foo.Bar", "_fOO.bAR"} {
		v, ok := tbl.Get(name)
		require.True(t, ok, name)
		require.Equal(t, 1, v)
	}

	v, ok := tbl.Get("_atom_site.ID")
	require.True(t, ok)
	require.Equal(t, 2, v)

	_, ok = tbl.Get("_missing.keyword")
	require.False(t, ok)
}

func TestPutReplacesPriorRegistration(t *testing.T) {
	tbl := New[string]()
	tbl.Put("_cat.key", "first")
	tbl.Put("_CAT.KEY", "second")

	require.Equal(t, 1, tbl.Len())
	v, ok := tbl.Get("_cat.key")
	require.True(t, ok)
	require.Equal(t, "second", v)
}

func TestLookupAfterInterleavedPuts(t *testing.T) {
	tbl := New[int]()
	names := []string{"_zeta", "_alpha", "_mu", "_beta", "_omega"}
	for i, n := range names {
		tbl.Put(n, i)
	}
	for i, n := range names {
		v, ok := tbl.Get(n)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestEachVisitsInSortedOrder(t *testing.T) {
	tbl := New[int]()
	tbl.Put("_zeta", 0)
	tbl.Put("_alpha", 1)
	tbl.Put("_mu", 2)

	var seen []string
	tbl.Each(func(name string, _ int) {
		seen = append(seen, name)
	})
	require.Equal(t, []string{"_alpha", "_mu", "_zeta"}, seen)
}

func TestResetClearsEntries(t *testing.T) {
	tbl := New[int]()
	tbl.Put("_a", 1)
	tbl.Put("_b", 2)
	tbl.Reset()
	require.Equal(t, 0, tbl.Len())
	_, ok := tbl.Get("_a")
	require.False(t, ok)
}

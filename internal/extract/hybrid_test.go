package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeOf(start, end int) opcatalog.ByteRange {
	return opcatalog.ByteRange{Start: start, End: end}
}

func fixtureReader(files map[string][]byte) FileReader {
	return func(path string) ([]byte, error) {
		content, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such fixture: %s", path)
		}
		return content, nil
	}
}

func TestHybridDriver_Run_BuildsCatalog(t *testing.T) {
	files := map[string][]byte{
		"a.ts": []byte("const Q = gql`query Q { venture(id:\"1\"){ id } }`;\n"),
	}

	driver := NewHybridDriver(DefaultOptions(), "pluck", NewMemoryCache())
	catalog, diags, err := driver.Run(context.Background(), []string{"a.ts"}, fixtureReader(files))

	require.NoError(t, err)
	assert.Empty(t, diags)

	ops := catalog.All()
	require.Len(t, ops, 1)
	assert.Equal(t, "Q", ops[0].Name)
	assert.Equal(t, "a.ts", ops[0].HostFile)
}

func TestHybridDriver_Run_DeduplicatesById(t *testing.T) {
	files := map[string][]byte{
		"a.ts": []byte("gql`query GetUser { user { id } }`"),
		"b.ts": []byte("gql`query GetUser { user { id } }`"),
	}

	driver := NewHybridDriver(DefaultOptions(), "pluck", NewMemoryCache())
	catalog, _, err := driver.Run(context.Background(), []string{"a.ts", "b.ts"}, fixtureReader(files))
	require.NoError(t, err)

	assert.Len(t, catalog.All(), 1)
}

func TestHybridDriver_Run_NameCollisionDifferentContent(t *testing.T) {
	files := map[string][]byte{
		"a.ts": []byte("gql`query GetUser { user { id } }`"),
		"b.ts": []byte("gql`query GetUser { user { id name } }`"),
	}

	driver := NewHybridDriver(DefaultOptions(), "pluck", NewMemoryCache())
	catalog, _, err := driver.Run(context.Background(), []string{"a.ts", "b.ts"}, fixtureReader(files))
	require.NoError(t, err)

	ops := catalog.All()
	require.Len(t, ops, 2)
	// Both keep their literal name "GetUser" at this stage; suffixing is
	// the Name Normalizer's job, exercised in internal/normalize.
	assert.Equal(t, "GetUser", ops[0].Name)
	assert.Equal(t, "GetUser", ops[1].Name)
	assert.NotEqual(t, ops[0].Id, ops[1].Id)
}

func TestHybridDriver_Run_ReadErrorBecomesDiagnostic(t *testing.T) {
	driver := NewHybridDriver(DefaultOptions(), "pluck", NewMemoryCache())
	catalog, diags, err := driver.Run(context.Background(), []string{"missing.ts"}, fixtureReader(nil))

	require.NoError(t, err)
	assert.Empty(t, catalog.All())
	require.Len(t, diags, 1)
	assert.Equal(t, "extract.io", diags[0].Code)
}

func TestHybridDriver_Run_PopulatesCache(t *testing.T) {
	files := map[string][]byte{
		"a.ts": []byte("gql`query Q { venture { id } }`"),
	}
	cache := NewMemoryCache()
	driver := NewHybridDriver(DefaultOptions(), "pluck", cache)

	_, _, err := driver.Run(context.Background(), []string{"a.ts"}, fixtureReader(files))
	require.NoError(t, err)

	key := CacheKey(files["a.ts"], "pluck")
	cached, ok := cache.Get(key)
	require.True(t, ok)
	require.Len(t, cached, 1)
}

func TestMergeHits_PrefersRicherInterpolationMetadata(t *testing.T) {
	pluckHit := Extracted{HostRange: rangeOf(0, 10)}
	astHit := Extracted{
		HostRange:      rangeOf(0, 10),
		Interpolations: []opcatalog.InterpolationSite{{Offset: 1}},
	}

	merged := mergeHits([]Extracted{pluckHit}, []Extracted{astHit})
	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Interpolations, 1)
}

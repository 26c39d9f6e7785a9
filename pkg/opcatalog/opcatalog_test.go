package opcatalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeId_WhitespaceInsensitive(t *testing.T) {
	a := ComputeId("query Q { venture { id } }")
	b := ComputeId("query Q {\n  venture {\n    id\n  }\n}")
	assert.Equal(t, a, b, "ids must depend only on normalized text")
}

func TestComputeId_DifferentContentDifferentId(t *testing.T) {
	a := ComputeId("query GetUser { user { id } }")
	b := ComputeId("query GetUser { user { id name } }")
	assert.NotEqual(t, a, b)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  a   b\tc\n\nd  ", "a b c d"},
		{"no-change", "no-change"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in))
	}
}

func TestCatalog_PutAndGet(t *testing.T) {
	cat := NewCatalog()

	op := &Operation{Id: "abc", Name: "Q", HostFile: "a.ts"}
	mapping := &SourceMapping{OperationId: "abc", HostFile: "a.ts", HostRange: ByteRange{Start: 0, End: 10}}

	cat.Put(op, mapping)

	got := cat.Get("abc")
	require.NotNil(t, got)
	assert.Equal(t, "Q", got.Name)

	gotMapping := cat.Mapping("abc")
	require.NotNil(t, gotMapping)
	assert.Equal(t, ByteRange{Start: 0, End: 10}, gotMapping.HostRange)

	assert.Nil(t, cat.Get("missing"))
}

func TestCatalog_ByFilePreservesInsertionOrder(t *testing.T) {
	cat := NewCatalog()
	cat.Put(&Operation{Id: "2", HostFile: "a.ts"}, &SourceMapping{OperationId: "2"})
	cat.Put(&Operation{Id: "1", HostFile: "a.ts"}, &SourceMapping{OperationId: "1"})

	ops := cat.ByFile("a.ts")
	require.Len(t, ops, 2)
	assert.Equal(t, "2", ops[0].Id)
	assert.Equal(t, "1", ops[1].Id)
}

func TestCatalog_AllSortedDeterministically(t *testing.T) {
	cat := NewCatalog()
	cat.Put(&Operation{Id: "z", HostFile: "b.ts"}, &SourceMapping{OperationId: "z"})
	cat.Put(&Operation{Id: "a", HostFile: "a.ts"}, &SourceMapping{OperationId: "a"})
	cat.Put(&Operation{Id: "b", HostFile: "a.ts"}, &SourceMapping{OperationId: "b"})

	all := cat.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a.ts", "a.ts", "b.ts"}, []string{all[0].HostFile, all[1].HostFile, all[2].HostFile})
	assert.Equal(t, "a", all[0].Id)
	assert.Equal(t, "b", all[1].Id)
}

func TestCatalog_Rename(t *testing.T) {
	cat := NewCatalog()
	cat.Put(&Operation{Id: "abc", Name: "Foo"}, &SourceMapping{OperationId: "abc"})
	cat.Rename("abc", "Foo_1")
	assert.Equal(t, "Foo_1", cat.Get("abc").Name)
}

func TestCatalog_FragmentRoundTrip(t *testing.T) {
	cat := NewCatalog()
	cat.PutFragment(&Fragment{Name: "ventureFields", RawText: "fragment ventureFields on Venture { id }"})

	f := cat.Fragment("ventureFields")
	require.NotNil(t, f)
	assert.Equal(t, "fragment ventureFields on Venture { id }", f.RawText)
	assert.Nil(t, cat.Fragment("missing"))
}

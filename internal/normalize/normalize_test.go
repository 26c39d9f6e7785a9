package normalize

import (
	"testing"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func mustParse(t *testing.T, text string) *ast.QueryDocument {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: text})
	require.Nil(t, err)
	return doc
}

func putOperation(t *testing.T, catalog *opcatalog.Catalog, file string, offset int, text string, name string, site *opcatalog.InterpolationSite) *opcatalog.Operation {
	t.Helper()
	doc := mustParse(t, text)
	op := &opcatalog.Operation{
		Id:        opcatalog.ComputeId(text),
		Kind:      opcatalog.KindQuery,
		Name:      name,
		RawText:   text,
		AST:       doc,
		HostFile:  file,
		HostRange: opcatalog.ByteRange{Start: offset, End: offset + len(text)},
	}
	if site != nil {
		op.Interpolations = []opcatalog.InterpolationSite{*site}
	}
	catalog.Put(op, &opcatalog.SourceMapping{OperationId: op.Id, HostFile: file, HostRange: op.HostRange})
	return op
}

func TestNormalizer_LiteralNameWins(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	op := putOperation(t, catalog, "a.ts", 0, "query GetVenture { venture { id } }", "GetVenture", nil)

	n := NewNormalizer(nil)
	diags := n.Normalize(catalog)

	assert.Empty(t, diags)
	assert.Equal(t, "GetVenture", catalog.Get(op.Id).Name)
}

func TestNormalizer_DictionaryLookup(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	site := &opcatalog.InterpolationSite{Kind: opcatalog.InterpolationQueryName, Text: "names.venture"}
	op := putOperation(t, catalog, "a.ts", 0, "query PhQueryName0 { venture { id } }", "PhQueryName0", site)

	n := NewNormalizer(map[string]string{"names.venture": "GetVenture"})
	diags := n.Normalize(catalog)

	assert.Empty(t, diags)
	assert.Equal(t, "GetVenture", catalog.Get(op.Id).Name)
}

func TestNormalizer_TernaryResolvesToTrueBranch(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	site := &opcatalog.InterpolationSite{Kind: opcatalog.InterpolationQueryName, Text: `isLegacy ? 'LegacyVenture' : 'Venture'`}
	op := putOperation(t, catalog, "a.ts", 0, "query PhQueryName0 { venture { id } }", "PhQueryName0", site)

	n := NewNormalizer(nil)
	diags := n.Normalize(catalog)

	assert.Empty(t, diags)
	assert.Equal(t, "LegacyVenture", catalog.Get(op.Id).Name)
}

func TestNormalizer_UnresolvedFallsBackToFirstFieldAndWarns(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	site := &opcatalog.InterpolationSite{Kind: opcatalog.InterpolationQueryName, Text: "names.ventur"}
	op := putOperation(t, catalog, "a.ts", 0, "query PhQueryName0 { venture { id } }", "PhQueryName0", site)

	n := NewNormalizer(map[string]string{"names.venture": "GetVenture"})
	diags := n.Normalize(catalog)

	require.Len(t, diags, 1)
	assert.Equal(t, "name.unresolved", diags[0].Code)
	assert.Contains(t, diags[0].Message, "names.venture")
	assert.Equal(t, "venture", catalog.Get(op.Id).Name)
	assert.True(t, catalog.Get(op.Id).Unresolved)
}

func TestNormalizer_CollisionSuffixingInVisitationOrder(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	first := putOperation(t, catalog, "a.ts", 0, "query GetUser { user { id } }", "GetUser", nil)
	second := putOperation(t, catalog, "a.ts", 100, "query GetUser { user { id name } }", "GetUser", nil)
	third := putOperation(t, catalog, "b.ts", 0, "query GetUser { user { email } }", "GetUser", nil)

	n := NewNormalizer(nil)
	diags := n.Normalize(catalog)

	assert.Empty(t, diags)
	assert.Equal(t, "GetUser", catalog.Get(first.Id).Name)
	assert.Equal(t, "GetUser_1", catalog.Get(second.Id).Name)
	assert.Equal(t, "GetUser_2", catalog.Get(third.Id).Name)
}

func TestFragmentResolver_ExpandsDependencies(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	fragDoc := mustParse(t, "fragment UserFields on User { id name }")
	catalog.PutFragment(&opcatalog.Fragment{
		Name: "UserFields", RawText: "fragment UserFields on User { id name }", AST: fragDoc.Fragments[0],
	})

	resolver := NewFragmentResolver(catalog)
	text, diag := resolver.Expand("UserFields")

	assert.Nil(t, diag)
	assert.Equal(t, "fragment UserFields on User { id name }", text)
}

func TestFragmentResolver_DetectsCycles(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	catalog.PutFragment(&opcatalog.Fragment{Name: "A", RawText: "fragment A on X { ...B }", Dependencies: []string{"B"}})
	catalog.PutFragment(&opcatalog.Fragment{Name: "B", RawText: "fragment B on X { ...A }", Dependencies: []string{"A"}})

	resolver := NewFragmentResolver(catalog)
	_, diag := resolver.Expand("A")

	require.NotNil(t, diag)
	assert.Equal(t, "fragment.cycle", diag.Code)
}

func TestFragmentResolver_UnresolvedFragmentWarns(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	resolver := NewFragmentResolver(catalog)

	_, diag := resolver.Expand("Missing")

	require.NotNil(t, diag)
	assert.Equal(t, "fragment.unresolved", diag.Code)
}

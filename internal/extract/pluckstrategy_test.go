package extract

import (
	"testing"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluckStrategy_TaggedTemplate(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("const Q = gql`query Q { venture(id:\"1\"){ id } }`;\n")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	assert.Equal(t, "query Q { venture(id:\"1\"){ id } }", extracted[0].RawText)
	assert.Equal(t, src[extracted[0].HostRange.Start:extracted[0].HostRange.End], []byte("gql`query Q { venture(id:\"1\"){ id } }`"))
}

func TestPluckStrategy_CallExpression(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("const Q = gql(`query Q { venture { id } }`);\n")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	assert.Equal(t, "query Q { venture { id } }", extracted[0].RawText)
}

func TestPluckStrategy_PlainStringAssignment(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("const ventureFieldsFragment = `fragment ventureFields on Venture { id }`;\n")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	assert.True(t, extracted[0].IsFragment)
	assert.Equal(t, "fragment ventureFields on Venture { id }", extracted[0].RawText)
}

func TestPluckStrategy_InterpolatedQueryName(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("gql`query ${queryNames.byIdV1}($id: UUID!) { venture(ventureId: $id) { ...${ventureFields} } }`")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)

	interps := extracted[0].Interpolations
	require.Len(t, interps, 2)

	assert.Equal(t, opcatalog.InterpolationQueryName, interps[0].Kind)
	assert.Equal(t, "queryNames.byIdV1", interps[0].Text)

	assert.Equal(t, opcatalog.InterpolationFragmentRef, interps[1].Kind)
	assert.Equal(t, "ventureFields", interps[1].Text)
}

func TestPluckStrategy_NumericInterpolation(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("gql`query Listings { listings(minPrice: ${minPrice}) { id } }`")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	require.Len(t, extracted[0].Interpolations, 1)
	assert.Equal(t, opcatalog.InterpolationNumericExpr, extracted[0].Interpolations[0].Kind)
}

func TestPluckStrategy_QuotedStringInterpolation(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte(`gql` + "`query Q { search(term: \"${term}\") { id } }`")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	require.Len(t, extracted[0].Interpolations, 1)
	assert.Equal(t, opcatalog.InterpolationStringExpr, extracted[0].Interpolations[0].Kind)
	assert.Equal(t, "term", extracted[0].Interpolations[0].Text)
}

func TestPluckStrategy_FieldNameInterpolation(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("gql`query Listing { listing(id: $id) { ${fieldName} } }`")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	require.Len(t, extracted[0].Interpolations, 1)
	assert.Equal(t, opcatalog.InterpolationFieldRef, extracted[0].Interpolations[0].Kind)
	assert.Equal(t, "fieldName", extracted[0].Interpolations[0].Text)
}

func TestPluckStrategy_EmptyTemplateNoOperation(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("gql``")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 1)
	assert.Equal(t, "", extracted[0].RawText)
}

func TestPluckStrategy_UnterminatedTemplateReportsDiagnostic(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte("gql`query Q { venture { id } }")
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	assert.Empty(t, extracted)
	require.Len(t, diags, 1)
	assert.Equal(t, "parse.host", diags[0].Code)
}

func TestPluckStrategy_MultipleOperationsInFile(t *testing.T) {
	strategy := NewPluckStrategy(DefaultOptions())

	src := []byte(`
const A = gql` + "`query A { a }`" + `;
const B = gql` + "`query B { b }`" + `;
`)
	extracted, diags := strategy.ExtractFromBytes("a.ts", src)

	require.Empty(t, diags)
	require.Len(t, extracted, 2)
	assert.Contains(t, extracted[0].RawText, "query A")
	assert.Contains(t, extracted[1].RawText, "query B")
}

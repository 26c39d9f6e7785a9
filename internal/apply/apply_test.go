package apply

import (
	"strings"
	"testing"

	"github.com/gitbasheer/pgql-migrate/internal/transform"
	"github.com/gitbasheer/pgql-migrate/pkg/deprecation"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func mustSchema(t *testing.T, src string) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Input: src})
	require.NoError(t, err)
	return schema
}

// buildCatalog plants a single operation, wrapped as "gql`<raw>`", inside
// a larger host file, computing its HostRange the same way the tagged
// template extraction shape does: from the tag identifier through the
// closing backtick, nothing more.
func buildCatalog(t *testing.T, rawText string) (*opcatalog.Catalog, *opcatalog.Operation, string) {
	t.Helper()
	host := "import { gql } from 'graphql-tag';\n\nconst Q = gql`" + rawText + "`;\n\nexport default Q;\n"

	tagIdx := strings.Index(host, "gql`")
	start := tagIdx
	bodyStart := tagIdx + len("gql`")
	closeIdx := strings.Index(host[bodyStart:], "`") + bodyStart
	end := closeIdx + 1

	doc, err := parser.ParseQuery(&ast.Source{Input: rawText})
	require.NoError(t, err)

	op := &opcatalog.Operation{
		Id:       opcatalog.ComputeId(rawText),
		RawText:  rawText,
		AST:      doc,
		HostFile: "widget.ts",
		HostRange: opcatalog.ByteRange{
			Start: start,
			End:   end,
		},
	}

	catalog := opcatalog.NewCatalog()
	catalog.Put(op, &opcatalog.SourceMapping{
		OperationId: op.Id, HostFile: op.HostFile, HostRange: op.HostRange,
	})
	return catalog, op, host
}

func TestApply_SplicesFieldRenameLeavingWrapperIntact(t *testing.T) {
	schema := mustSchema(t, `
		type Venture { id: ID! }
		type Query {
			venture(id: ID!): Venture @deprecated(reason: "Use ventureNode")
		}
	`)
	rules := deprecation.Analyze(schema)
	raw := `query Q { venture(id:"1"){ id } }`
	catalog, op, host := buildCatalog(t, raw)

	tr := transform.NewTransformer(rules, schema, transform.Thresholds{Automatic: 90, SemiAutomatic: 70})
	result, err := tr.Transform(op)
	require.NoError(t, err)

	a := NewApplicator(true)
	var written []byte
	applyResult, err := a.Apply("widget.ts", []byte(host), catalog, map[string]*opcatalog.Transformation{op.Id: result},
		func(path string, content []byte) error { written = content; return nil })

	require.NoError(t, err)
	assert.Equal(t, []string{op.Id}, applyResult.Applied)
	assert.False(t, applyResult.Written, "dry run must not invoke the writer")
	assert.Nil(t, written)

	newHost := string(applyResult.Content)
	assert.True(t, strings.HasPrefix(newHost, "import { gql } from 'graphql-tag';\n\nconst Q = gql`"))
	assert.True(t, strings.HasSuffix(newHost, "`;\n\nexport default Q;\n"))
	assert.Contains(t, newHost, "ventureNode")
	assert.NotContains(t, newHost, "venture(id")
}

func TestApply_WriteModeInvokesWriter(t *testing.T) {
	schema := mustSchema(t, `
		type Venture { id: ID! }
		type Query {
			venture(id: ID!): Venture @deprecated(reason: "Use ventureNode")
		}
	`)
	rules := deprecation.Analyze(schema)
	raw := `query Q { venture(id:"1"){ id } }`
	catalog, op, host := buildCatalog(t, raw)

	tr := transform.NewTransformer(rules, schema, transform.Thresholds{Automatic: 90, SemiAutomatic: 70})
	result, err := tr.Transform(op)
	require.NoError(t, err)

	a := NewApplicator(false)
	var written []byte
	applyResult, err := a.Apply("widget.ts", []byte(host), catalog, map[string]*opcatalog.Transformation{op.Id: result},
		func(path string, content []byte) error { written = content; return nil })

	require.NoError(t, err)
	assert.True(t, applyResult.Written)
	assert.Equal(t, applyResult.Content, written)
}

func TestApply_PreservesInterpolatedHostExpressions(t *testing.T) {
	schema := mustSchema(t, `
		type Venture { id: ID! }
		type Query {
			venture(id: ID!): Venture @deprecated(reason: "Use ventureNode")
		}
	`)
	rules := deprecation.Analyze(schema)
	raw := `query Q { venture(id:"phStr0"){ id } }`
	catalog, op, host := buildCatalog(t, raw)
	op.Interpolations = []opcatalog.InterpolationSite{
		{Offset: 0, Kind: opcatalog.InterpolationStringExpr, Text: "props.ventureId"},
	}

	tr := transform.NewTransformer(rules, schema, transform.Thresholds{Automatic: 90, SemiAutomatic: 70})
	result, err := tr.Transform(op)
	require.NoError(t, err)

	a := NewApplicator(true)
	applyResult, err := a.Apply("widget.ts", []byte(host), catalog, map[string]*opcatalog.Transformation{op.Id: result}, nil)
	require.NoError(t, err)

	newHost := string(applyResult.Content)
	assert.Contains(t, newHost, `"${props.ventureId}"`)
	assert.NotContains(t, newHost, "phStr0")
}

func TestApply_NoTransformationsLeavesFileUnchanged(t *testing.T) {
	catalog, _, host := buildCatalog(t, `query Q { venture(id:"1"){ id } }`)

	a := NewApplicator(true)
	applyResult, err := a.Apply("widget.ts", []byte(host), catalog, map[string]*opcatalog.Transformation{}, nil)
	require.NoError(t, err)
	assert.True(t, applyResult.Unchanged)
	assert.Equal(t, host, string(applyResult.Content))
	assert.Empty(t, applyResult.Applied)
}

func TestApply_OverlappingRangesRejectTheWholeFile(t *testing.T) {
	catalog := opcatalog.NewCatalog()
	host := "const A = gql`query A { id }`; const B = gql`query B { id }`;"

	opA := &opcatalog.Operation{Id: "a", RawText: "query A { id }", HostFile: "f.ts", HostRange: opcatalog.ByteRange{Start: 10, End: 40}}
	opB := &opcatalog.Operation{Id: "b", RawText: "query B { id }", HostFile: "f.ts", HostRange: opcatalog.ByteRange{Start: 30, End: 60}}
	catalog.Put(opA, &opcatalog.SourceMapping{OperationId: "a", HostFile: "f.ts", HostRange: opA.HostRange})
	catalog.Put(opB, &opcatalog.SourceMapping{OperationId: "b", HostFile: "f.ts", HostRange: opB.HostRange})

	trs := map[string]*opcatalog.Transformation{
		"a": {OperationId: "a", Text: "query A { id }"},
		"b": {OperationId: "b", Text: "query B { id }"},
	}

	a := NewApplicator(true)
	_, err := a.Apply("f.ts", []byte(host), catalog, trs, nil)
	assert.Error(t, err)
}

func TestApply_StructuralMismatchRejectsOnlyThatTransformation(t *testing.T) {
	catalog, op, host := buildCatalog(t, `query Q { venture(id:"1"){ id } }`)

	badTransform := &opcatalog.Transformation{
		OperationId: op.Id,
		Text:        "query Q { venture(id: \"1\") { id } }",
	}
	op.Interpolations = []opcatalog.InterpolationSite{
		{Offset: 0, Kind: opcatalog.InterpolationStringExpr, Text: "props.id"},
	}

	a := NewApplicator(true)
	applyResult, err := a.Apply("widget.ts", []byte(host), catalog, map[string]*opcatalog.Transformation{op.Id: badTransform}, nil)
	require.NoError(t, err)
	assert.True(t, applyResult.Unchanged)
	require.Len(t, applyResult.Rejected, 1)
	assert.Equal(t, "apply.rejected", applyResult.Rejected[0].Code)
	assert.Equal(t, host, string(applyResult.Content))
}

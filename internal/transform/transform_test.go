package transform

import (
	"testing"

	"github.com/gitbasheer/pgql-migrate/pkg/deprecation"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

func mustParseSchema(t *testing.T, src string) *ast.Schema {
	t.Helper()
	schema, err := gqlparser.LoadSchema(&ast.Source{Input: src})
	require.NoError(t, err)
	return schema
}

func operationFromText(t *testing.T, text string) *opcatalog.Operation {
	t.Helper()
	doc, err := parser.ParseQuery(&ast.Source{Input: text})
	require.Nil(t, err)
	require.Len(t, doc.Operations, 1)
	return &opcatalog.Operation{
		Id:      opcatalog.ComputeId(text),
		RawText: text,
		AST:     doc,
	}
}

func defaultThresholds() Thresholds {
	return Thresholds{Automatic: 90, SemiAutomatic: 70}
}

func TestTransform_ScenarioA_SimpleFieldRename(t *testing.T) {
	schema := mustParseSchema(t, `
		type Venture { id: ID! }
		type Query {
			venture(id: ID!): Venture @deprecated(reason: "Use ventureNode")
		}
	`)
	rules := deprecation.Analyze(schema)
	op := operationFromText(t, `query Q { venture(id:"1"){ id } }`)

	tr := NewTransformer(rules, schema, defaultThresholds())
	result, err := tr.Transform(op)

	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, opcatalog.ChangeFieldRename, result.Changes[0].Kind)
	assert.Equal(t, "venture", result.Changes[0].Before)
	assert.Equal(t, "ventureNode", result.Changes[0].After)
	assert.Equal(t, 95, result.Confidence)
	assert.Contains(t, result.Text, "ventureNode")
}

func TestTransform_ScenarioB_DottedPathRewrite(t *testing.T) {
	schema := mustParseSchema(t, `
		type Venture {
			id: ID!
			logoUrl: String @deprecated(reason: "Use profile.logoUrl instead")
		}
		type Query { venture: Venture }
	`)
	rules := deprecation.Analyze(schema)
	op := operationFromText(t, `query V { venture { id logoUrl } }`)

	tr := NewTransformer(rules, schema, defaultThresholds())
	result, err := tr.Transform(op)

	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, opcatalog.ChangePathRewrite, result.Changes[0].Kind)
	assert.Equal(t, 85, result.Confidence)
	assert.Contains(t, result.Text, "profile")
	assert.Contains(t, result.Text, "logoUrl")
}

func TestTransform_ScenarioC_VagueCommentOut(t *testing.T) {
	schema := mustParseSchema(t, `
		type W {
			accountId: String @deprecated(reason: "Use the billing property to ensure forward compatibility")
		}
		type Query { w: W }
	`)
	rules := deprecation.Analyze(schema)
	op := operationFromText(t, `query Get { w { accountId } }`)

	tr := NewTransformer(rules, schema, defaultThresholds())
	result, err := tr.Transform(op)

	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, opcatalog.ChangeCommentOut, result.Changes[0].Kind)
	assert.Equal(t, 50, result.Confidence)
	assert.Equal(t, "semi-automatic", result.Category)
	assert.Contains(t, result.Text, "# DEPRECATED: accountId - Use the billing property to ensure forward compatibility")
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "high", result.Warnings[0].Severity)
}

func TestTransform_Idempotent(t *testing.T) {
	schema := mustParseSchema(t, `
		type Venture { id: ID! }
		type Query {
			venture(id: ID!): Venture @deprecated(reason: "Use ventureNode")
		}
	`)
	rules := deprecation.Analyze(schema)
	op := operationFromText(t, `query Q { venture(id:"1"){ id } }`)

	tr := NewTransformer(rules, schema, defaultThresholds())
	first, err := tr.Transform(op)
	require.NoError(t, err)

	reparsed := operationFromText(t, first.Text)
	second, err := tr.Transform(reparsed)
	require.NoError(t, err)

	assert.Empty(t, second.Changes)
	assert.Equal(t, 100, second.Confidence)
}

func TestScore_Monotonicity(t *testing.T) {
	base := []opcatalog.Change{{Kind: opcatalog.ChangeFieldRename}}
	withVague := append(append([]opcatalog.Change{}, base...), opcatalog.Change{Kind: opcatalog.ChangeCommentOut, Vague: true})

	baseScore := Score(base, defaultThresholds())
	vagueScore := Score(withVague, defaultThresholds())

	assert.LessOrEqual(t, vagueScore.Score, baseScore.Score)
}

func TestTransform_NoSchema_SelectionPathFallback(t *testing.T) {
	rules := deprecation.Analyze(nil)
	op := operationFromText(t, `query Q { venture { id } }`)

	tr := NewTransformer(rules, nil, defaultThresholds())
	result, err := tr.Transform(op)

	require.NoError(t, err)
	assert.Empty(t, result.Changes)
	assert.Equal(t, 100, result.Confidence)
}

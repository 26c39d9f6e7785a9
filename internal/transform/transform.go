// Package transform walks a catalogued operation against a deprecation
// rule set, rewriting or dropping deprecated fields and arguments and
// scoring how confidently the rewrite can be applied without review.
package transform

import (
	"bytes"
	"fmt"

	"github.com/gitbasheer/pgql-migrate/internal/extract"
	"github.com/gitbasheer/pgql-migrate/pkg/deprecation"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"
)

// Thresholds are the confidence-score cutoffs separating automatic,
// semi-automatic, and manual transformations.
type Thresholds struct {
	Automatic     int
	SemiAutomatic int
}

// Transformer rewrites operations against a fixed rule set and,
// optionally, a schema used to resolve object types along the selection
// path.
type Transformer struct {
	rules      *deprecation.RuleSet
	schema     *ast.Schema
	thresholds Thresholds
}

// NewTransformer builds a Transformer. schema may be nil, in which case
// dotted paths fall back to plain selection-name chains.
func NewTransformer(rules *deprecation.RuleSet, schema *ast.Schema, thresholds Thresholds) *Transformer {
	return &Transformer{rules: rules, schema: schema, thresholds: thresholds}
}

// pathContext tracks the dotted-path prefix used to look up rules as the
// walk descends into a selection set: an object type name when the
// schema can resolve one, or an accumulated chain of field names
// otherwise.
type pathContext struct {
	prefix    string
	fromField bool // true once resolution has fallen back to field-name chaining
}

// Transform produces a Transformation for a single operation. Applying
// Transform to its own output a second time is a no-op: every rewrite
// either removes the triggering condition (a rename no longer matches
// the old rule key) or removes the field entirely (comment-out).
func (t *Transformer) Transform(op *opcatalog.Operation) (*opcatalog.Transformation, error) {
	if op.AST == nil || len(op.AST.Operations) == 0 {
		return nil, fmt.Errorf("operation %s has no parsed AST", op.Id)
	}

	// Rewrite a fresh parse of the raw text so the catalogued operation's
	// own AST is left untouched.
	doc, err := parser.ParseQuery(&ast.Source{Input: op.RawText})
	if err != nil || len(doc.Operations) == 0 {
		return nil, fmt.Errorf("operation %s: raw text does not reparse as an operation", op.Id)
	}

	opDef := doc.Operations[0]
	fragRefTokens := interpolatedFragmentTokens(op.Interpolations)

	root := pathContext{prefix: t.rootTypeName(opDef.Operation)}

	var changes []opcatalog.Change
	var warnings []opcatalog.Warning
	var comments []string

	opDef.SelectionSet = t.walkSelectionSet(opDef.SelectionSet, root, fragRefTokens, &changes, &warnings, &comments)

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatDocument(doc)
	text := buf.String()
	if len(comments) > 0 {
		text = joinComments(comments) + "\n" + text
	}

	confidence := Score(changes, t.thresholds)

	return &opcatalog.Transformation{
		OperationId: op.Id,
		Text:        text,
		AST:         doc,
		Changes:     changes,
		Warnings:    warnings,
		Confidence:  confidence.Score,
		Category:    confidence.Category,
	}, nil
}

func (t *Transformer) rootTypeName(op ast.Operation) string {
	if t.schema == nil {
		return ""
	}
	switch op {
	case ast.Mutation:
		if t.schema.Mutation != nil {
			return t.schema.Mutation.Name
		}
	case ast.Subscription:
		if t.schema.Subscription != nil {
			return t.schema.Subscription.Name
		}
	default:
		if t.schema.Query != nil {
			return t.schema.Query.Name
		}
	}
	return ""
}

func (t *Transformer) walkSelectionSet(sel ast.SelectionSet, ctx pathContext, fragRefTokens map[string]bool, changes *[]opcatalog.Change, warnings *[]opcatalog.Warning, comments *[]string) ast.SelectionSet {
	out := make(ast.SelectionSet, 0, len(sel))

	for _, s := range sel {
		switch node := s.(type) {
		case *ast.Field:
			field := t.transformField(node, ctx, fragRefTokens, changes, warnings, comments)
			if field != nil {
				out = append(out, field)
			}
		case *ast.InlineFragment:
			childCtx := pathContext{prefix: node.TypeCondition, fromField: ctx.fromField}
			node.SelectionSet = t.walkSelectionSet(node.SelectionSet, childCtx, fragRefTokens, changes, warnings, comments)
			out = append(out, node)
		default:
			out = append(out, s)
		}
	}

	return out
}

// transformField applies any matching rule to one field and returns its
// replacement node, or nil if the field was dropped.
func (t *Transformer) transformField(field *ast.Field, ctx pathContext, fragRefTokens map[string]bool, changes *[]opcatalog.Change, warnings *[]opcatalog.Warning, comments *[]string) *ast.Field {
	path := joinPath(ctx.prefix, field.Name)
	touchesFragment := selectionTouchesFragmentInterpolation(field.SelectionSet, fragRefTokens)

	var rule *opcatalog.DeprecationRule
	if t.rules != nil && !ctx.fromField {
		rule = t.rules.Lookup(path)
	}

	childCtx := t.childContext(ctx, field.Name, path)

	if rule == nil {
		t.applyArgumentRules(field, path, changes)
		field.SelectionSet = t.walkSelectionSet(field.SelectionSet, childCtx, fragRefTokens, changes, warnings, comments)
		return field
	}

	severity := "medium"
	if rule.Vague {
		severity = "high"
	}
	*warnings = append(*warnings, opcatalog.Warning{
		Message:  fmt.Sprintf("%s is deprecated: %s", path, rule.Reason),
		Severity: severity,
		Path:     path,
	})

	if rule.Action == "comment-out" {
		*changes = append(*changes, opcatalog.Change{
			Kind: opcatalog.ChangeCommentOut, Path: path, Before: field.Name,
			Breaking: true, RuleTarget: path, Reason: rule.Reason, Vague: true,
			TouchesInterpolation: touchesFragment,
		})
		*comments = append(*comments, fmt.Sprintf("# DEPRECATED: %s - %s", field.Name, rule.Reason))
		return nil
	}

	field.SelectionSet = t.walkSelectionSet(field.SelectionSet, childCtx, fragRefTokens, changes, warnings, comments)

	if containsDot(rule.Replacement) {
		parent, child := splitDotted(rule.Replacement)
		inner := &ast.Field{Name: child, Arguments: field.Arguments, SelectionSet: field.SelectionSet, Position: field.Position}
		wrapper := &ast.Field{Name: parent, SelectionSet: ast.SelectionSet{inner}, Position: field.Position}

		*changes = append(*changes, opcatalog.Change{
			Kind: opcatalog.ChangePathRewrite, Path: path, Before: field.Name, After: rule.Replacement,
			Breaking: true, RuleTarget: path, Reason: rule.Reason, TouchesInterpolation: touchesFragment,
		})
		return wrapper
	}

	before := field.Name
	field.Name = rule.Replacement
	*changes = append(*changes, opcatalog.Change{
		Kind: opcatalog.ChangeFieldRename, Path: path, Before: before, After: rule.Replacement,
		Breaking: true, RuleTarget: path, Reason: rule.Reason, TouchesInterpolation: touchesFragment,
	})
	return field
}

func (t *Transformer) applyArgumentRules(field *ast.Field, fieldPath string, changes *[]opcatalog.Change) {
	if t.rules == nil {
		return
	}
	for _, arg := range field.Arguments {
		argPath := fieldPath + "." + arg.Name
		rule := t.rules.Lookup(argPath)
		if rule == nil || rule.Action != "replace" {
			continue
		}
		before := arg.Name
		arg.Name = rule.Replacement
		*changes = append(*changes, opcatalog.Change{
			Kind: opcatalog.ChangeArgumentRename, Path: argPath, Before: before, After: rule.Replacement,
			Breaking: true, RuleTarget: argPath, Reason: rule.Reason,
		})
	}
}

func (t *Transformer) childContext(ctx pathContext, fieldName, path string) pathContext {
	if ctx.fromField || t.schema == nil || ctx.prefix == "" {
		return pathContext{prefix: path, fromField: true}
	}
	def := t.schema.Types[ctx.prefix]
	if def == nil {
		return pathContext{prefix: path, fromField: true}
	}
	fieldDef := def.Fields.ForName(fieldName)
	if fieldDef == nil || fieldDef.Type == nil {
		return pathContext{prefix: path, fromField: true}
	}
	return pathContext{prefix: fieldDef.Type.Name()}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func containsDot(s string) bool {
	for _, r := range s {
		if r == '.' {
			return true
		}
	}
	return false
}

func splitDotted(s string) (string, string) {
	for i, r := range s {
		if r == '.' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}

func joinComments(comments []string) string {
	out := comments[0]
	for _, c := range comments[1:] {
		out += "\n" + c
	}
	return out
}

// interpolatedFragmentTokens returns the set of placeholder tokens that
// stand in for a dynamically interpolated fragment name (`...${expr}`),
// so a change applied under one of those spreads can be flagged as
// touching a fragment-interpolation site.
func interpolatedFragmentTokens(sites []opcatalog.InterpolationSite) map[string]bool {
	var tokens map[string]bool
	for i, s := range sites {
		if s.Kind != opcatalog.InterpolationFragmentRef {
			continue
		}
		if tokens == nil {
			tokens = make(map[string]bool)
		}
		tokens[extract.PlaceholderToken(s.Kind, i)] = true
	}
	return tokens
}

func selectionTouchesFragmentInterpolation(sel ast.SelectionSet, fragRefTokens map[string]bool) bool {
	if len(fragRefTokens) == 0 {
		return false
	}
	for _, s := range sel {
		if spread, ok := s.(*ast.FragmentSpread); ok && fragRefTokens[spread.Name] {
			return true
		}
	}
	return false
}

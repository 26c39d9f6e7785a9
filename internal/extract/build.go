package extract

import (
	"fmt"
	"strings"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// buildCatalogEntry parses a single Extracted hit's placeholder-substituted
// text as GraphQL (no schema needed — extraction doesn't require one) and
// turns it into either an Operation or a Fragment. Parse failures are
// non-fatal: they are reported as a diagnostic and the hit is dropped.
func buildCatalogEntry(e Extracted, path string) (*opcatalog.Operation, *opcatalog.Fragment, *opcatalog.Diagnostic) {
	bare := e.RawText
	for i, site := range e.Interpolations {
		bare = strings.Replace(bare, placeholderText(site.Kind, i), "", 1)
	}
	if opcatalog.NormalizeText(bare) == "" {
		// Empty template literal: no operation, no error. A template
		// containing only interpolations gets a warning instead.
		if len(e.Interpolations) > 0 {
			return nil, nil, &opcatalog.Diagnostic{
				File: path, Offset: e.HostRange.Start,
				Message: "template literal contains only interpolations", Code: "extract.empty", Severity: "warning",
			}
		}
		return nil, nil, nil
	}

	doc, err := parser.ParseQuery(&ast.Source{Input: e.RawText, Name: path})
	if err != nil {
		diag := opcatalog.Diagnostic{
			File: path, Offset: e.HostRange.Start,
			Message: err.Message, Code: "parse.graphql", Severity: "error",
		}
		if len(err.Locations) > 0 {
			diag.Line = err.Locations[0].Line
			diag.Column = err.Locations[0].Column
		}
		return nil, nil, &diag
	}

	if len(doc.Operations) == 1 && len(doc.Fragments) == 0 {
		return buildOperation(doc, doc.Operations[0], e, path), nil, nil
	}

	if len(doc.Fragments) == 1 && len(doc.Operations) == 0 {
		return nil, buildFragment(doc.Fragments[0], e, path), nil
	}

	if len(doc.Operations) == 0 && len(doc.Fragments) == 0 {
		return nil, nil, nil
	}

	return nil, nil, &opcatalog.Diagnostic{
		File: path, Offset: e.HostRange.Start,
		Message: fmt.Sprintf("expected exactly one operation or fragment per literal, found %d operations and %d fragments", len(doc.Operations), len(doc.Fragments)),
		Code:    "extract.shape", Severity: "error",
	}
}

func buildOperation(doc *ast.QueryDocument, opDef *ast.OperationDefinition, e Extracted, path string) *opcatalog.Operation {
	id := opcatalog.ComputeId(e.RawText)

	return &opcatalog.Operation{
		Id:             id,
		Kind:           operationKind(opDef.Operation),
		Name:           opDef.Name,
		RawText:        e.RawText,
		AST:            doc,
		HostFile:       path,
		HostRange:      e.HostRange,
		Interpolations: e.Interpolations,
		Variables:      []*ast.VariableDefinition(opDef.VariableDefinitions),
		FragmentRefs:   collectFragmentRefs(opDef.SelectionSet),
		ExtractedBy:    e.StrategyName,
	}
}

func buildFragment(fragDef *ast.FragmentDefinition, e Extracted, path string) *opcatalog.Fragment {
	return &opcatalog.Fragment{
		Name:         fragDef.Name,
		RawText:      e.RawText,
		AST:          fragDef,
		HostFile:     path,
		Dependencies: collectFragmentRefs(fragDef.SelectionSet),
	}
}

func operationKind(op ast.Operation) opcatalog.Kind {
	switch op {
	case ast.Mutation:
		return opcatalog.KindMutation
	case ast.Subscription:
		return opcatalog.KindSubscription
	default:
		return opcatalog.KindQuery
	}
}

// collectFragmentRefs walks a selection set recursively, gathering the
// names of every fragment it spreads (directly or inside inline
// fragments), deduplicated in first-seen order.
func collectFragmentRefs(sel ast.SelectionSet) []string {
	seen := make(map[string]bool)
	var refs []string

	var walk func(ast.SelectionSet)
	walk = func(selSet ast.SelectionSet) {
		for _, s := range selSet {
			switch node := s.(type) {
			case *ast.FragmentSpread:
				if !seen[node.Name] {
					seen[node.Name] = true
					refs = append(refs, node.Name)
				}
			case *ast.InlineFragment:
				walk(node.SelectionSet)
			case *ast.Field:
				walk(node.SelectionSet)
			}
		}
	}
	walk(sel)

	return refs
}

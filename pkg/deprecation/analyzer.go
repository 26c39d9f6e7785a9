// Package deprecation scans a parsed GraphQL schema for @deprecated
// directives and classifies each one into a replace rule, with a clear
// replacement target, or a comment-out rule, for a vague reason.
package deprecation

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/vektah/gqlparser/v2/ast"
)

// replacePattern recognizes the closed set of "clear replacement" reason
// shapes: "Use X", "Use `X` instead", "use X", dotted "Use X.Y instead",
// and "switch to using X".
var replacePattern = regexp.MustCompile("(?i)^(?:use\\s+`?([A-Za-z0-9_]+(?:\\.[A-Za-z0-9_]+)?)`?(?:\\s+instead)?|switch to using\\s+([A-Za-z0-9_]+(?:\\.[A-Za-z0-9_]+)?))\\.?$")

// RuleSet is the output accessor over every deprecation rule found in a
// schema: a lookup by dotted path plus summary counts.
type RuleSet struct {
	byPath map[string]*opcatalog.DeprecationRule
}

// Summary tallies the rule set's composition.
type Summary struct {
	Total         int
	Replaceable   int
	Vague         int
	FieldLevel    int
	ArgumentLevel int
}

// Analyze walks every object type, interface, and enum in schema,
// associating each @deprecated directive with its enclosing member and
// classifying the reason. Interfaces and the object types that implement
// them are scanned independently, so an identical deprecation inherited
// by both surfaces produces one rule per occurrence.
func Analyze(schema *ast.Schema) *RuleSet {
	rs := &RuleSet{byPath: make(map[string]*opcatalog.DeprecationRule)}
	if schema == nil {
		return rs
	}

	names := make([]string, 0, len(schema.Types))
	for name := range schema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := schema.Types[name]
		switch def.Kind {
		case ast.Object, ast.Interface:
			analyzeFields(rs, def)
		case ast.Enum:
			analyzeEnumValues(rs, def)
		}
	}

	return rs
}

func analyzeFields(rs *RuleSet, def *ast.Definition) {
	for _, field := range def.Fields {
		if dir := field.Directives.ForName("deprecated"); dir != nil {
			rule := classify(def.Name, field.Name, "field", reasonOf(dir))
			rs.byPath[path(def.Name, field.Name)] = rule
		}
		for _, arg := range field.Arguments {
			dir := arg.Directives.ForName("deprecated")
			if dir == nil {
				continue
			}
			member := field.Name + "." + arg.Name
			rule := classify(def.Name, member, "argument", reasonOf(dir))
			rs.byPath[path(def.Name, member)] = rule
		}
	}
}

func analyzeEnumValues(rs *RuleSet, def *ast.Definition) {
	for _, val := range def.EnumValues {
		dir := val.Directives.ForName("deprecated")
		if dir == nil {
			continue
		}
		rule := classify(def.Name, val.Name, "enum-value", reasonOf(dir))
		rs.byPath[path(def.Name, val.Name)] = rule
	}
}

func reasonOf(dir *ast.Directive) string {
	arg := dir.Arguments.ForName("reason")
	if arg == nil || arg.Value == nil {
		return ""
	}
	return arg.Value.Raw
}

// classify collapses whitespace (including embedded newlines from a
// multi-line reason) to single spaces and pattern-matches the result
// against the closed set of clear-replacement shapes.
func classify(objectType, memberName, memberKind, reason string) *opcatalog.DeprecationRule {
	collapsed := strings.Join(strings.Fields(reason), " ")

	rule := &opcatalog.DeprecationRule{
		ObjectType: objectType,
		MemberName: memberName,
		MemberKind: memberKind,
		Reason:     collapsed,
	}

	if m := replacePattern.FindStringSubmatch(collapsed); m != nil {
		replacement := m[1]
		if replacement == "" {
			replacement = m[2]
		}
		rule.Action = "replace"
		rule.Replacement = replacement
		return rule
	}

	rule.Action = "comment-out"
	rule.Vague = true
	return rule
}

func path(objectType, memberName string) string {
	return objectType + "." + memberName
}

// Lookup returns the rule for a dotted path ("Type.field" or
// "Type.field.arg"), or nil if the member carries no deprecation.
func (rs *RuleSet) Lookup(dottedPath string) *opcatalog.DeprecationRule {
	return rs.byPath[dottedPath]
}

// All returns every rule, sorted by dotted path for deterministic
// iteration.
func (rs *RuleSet) All() []*opcatalog.DeprecationRule {
	paths := make([]string, 0, len(rs.byPath))
	for p := range rs.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	out := make([]*opcatalog.DeprecationRule, 0, len(paths))
	for _, p := range paths {
		out = append(out, rs.byPath[p])
	}
	return out
}

// Summarize counts the rule set's composition.
func (rs *RuleSet) Summarize() Summary {
	var s Summary
	for _, rule := range rs.byPath {
		s.Total++
		if rule.Action == "replace" {
			s.Replaceable++
		} else {
			s.Vague++
		}
		switch rule.MemberKind {
		case "field", "enum-value":
			s.FieldLevel++
		case "argument":
			s.ArgumentLevel++
		}
	}
	return s
}

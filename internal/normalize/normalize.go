// Package normalize stitches fragment references, resolves interpolated
// operation-name expressions against a name dictionary, and assigns a
// stable canonical name per distinct operation content.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/vektah/gqlparser/v2/ast"
)

// Normalizer assigns canonical names to every Operation in a Catalog.
type Normalizer struct {
	dict map[string]string
}

// NewNormalizer builds a Normalizer from the configured query-name
// dictionary (dotted key -> canonical name).
func NewNormalizer(dict map[string]string) *Normalizer {
	if dict == nil {
		dict = map[string]string{}
	}
	return &Normalizer{dict: dict}
}

// Normalize walks every operation in deterministic (host file, byte
// offset) visitation order, resolves each name, and renames collisions
// with an integer suffix in that same order.
func (n *Normalizer) Normalize(catalog *opcatalog.Catalog) []opcatalog.Diagnostic {
	ops := catalog.All()
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].HostFile != ops[j].HostFile {
			return ops[i].HostFile < ops[j].HostFile
		}
		return ops[i].HostRange.Start < ops[j].HostRange.Start
	})

	var diags []opcatalog.Diagnostic
	seen := make(map[string]int) // resolved name -> next suffix to use

	for _, op := range ops {
		name, diag := n.resolveName(op)
		if diag != nil {
			diags = append(diags, *diag)
		}

		count, exists := seen[name]
		if !exists {
			seen[name] = 0
			catalog.Rename(op.Id, name)
			continue
		}

		count++
		seen[name] = count
		catalog.Rename(op.Id, fmt.Sprintf("%s_%d", name, count))
	}

	return diags
}

// resolveName resolves a single operation's canonical name in priority
// order: literal name, dictionary lookup, ternary true branch, then a
// synthesized fallback.
func (n *Normalizer) resolveName(op *opcatalog.Operation) (string, *opcatalog.Diagnostic) {
	site := findQueryNameInterpolation(op)

	// 1. Literal name already present.
	if site == nil {
		if op.Name != "" {
			return op.Name, nil
		}
		return firstTopLevelFieldName(op), nil
	}

	expr := strings.TrimSpace(site.Text)

	// 2. ${dict.key} present in the configured dictionary.
	if resolved, ok := n.dict[expr]; ok {
		return resolved, nil
	}

	// 3. ${cond ? 'A' : 'B'} ternary: canonicalize to the true branch.
	if branch, ok := trueBranch(expr); ok {
		return branch, nil
	}

	// Unresolved: fall back to the first top-level field and warn, with a
	// did-you-mean hint against the dictionary when one is close.
	suggestion := didYouMean(expr, n.dict)
	op.Unresolved = true

	msg := fmt.Sprintf("unresolved operation-name expression %q", expr)
	if suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}

	return firstTopLevelFieldName(op), &opcatalog.Diagnostic{
		File: op.HostFile, Offset: op.HostRange.Start,
		Message: msg, Code: "name.unresolved", Severity: "warning",
	}
}

func findQueryNameInterpolation(op *opcatalog.Operation) *opcatalog.InterpolationSite {
	for i := range op.Interpolations {
		if op.Interpolations[i].Kind == opcatalog.InterpolationQueryName {
			return &op.Interpolations[i]
		}
	}
	return nil
}

var ternaryTrueBranch = regexp.MustCompile(`\?\s*['"]([^'"]*)['"]`)

// trueBranch extracts the first quoted literal following a "?" in a
// ternary expression, treated as its true branch.
func trueBranch(expr string) (string, bool) {
	m := ternaryTrueBranch.FindStringSubmatch(expr)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// didYouMean returns the dictionary key closest to expr by Levenshtein
// distance, if one is within a small edit-distance budget, else "".
func didYouMean(expr string, dict map[string]string) string {
	best := ""
	bestDist := -1
	for key := range dict {
		d := levenshtein.ComputeDistance(expr, key)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			best = key
		}
	}
	if bestDist < 0 || bestDist > 4 {
		return ""
	}
	return best
}

func firstTopLevelFieldName(op *opcatalog.Operation) string {
	if op.AST == nil {
		return "Unnamed"
	}
	for _, opDef := range op.AST.Operations {
		for _, sel := range opDef.SelectionSet {
			if field, ok := sel.(*ast.Field); ok {
				return field.Name
			}
		}
	}
	return "Unnamed"
}

// FragmentResolver stitches a fragment's transitive dependencies into its
// fully expanded text, memoizing per name and aborting cyclic references
// with a warning instead of recursing unboundedly.
type FragmentResolver struct {
	catalog *opcatalog.Catalog
	memo    map[string]string
}

// NewFragmentResolver builds a resolver over the given catalog's fragment
// set.
func NewFragmentResolver(catalog *opcatalog.Catalog) *FragmentResolver {
	return &FragmentResolver{catalog: catalog, memo: make(map[string]string)}
}

// Expand returns the named fragment's definition text followed by every
// fragment it transitively depends on, each appearing once. A cyclic or
// unresolved reference produces a warning diagnostic and no text.
func (r *FragmentResolver) Expand(name string) (string, *opcatalog.Diagnostic) {
	return r.expand(name, make(map[string]bool))
}

// ExpandAll resolves every fragment registered in the resolver's catalog,
// surfacing a diagnostic for each one that is cyclic or references a
// fragment that was never catalogued. Callers that only need the result
// as an early validation pass can discard the returned text.
func (r *FragmentResolver) ExpandAll(catalog *opcatalog.Catalog) []opcatalog.Diagnostic {
	var diags []opcatalog.Diagnostic
	for _, name := range catalog.FragmentNames() {
		if _, diag := r.Expand(name); diag != nil {
			diags = append(diags, *diag)
		}
	}
	return diags
}

func (r *FragmentResolver) expand(name string, visiting map[string]bool) (string, *opcatalog.Diagnostic) {
	if text, ok := r.memo[name]; ok {
		return text, nil
	}
	if visiting[name] {
		return "", &opcatalog.Diagnostic{
			Message: fmt.Sprintf("cyclic fragment reference involving %q", name),
			Code:    "fragment.cycle", Severity: "warning",
		}
	}

	frag := r.catalog.Fragment(name)
	if frag == nil {
		return "", &opcatalog.Diagnostic{
			Message: fmt.Sprintf("unresolved fragment reference %q", name),
			Code:    "fragment.unresolved", Severity: "warning",
		}
	}

	visiting[name] = true
	for _, dep := range frag.Dependencies {
		if _, diag := r.expand(dep, visiting); diag != nil {
			return "", diag
		}
	}
	delete(visiting, name)

	// Emit each fragment of the (acyclic) closure once, depth-first.
	var parts []string
	emitted := make(map[string]bool)
	var emit func(string)
	emit = func(n string) {
		if emitted[n] {
			return
		}
		emitted[n] = true
		f := r.catalog.Fragment(n)
		parts = append(parts, f.RawText)
		for _, d := range f.Dependencies {
			emit(d)
		}
	}
	emit(name)
	text := strings.Join(parts, "\n")

	r.memo[name] = text
	return text, nil
}

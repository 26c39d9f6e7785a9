// Package opcatalog holds the data model shared across every stage of the
// migration pipeline: extracted operations and fragments, their source
// mappings, deprecation rules, and the transformations derived from them.
// A Catalog is populated once by the extractor and is read-only to every
// later stage except the name normalizer, which may rename operations.
package opcatalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
)

// Kind enumerates the operation kinds an Operation can represent.
type Kind string

const (
	KindQuery        Kind = "query"
	KindMutation     Kind = "mutation"
	KindSubscription Kind = "subscription"
	KindFragment     Kind = "fragment"
)

// InterpolationKind enumerates the six closed interpolation placeholder
// shapes a host expression inside a template literal can take.
type InterpolationKind string

const (
	InterpolationQueryName   InterpolationKind = "query-name"
	InterpolationFragmentRef InterpolationKind = "fragment-ref"
	InterpolationFieldRef    InterpolationKind = "field-ref"
	InterpolationIdentifier  InterpolationKind = "identifier"
	InterpolationStringExpr  InterpolationKind = "string-expr"
	InterpolationNumericExpr InterpolationKind = "numeric-expr"
)

// InterpolationSite records a single host-language expression embedded
// inside a template literal, and where it sat in that literal.
type InterpolationSite struct {
	Offset int               // byte offset inside the template literal body
	Kind   InterpolationKind // grammatical category of the placeholder substituted for it
	Text   string            // the original host expression text, verbatim
}

// ByteRange addresses a half-open [Start, End) span of bytes in a host
// file. The applicator only ever replaces bytes inside such a range.
type ByteRange struct {
	Start int
	End   int
}

// Operation is a single GraphQL operation or fragment extracted from a
// host file. Its Id is derived solely from its normalized GraphQL text:
// two operations with the same Id are the same operation, regardless of
// which host file they came from.
type Operation struct {
	Id               string
	Kind             Kind
	Name             string
	RawText          string
	AST              *ast.QueryDocument
	HostFile         string
	HostRange        ByteRange
	Interpolations   []InterpolationSite
	Variables        []*ast.VariableDefinition
	FragmentRefs     []string
	Unresolved       bool // true when a name-dictionary lookup or fragment reference could not be resolved
	ExtractedBy      string
}

// Fragment is a named GraphQL fragment extracted from a host file.
type Fragment struct {
	Name         string
	RawText      string
	AST          *ast.FragmentDefinition
	HostFile     string
	Dependencies []string // names of fragments this fragment itself spreads
}

// SourceMapping is the keyed lookup the applicator consults to find where,
// in which host file, an operation's bytes live.
type SourceMapping struct {
	OperationId    string
	HostFile       string
	HostRange      ByteRange
	Interpolations []InterpolationSite
}

// Diagnostic is a non-fatal error or warning surfaced by any pipeline
// stage; the core collects these rather than swallowing them silently.
type Diagnostic struct {
	File     string
	Line     int
	Column   int
	Offset   int
	Message  string
	Code     string
	Severity string // "error" | "warning"
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s (%s)", d.File, d.Line, d.Column, d.Message, d.Code)
}

// Catalog owns every Operation and Fragment discovered during a run,
// keyed by id, plus the SourceMapping needed to splice transformations
// back into host files. It is safe for concurrent reads and writes: the
// extractor's worker pool publishes into it from multiple goroutines.
type Catalog struct {
	mu        sync.RWMutex
	ops       map[string]*Operation
	fragments map[string]*Fragment
	mappings  map[string]*SourceMapping
	byFile    map[string][]string // host file -> operation ids, insertion order
}

// NewCatalog returns an empty Catalog ready to receive extractor output.
func NewCatalog() *Catalog {
	return &Catalog{
		ops:       make(map[string]*Operation),
		fragments: make(map[string]*Fragment),
		mappings:  make(map[string]*SourceMapping),
		byFile:    make(map[string][]string),
	}
}

// Put adds or replaces an Operation and its SourceMapping. Put and
// PutFragment are the only mutating entry points besides Rename, matching the catalog's
// append-only-within-a-run contract.
func (c *Catalog) Put(op *Operation, mapping *SourceMapping) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.ops[op.Id]; !exists {
		c.byFile[op.HostFile] = append(c.byFile[op.HostFile], op.Id)
	}
	c.ops[op.Id] = op
	c.mappings[op.Id] = mapping
}

// PutFragment registers a Fragment, keyed by name.
func (c *Catalog) PutFragment(f *Fragment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fragments[f.Name] = f
}

// Get returns the Operation with the given id, or nil.
func (c *Catalog) Get(id string) *Operation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ops[id]
}

// Mapping returns the SourceMapping for the given operation id, or nil.
func (c *Catalog) Mapping(id string) *SourceMapping {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mappings[id]
}

// Fragment returns the named Fragment, or nil.
func (c *Catalog) Fragment(name string) *Fragment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fragments[name]
}

// FragmentNames returns every registered fragment's name, sorted.
func (c *Catalog) FragmentNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.fragments))
	for name := range c.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every Operation in the catalog, sorted by (HostFile, id) so
// repeated calls iterate in a stable, deterministic order.
func (c *Catalog) All() []*Operation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Operation, 0, len(c.ops))
	for _, op := range c.ops {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HostFile != out[j].HostFile {
			return out[i].HostFile < out[j].HostFile
		}
		return out[i].Id < out[j].Id
	})
	return out
}

// ByFile returns the operations extracted from a single host file, in the
// order they were first published to the catalog.
func (c *Catalog) ByFile(path string) []*Operation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := c.byFile[path]
	out := make([]*Operation, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.ops[id])
	}
	return out
}

// Rename assigns a new canonical Name to an already-catalogued operation.
// Only the Name Normalizer calls this.
func (c *Catalog) Rename(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if op, ok := c.ops[id]; ok {
		op.Name = name
	}
}

// DeprecationRule is a triple of (target path, action, optional
// replacement) derived from a single `@deprecated` annotation in a
// schema.
type DeprecationRule struct {
	ObjectType  string
	MemberName  string
	MemberKind  string // "field" | "argument" | "enum-value"
	Reason      string
	Replacement string // empty when Action is "comment-out"
	Vague       bool
	Action      string // "replace" | "comment-out"
}

// ChangeKind enumerates the kinds of rewrite the Query Transformer can
// apply to a single field or argument.
type ChangeKind string

const (
	ChangeFieldRename    ChangeKind = "field-rename"
	ChangePathRewrite    ChangeKind = "path-rewrite"
	ChangeCommentOut     ChangeKind = "comment-out"
	ChangeArgumentRename ChangeKind = "argument-rename"
)

// Change records one rewrite the transformer made (or a drop, for
// comment-out), attributing it back to the rule that triggered it.
type Change struct {
	Kind                 ChangeKind
	Path                 string // dotted selection path the change applies to
	Before               string
	After                string
	Breaking             bool
	RuleTarget           string // "ObjectType.memberName" the triggering rule was keyed by
	Reason               string
	Vague                bool
	TouchesInterpolation bool // the changed field's own selection set spreads an interpolated fragment
}

// Warning is a non-fatal note attached to a Transformation; Severity is
// "high" for vague rules, "medium" otherwise.
type Warning struct {
	Message  string
	Severity string
	Path     string
}

// Transformation is the Query Transformer's output for one Operation:
// rewritten text and AST, the ordered log of changes that produced it,
// any validation warnings, and its confidence score.
type Transformation struct {
	OperationId string
	Text        string
	AST         *ast.QueryDocument
	Changes     []Change
	Warnings    []Warning
	Confidence  int
	Category    string // "automatic" | "semi-automatic" | "manual"
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeText collapses runs of whitespace to a single space and trims
// the result; this is the canonicalization an operation's id is derived
// from.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ComputeId derives an Operation's stable id from its normalized GraphQL
// text. Fragments are not inlined before hashing: two operations with
// identical raw content hash identically regardless of host file.
func ComputeId(rawText string) string {
	sum := sha256.Sum256([]byte(NormalizeText(rawText)))
	return hex.EncodeToString(sum[:])
}

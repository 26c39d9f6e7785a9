// Package apply splices Transformations back into the host files they
// were extracted from, touching only the bytes between a host literal's
// own delimiters and leaving everything else - tag names, call
// parentheses, surrounding statements - byte-identical.
package apply

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/gitbasheer/pgql-migrate/internal/extract"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
)

// Writer persists a host file's new contents; the cobra command wires
// this to os.WriteFile, tests wire it to an in-memory map.
type Writer func(path string, content []byte) error

// Applicator rewrites host files in place, serializing concurrent
// requests against the same path behind a per-file mutex.
type Applicator struct {
	dryRun bool
	locks  sync.Map // path -> *sync.Mutex
}

// NewApplicator returns an Applicator. In dry-run mode, Apply computes
// and returns proposed file contents without ever calling write.
func NewApplicator(dryRun bool) *Applicator {
	return &Applicator{dryRun: dryRun}
}

// Result is one host file's outcome: its final bytes (proposed or
// written), the operation ids actually spliced in, and any
// per-transformation rejections that left their bytes untouched.
type Result struct {
	Path      string
	Content   []byte
	Applied   []string
	Rejected  []opcatalog.Diagnostic
	Written   bool
	Unchanged bool
}

func (a *Applicator) lockFor(path string) *sync.Mutex {
	v, _ := a.locks.LoadOrStore(path, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Apply rewrites a single host file's bytes to reflect transformations,
// keyed by operation id. It sorts the file's catalogued operations by
// host byte range and rejects the whole file if any two ranges overlap.
// A transformation that fails to splice (its wrapper can't be located,
// or a placeholder can't be matched back to its original expression) is
// rejected individually: its bytes are left unchanged and a Diagnostic
// is recorded, but the rest of the file still applies. After splicing,
// the result is re-parsed as a host file; a parse failure rejects the
// entire file and no write occurs.
func (a *Applicator) Apply(path string, original []byte, catalog *opcatalog.Catalog, transformations map[string]*opcatalog.Transformation, write Writer) (Result, error) {
	lock := a.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	type job struct {
		op *opcatalog.Operation
		tr *opcatalog.Transformation
	}

	var jobs []job
	for _, op := range catalog.ByFile(path) {
		if tr, ok := transformations[op.Id]; ok {
			jobs = append(jobs, job{op: op, tr: tr})
		}
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].op.HostRange.Start < jobs[j].op.HostRange.Start
	})

	for i := 1; i < len(jobs); i++ {
		prev, cur := jobs[i-1].op.HostRange, jobs[i].op.HostRange
		if cur.Start < prev.End {
			return Result{}, fmt.Errorf("apply %s: overlapping host ranges for operations %s and %s", path, jobs[i-1].op.Id, jobs[i].op.Id)
		}
	}

	var out []byte
	var diags []opcatalog.Diagnostic
	var applied []string
	cursor := 0

	for _, j := range jobs {
		rng := j.op.HostRange
		if rng.Start < cursor || rng.End > len(original) {
			return Result{}, fmt.Errorf("apply %s: host range for operation %s out of bounds", path, j.op.Id)
		}

		out = append(out, original[cursor:rng.Start]...)
		outer := original[rng.Start:rng.End]

		spliced, err := spliceOne(outer, j.tr.Text, j.op.Interpolations)
		if err != nil {
			diags = append(diags, opcatalog.Diagnostic{
				File: path, Offset: rng.Start, Message: err.Error(),
				Code: "apply.rejected", Severity: "error",
			})
			out = append(out, outer...)
			cursor = rng.End
			continue
		}

		out = append(out, spliced...)
		applied = append(applied, j.op.Id)
		cursor = rng.End
	}
	out = append(out, original[cursor:]...)

	if len(applied) == 0 {
		return Result{Path: path, Content: original, Rejected: diags, Unchanged: true}, nil
	}

	if err := reparseHost(path, out); err != nil {
		return Result{}, fmt.Errorf("apply %s: host file failed to re-parse after splicing: %w", path, err)
	}

	result := Result{Path: path, Content: out, Applied: applied, Rejected: diags}
	if !a.dryRun {
		if err := write(path, out); err != nil {
			return Result{}, fmt.Errorf("apply %s: %w", path, err)
		}
		result.Written = true
	}
	return result, nil
}

// spliceOne reconstructs one literal's new body and rewraps it in the
// original outer bytes' delimiters, so the tag name, call parentheses,
// and quote or backtick characters are copied from the source verbatim
// rather than regenerated.
func spliceOne(outer []byte, transformedText string, sites []opcatalog.InterpolationSite) ([]byte, error) {
	prefix, suffix, err := splitDelimited(outer)
	if err != nil {
		return nil, err
	}

	body, err := reconstructBody(transformedText, sites)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 0, len(prefix)+len(body)+len(suffix))
	result = append(result, prefix...)
	result = append(result, body...)
	result = append(result, suffix...)
	return result, nil
}

// splitDelimited locates the outermost matching quote or backtick pair
// inside a host range's bytes and returns the bytes up to and including
// the opening delimiter, the bytes strictly between the delimiters, and
// the bytes from the closing delimiter onward. It tolerates a tag
// identifier, call parentheses, or an assignment's "const NAME ="
// preamble before the opening delimiter, and a closing paren or
// semicolon after it, since HostRange always spans the whole host
// expression rather than just the literal.
func splitDelimited(outer []byte) (prefix, suffix []byte, err error) {
	openIdx := -1
	var quote byte
	for i := 0; i < len(outer); i++ {
		c := outer[i]
		if c == '`' || c == '"' || c == '\'' {
			openIdx = i
			quote = c
			break
		}
	}
	if openIdx < 0 {
		return nil, nil, fmt.Errorf("no string delimiter found in host range")
	}

	closeIdx := -1
	for i := len(outer) - 1; i > openIdx; i-- {
		if outer[i] == quote {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return nil, nil, fmt.Errorf("no matching closing delimiter found in host range")
	}

	return outer[:openIdx+1], outer[closeIdx:], nil
}

// reconstructBody restores each interpolation's original host expression
// into a transformed literal's text, replacing the deterministic
// placeholder that stands in for it. A placeholder that can't be found -
// because a rewrite deleted the field or argument it sat under, or
// because the transformed text's shape no longer matches the
// extraction's - is a structural mismatch and fails the whole
// transformation rather than silently dropping the interpolation.
func reconstructBody(transformedText string, sites []opcatalog.InterpolationSite) (string, error) {
	body := transformedText
	for i, site := range sites {
		token := extract.PlaceholderToken(site.Kind, i)
		occurrence := placeholderOccurrence(site.Kind, token)
		if !strings.Contains(body, occurrence) {
			return "", fmt.Errorf("structural mismatch: placeholder %s for interpolation %d not found in transformed text", occurrence, i)
		}
		body = strings.Replace(body, occurrence, hostExpressionText(site), 1)
	}
	return body, nil
}

// placeholderOccurrence returns the exact substring a placeholder
// contributes to the surrounding literal, including the quote
// characters the extractor folds into a string-expr placeholder.
func placeholderOccurrence(kind opcatalog.InterpolationKind, token string) string {
	if kind == opcatalog.InterpolationStringExpr {
		return "\"" + token + "\""
	}
	return token
}

// hostExpressionText restores a `${expr}` (or `"${expr}"` for a
// string-expr site, whose surrounding quotes the extractor stripped out
// of the literal text and folded into the placeholder) around an
// interpolation's original expression text.
func hostExpressionText(site opcatalog.InterpolationSite) string {
	if site.Kind == opcatalog.InterpolationStringExpr {
		return "\"${" + site.Text + "}\""
	}
	return "${" + site.Text + "}"
}

// reparseHost validates that a host file is still syntactically valid
// JS/TS/JSX after splicing, the same check the AST extraction strategy
// runs before trusting a file's bytes.
func reparseHost(path string, content []byte) error {
	loader := loaderForExt(path)
	result := api.Transform(string(content), api.TransformOptions{
		Loader: loader,
		Target: api.ESNext,
	})
	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

func loaderForExt(path string) api.Loader {
	switch {
	case strings.HasSuffix(path, ".tsx"):
		return api.LoaderTSX
	case strings.HasSuffix(path, ".ts"):
		return api.LoaderTS
	case strings.HasSuffix(path, ".jsx"):
		return api.LoaderJSX
	default:
		return api.LoaderJS
	}
}

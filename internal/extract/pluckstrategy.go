package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
)

// PluckStrategy lexically locates embedded GraphQL without parsing the
// host file, in three syntactic shapes: tagged template literals,
// recognized call expressions, and plain string assignments whose
// variable name looks like an operation or fragment. The scanner walks
// the file byte by byte, tracking real interpolation text and exact
// outer-expression byte ranges as it goes.
type PluckStrategy struct {
	opts Options
}

// NewPluckStrategy builds a PluckStrategy from the given options.
func NewPluckStrategy(opts Options) *PluckStrategy {
	return &PluckStrategy{opts: opts}
}

func (p *PluckStrategy) Name() string { return "pluck" }

func (p *PluckStrategy) CanExtract(path string) bool {
	return hasHostExtension(path)
}

func hasHostExtension(path string) bool {
	for _, ext := range []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// Extract scans content byte-by-byte for the three recognized shapes.
// The pluck strategy does no I/O of its own, so ctx is only honored for
// cancellation between top-level scan steps.
func (p *PluckStrategy) Extract(ctx context.Context, path string, content []byte) ([]Extracted, []opcatalog.Diagnostic) {
	if err := ctx.Err(); err != nil {
		return nil, []opcatalog.Diagnostic{{File: path, Message: err.Error(), Code: "cancelled", Severity: "error"}}
	}
	return p.ExtractFromBytes(path, content)
}

// ExtractFromBytes is the concrete scan entry point; Strategy.Extract
// delegates to it (kept separate so tests can call it without a context).
func (p *PluckStrategy) ExtractFromBytes(path string, content []byte) ([]Extracted, []opcatalog.Diagnostic) {
	s := newByteScanner(content)
	var results []Extracted
	var diags []opcatalog.Diagnostic

	for !s.done() {
		before := s.pos

		if e, d, matched := p.tryTaggedTemplate(s, path); matched {
			if e != nil {
				results = append(results, *e)
			}
			diags = append(diags, d...)
			continue
		}
		if e, d, matched := p.tryCallExpression(s, path); matched {
			if e != nil {
				results = append(results, *e)
			}
			diags = append(diags, d...)
			continue
		}
		if e, matched := p.tryAssignment(s, path); matched {
			if e != nil {
				results = append(results, *e)
			}
			continue
		}

		if s.pos == before {
			s.advance()
		}
	}

	return results, diags
}

func (p *PluckStrategy) tryTaggedTemplate(s *byteScanner, path string) (*Extracted, []opcatalog.Diagnostic, bool) {
	for _, tag := range p.opts.TagNames {
		if !matchesWord(s, tag) {
			continue
		}

		start := s.pos
		for i := 0; i < len(tag); i++ {
			s.advance()
		}
		s.skipWhitespace()

		hasParens := false
		if s.current() == '(' {
			hasParens = true
			s.advance()
			s.skipWhitespace()
		}

		if s.current() != '`' {
			s.pos = start
			continue
		}
		s.advance() // opening backtick

		body, interpolations, ok := scanTemplateBody(s)
		if !ok {
			return nil, []opcatalog.Diagnostic{{
				File: path, Offset: start,
				Message: "unterminated template literal", Code: "parse.host", Severity: "error",
			}}, true
		}

		if hasParens {
			s.skipWhitespace()
			if s.current() == ')' {
				s.advance()
			}
		}

		end := s.pos
		return &Extracted{
			RawText:        body,
			Interpolations: interpolations,
			HostRange:      opcatalog.ByteRange{Start: start, End: end},
			StrategyName:   p.Name(),
		}, nil, true
	}
	return nil, nil, false
}

func (p *PluckStrategy) tryCallExpression(s *byteScanner, path string) (*Extracted, []opcatalog.Diagnostic, bool) {
	for _, callee := range p.opts.CallNames {
		if !matchesWord(s, callee) {
			continue
		}

		start := s.pos
		mark := s.pos
		for i := 0; i < len(callee); i++ {
			s.advance()
		}
		s.skipWhitespace()

		if s.current() != '(' {
			s.pos = mark
			continue
		}
		s.advance() // (
		s.skipWhitespace()

		var body string
		var interpolations []opcatalog.InterpolationSite
		var ok bool

		switch s.current() {
		case '`':
			s.advance()
			body, interpolations, ok = scanTemplateBody(s)
		case '"', '\'':
			body, ok = scanSimpleString(s)
		default:
			s.pos = mark
			continue
		}

		if !ok {
			return nil, []opcatalog.Diagnostic{{
				File: path, Offset: start,
				Message: fmt.Sprintf("unterminated literal in %s(...) call", callee),
				Code:    "parse.host", Severity: "error",
			}}, true
		}

		skipToMatchingParen(s)
		end := s.pos

		return &Extracted{
			RawText:        body,
			Interpolations: interpolations,
			HostRange:      opcatalog.ByteRange{Start: start, End: end},
			StrategyName:   p.Name(),
		}, nil, true
	}
	return nil, nil, false
}

func (p *PluckStrategy) tryAssignment(s *byteScanner, path string) (*Extracted, bool) {
	for _, kw := range []string{"const", "let", "var"} {
		if !matchesWord(s, kw) {
			continue
		}

		start := s.pos
		mark := s.pos
		for i := 0; i < len(kw); i++ {
			s.advance()
		}
		s.skipWhitespace()

		nameStart := s.pos
		for !s.done() && isIdentChar(s.current()) {
			s.advance()
		}
		name := string(s.content[nameStart:s.pos])
		if name == "" || !hasOperationSuffix(name, p.opts.AssignmentSuffixes) {
			s.pos = mark
			continue
		}

		s.skipWhitespace()
		if s.current() != ':' {
			// allow an optional type annotation: NAME: Type = ...
		} else {
			s.advance()
			for !s.done() && s.current() != '=' {
				s.advance()
			}
		}
		s.skipWhitespace()
		if s.current() != '=' {
			s.pos = mark
			continue
		}
		s.advance()
		s.skipWhitespace()

		var body string
		var interpolations []opcatalog.InterpolationSite
		var ok bool
		switch s.current() {
		case '`':
			s.advance()
			body, interpolations, ok = scanTemplateBody(s)
		case '"', '\'':
			body, ok = scanSimpleString(s)
		default:
			s.pos = mark
			continue
		}
		if !ok {
			s.pos = mark
			continue
		}

		if s.current() == ';' {
			s.advance()
		}
		end := s.pos

		return &Extracted{
			RawText:        body,
			Interpolations: interpolations,
			HostRange:      opcatalog.ByteRange{Start: start, End: end},
			IsFragment:     strings.HasSuffix(name, "Fragment"),
			StrategyName:   p.Name(),
		}, true
	}
	return nil, false
}

func hasOperationSuffix(name string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}

// scanTemplateBody scans the body of a backtick template literal (scanner
// positioned just after the opening backtick), substituting a closed-set
// placeholder for each ${...} interpolation it finds. It returns false if
// the literal is never closed.
func scanTemplateBody(s *byteScanner) (string, []opcatalog.InterpolationSite, bool) {
	var content bytes.Buffer
	var interpolations []opcatalog.InterpolationSite
	idx := 0

	for !s.done() {
		c := s.current()

		if c == '`' {
			s.advance()
			return content.String(), interpolations, true
		}

		if c == '\\' {
			content.WriteByte(c)
			s.advance()
			if !s.done() {
				content.WriteByte(s.current())
				s.advance()
			}
			continue
		}

		if c == '$' && s.peek(1) == '{' {
			soFar := content.String()
			precededByEllipsis := strings.HasSuffix(strings.TrimRight(soFar, " \t\n"), "...")
			wrappedInQuotes := strings.HasSuffix(soFar, "\"")
			isOpNamePos := isOperationNamePosition(soFar)
			isFieldPos := isFieldNamePosition(soFar)

			s.advance() // $
			s.advance() // {
			exprText, ok := scanInterpolationExprText(s)
			if !ok {
				return content.String(), interpolations, false
			}

			if wrappedInQuotes {
				trimmed := content.String()
				content.Reset()
				content.WriteString(trimmed[:len(trimmed)-1])
			}

			kind := classifyInterpolation(exprText, precededByEllipsis, wrappedInQuotes, isOpNamePos, isFieldPos)
			offset := content.Len()
			content.WriteString(placeholderText(kind, idx))
			interpolations = append(interpolations, opcatalog.InterpolationSite{
				Offset: offset, Kind: kind, Text: exprText,
			})
			idx++

			if wrappedInQuotes && s.current() == '"' {
				s.advance()
			}
			continue
		}

		content.WriteByte(c)
		s.advance()
	}

	return content.String(), interpolations, false
}

// scanInterpolationExprText scans from just after "${" to the matching
// "}", tolerating nested braces and nested string/template literals.
func scanInterpolationExprText(s *byteScanner) (string, bool) {
	var buf bytes.Buffer
	depth := 0

	for !s.done() {
		c := s.current()
		switch c {
		case '{':
			depth++
			buf.WriteByte(c)
			s.advance()
		case '}':
			if depth == 0 {
				s.advance()
				return buf.String(), true
			}
			depth--
			buf.WriteByte(c)
			s.advance()
		case '`', '\'', '"':
			quote := c
			buf.WriteByte(c)
			s.advance()
			for !s.done() && s.current() != quote {
				if s.current() == '\\' {
					buf.WriteByte(s.current())
					s.advance()
					if !s.done() {
						buf.WriteByte(s.current())
						s.advance()
					}
					continue
				}
				buf.WriteByte(s.current())
				s.advance()
			}
			if !s.done() {
				buf.WriteByte(s.current())
				s.advance()
			}
		default:
			buf.WriteByte(c)
			s.advance()
		}
	}
	return buf.String(), false
}

// isFieldNamePosition reports whether an interpolation sits where a field
// name is expected: right after a selection set's opening brace, with no
// field name, argument list, or alias colon already written. This covers
// a dynamic field name spliced straight into a selection, e.g.
// `{ ${fieldName} }`, as opposed to a value used as a field's argument.
func isFieldNamePosition(soFar string) bool {
	trimmed := strings.TrimRight(soFar, " \t\n")
	return strings.HasSuffix(trimmed, "{")
}

func isOperationNamePosition(soFar string) bool {
	trimmed := strings.TrimRight(soFar, " \t\n")
	for _, kw := range []string{"query", "mutation", "subscription"} {
		if strings.HasSuffix(trimmed, kw) {
			before := trimmed[:len(trimmed)-len(kw)]
			if before == "" || !isIdentChar(before[len(before)-1]) {
				return true
			}
		}
	}
	return false
}

// scanSimpleString scans a '...' or "..." string literal (no interpolation
// support), scanner positioned at the opening quote itself.
func scanSimpleString(s *byteScanner) (string, bool) {
	quote := s.current()
	s.advance()

	var buf bytes.Buffer
	for !s.done() && s.current() != quote {
		if s.current() == '\\' {
			s.advance()
			if !s.done() {
				buf.WriteByte(s.current())
				s.advance()
			}
			continue
		}
		buf.WriteByte(s.current())
		s.advance()
	}
	if s.done() {
		return buf.String(), false
	}
	s.advance() // closing quote
	return buf.String(), true
}

func matchesWord(s *byteScanner, word string) bool {
	if s.pos > 0 && isIdentChar(s.content[s.pos-1]) {
		return false
	}
	for i := 0; i < len(word); i++ {
		if s.peek(i) != word[i] {
			return false
		}
	}
	after := s.peek(len(word))
	return !isIdentChar(after)
}

func isIdentChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') ||
		(ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9') ||
		ch == '_' || ch == '$'
}

func skipToMatchingParen(s *byteScanner) {
	depth := 1
	for !s.done() && depth > 0 {
		switch s.current() {
		case '(':
			depth++
			s.advance()
		case ')':
			depth--
			s.advance()
		case '`', '\'', '"':
			skipAtomicLiteral(s)
		default:
			s.advance()
		}
	}
}

func skipAtomicLiteral(s *byteScanner) {
	quote := s.current()
	s.advance()
	for !s.done() && s.current() != quote {
		if s.current() == '\\' {
			s.advance()
			if !s.done() {
				s.advance()
			}
			continue
		}
		if quote == '`' && s.current() == '$' && s.peek(1) == '{' {
			s.advance()
			s.advance()
			depth := 1
			for !s.done() && depth > 0 {
				switch s.current() {
				case '{':
					depth++
				case '}':
					depth--
				}
				s.advance()
			}
			continue
		}
		s.advance()
	}
	if !s.done() {
		s.advance()
	}
}

package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
)

// ASTStrategy parses the whole host file via esbuild rather than scanning
// its raw bytes, trading the pluck strategy's speed for resilience against
// TypeScript/JSX syntax that can confuse a lexical scanner (generics that
// look like tags, JSX braces that look like template interpolations).
//
// esbuild's Go API does not expose a walkable AST (api.Transform only
// returns generated code plus an optional source map). The strategy
// works around that by transforming the host file to stripped,
// type-free JavaScript, running the same lexical scan the pluck strategy
// uses against that simpler output (where tagged templates and call
// expressions are unambiguous), and translating the resulting byte ranges
// back into the original file via the emitted source map. This still
// yields higher-fidelity mappings than plucking the original TS/JSX
// source directly, at the cost of an extra transform pass per file.
type ASTStrategy struct {
	opts Options
}

func NewASTStrategy(opts Options) *ASTStrategy {
	return &ASTStrategy{opts: opts}
}

func (a *ASTStrategy) Name() string { return "ast" }

func (a *ASTStrategy) CanExtract(path string) bool {
	return hasHostExtension(path)
}

func (a *ASTStrategy) Extract(ctx context.Context, path string, content []byte) ([]Extracted, []opcatalog.Diagnostic) {
	if err := ctx.Err(); err != nil {
		return nil, []opcatalog.Diagnostic{{File: path, Message: err.Error(), Code: "cancelled", Severity: "error"}}
	}

	loader := loaderForPath(path)
	result := api.Transform(string(content), api.TransformOptions{
		Loader:     loader,
		Format:     api.FormatPreserve,
		Target:     api.ESNext,
		Sourcefile: path,
		Sourcemap:  api.SourceMapExternal,
	})

	if len(result.Errors) > 0 {
		var msgs []string
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return nil, []opcatalog.Diagnostic{{
			File: path, Message: fmt.Sprintf("esbuild parse error: %s", strings.Join(msgs, "; ")),
			Code: "parse.host", Severity: "error",
		}}
	}

	pluck := NewPluckStrategy(a.opts)
	extracted, diags := pluck.ExtractFromBytes(path, result.Code)

	mapper, err := newPositionMapper(string(result.Map), result.Code, content)
	if err != nil || mapper == nil {
		// No usable source map: fall back to reporting generated-file
		// offsets rather than dropping the hits entirely.
		for i := range extracted {
			extracted[i].StrategyName = a.Name()
		}
		return extracted, diags
	}

	for i := range extracted {
		extracted[i].StrategyName = a.Name()
		extracted[i].HostRange.Start = mapper.Translate(extracted[i].HostRange.Start)
		extracted[i].HostRange.End = mapper.Translate(extracted[i].HostRange.End)
	}

	return extracted, diags
}

func loaderForPath(path string) api.Loader {
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

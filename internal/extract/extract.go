// Package extract implements the two strategies for finding embedded
// GraphQL in host source files (a lexical pluck strategy and an AST
// strategy) and the hybrid driver that reconciles them into one canonical,
// deduplicated operation catalog.
package extract

import (
	"context"

	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
)

// Extracted is a single GraphQL hit found in a host file, before it has
// been parsed into the catalog's Operation shape. RawText already carries
// placeholders substituted for every interpolation.
type Extracted struct {
	RawText        string
	Interpolations []opcatalog.InterpolationSite
	HostRange      opcatalog.ByteRange
	IsFragment     bool
	StrategyName   string
}

// Strategy extracts embedded GraphQL hits from a single host file's
// content. Implementations must not mutate content.
type Strategy interface {
	Name() string
	CanExtract(path string) bool
	Extract(ctx context.Context, path string, content []byte) ([]Extracted, []opcatalog.Diagnostic)
}

// Options configures the recognized tag/call/assignment-suffix sets shared
// by every strategy.
type Options struct {
	TagNames           []string
	CallNames          []string
	AssignmentSuffixes []string
	Concurrency        int
}

// DefaultOptions returns the common tag/call names (`gql`, `graphql`)
// generalized with the call-expression and plain-string-assignment shapes.
func DefaultOptions() Options {
	return Options{
		TagNames:           []string{"gql", "graphql"},
		CallNames:          []string{"gql", "graphql", "parse"},
		AssignmentSuffixes: []string{"Fragment", "Query", "Mutation", "Subscription", "Document"},
		Concurrency:        4,
	}
}

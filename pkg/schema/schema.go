package schema

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// Schema represents a parsed and validated GraphQL schema using gqlparser
type Schema interface {
	// Hash returns a hash of the schema's type names and deprecated members
	Hash() string

	// Raw returns the underlying gqlparser schema
	Raw() *ast.Schema

	// GetType looks up a type by name
	GetType(name string) *ast.Definition

	// GetQueryType returns the query type
	GetQueryType() *ast.Definition

	// GetMutationType returns the mutation type (may be nil)
	GetMutationType() *ast.Definition

	// GetSubscriptionType returns the subscription type (may be nil)
	GetSubscriptionType() *ast.Definition

	// Validate validates the schema
	Validate() error
}

// Source represents a schema source configuration
type Source struct {
	ID      SourceID
	Kind    string            // "file" | "url" | "introspection"
	Path    string            // File path for file-based schemas
	URL     string            // URL for remote schemas
	Headers map[string]string // HTTP headers for remote schemas
}

// SourceID uniquely identifies a schema source
type SourceID string

// Loader loads schema from various sources
type Loader interface {
	// Load loads schema from the given sources
	Load(ctx context.Context, sources []Source) (Schema, error)

	// LoadFromFile loads schema from a file
	LoadFromFile(ctx context.Context, path string) (Schema, error)

	// LoadFromURL loads schema from a URL
	LoadFromURL(ctx context.Context, url string, headers map[string]string) (Schema, error)

	// LoadFromString loads schema from a string
	LoadFromString(ctx context.Context, schemaStr string, sourceName string) (Schema, error)
}

// schemaImpl is the concrete implementation of Schema
type schemaImpl struct {
	schema *ast.Schema
	hash   string
	source string
}

// NewSchema creates a new Schema from gqlparser AST. The hash folds in
// every type's deprecated members (name and reason, not just presence)
// alongside the type names themselves, so a schema edit that only adds
// or changes a @deprecated directive - exactly the kind of change this
// tool cares about - produces a different hash even though the shape of
// the schema is otherwise unchanged.
func NewSchema(astSchema *ast.Schema, source string) Schema {
	return &schemaImpl{
		schema: astSchema,
		hash:   ComputeHash([]byte(fingerprint(astSchema))),
		source: source,
	}
}

func fingerprint(astSchema *ast.Schema) string {
	names := make([]string, 0, len(astSchema.Types))
	for name := range astSchema.Types {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	for _, name := range names {
		sb.WriteString(name)
		def := astSchema.Types[name]
		for _, field := range def.Fields {
			if dir := field.Directives.ForName("deprecated"); dir != nil {
				sb.WriteString("|deprecated:")
				sb.WriteString(name)
				sb.WriteString(".")
				sb.WriteString(field.Name)
				sb.WriteString(":")
				if arg := dir.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
					sb.WriteString(arg.Value.Raw)
				}
			}
		}
		for _, val := range def.EnumValues {
			if dir := val.Directives.ForName("deprecated"); dir != nil {
				sb.WriteString("|deprecated:")
				sb.WriteString(name)
				sb.WriteString(".")
				sb.WriteString(val.Name)
				sb.WriteString(":")
				if arg := dir.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
					sb.WriteString(arg.Value.Raw)
				}
			}
		}
	}
	return sb.String()
}

func (s *schemaImpl) Hash() string {
	return s.hash
}

func (s *schemaImpl) Raw() *ast.Schema {
	return s.schema
}

func (s *schemaImpl) GetType(name string) *ast.Definition {
	if s.schema == nil || s.schema.Types == nil {
		return nil
	}
	return s.schema.Types[name]
}

func (s *schemaImpl) GetQueryType() *ast.Definition {
	if s.schema == nil || s.schema.Query == nil {
		return nil
	}
	return s.schema.Query
}

func (s *schemaImpl) GetMutationType() *ast.Definition {
	if s.schema == nil {
		return nil
	}
	return s.schema.Mutation
}

func (s *schemaImpl) GetSubscriptionType() *ast.Definition {
	if s.schema == nil {
		return nil
	}
	return s.schema.Subscription
}

func (s *schemaImpl) Validate() error {
	// Schema is already validated by gqlparser during loading
	return nil
}

// ComputeHash computes a SHA256 hash of the given data
func ComputeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gitbasheer/pgql-migrate/internal/apply"
	"github.com/gitbasheer/pgql-migrate/internal/extract"
	"github.com/gitbasheer/pgql-migrate/internal/loader"
	"github.com/gitbasheer/pgql-migrate/internal/normalize"
	"github.com/gitbasheer/pgql-migrate/internal/transform"
	"github.com/gitbasheer/pgql-migrate/pkg/config"
	"github.com/gitbasheer/pgql-migrate/pkg/deprecation"
	"github.com/gitbasheer/pgql-migrate/pkg/opcatalog"
	"github.com/gitbasheer/pgql-migrate/pkg/schema"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/ast"
)

var (
	version = "0.1.0"
	cfgFile string
	verbose bool
	quiet   bool
	write   bool
)

var rootCmd = &cobra.Command{
	Use:     "pgqlmigrate",
	Short:   "Migrate GraphQL operations embedded in TypeScript/JavaScript off deprecated schema fields",
	Long:    `pgqlmigrate extracts GraphQL operations embedded in host TypeScript/JavaScript files, rewrites them against a schema's @deprecated directives, and splices the rewritten operations back into their original source.`,
	Version: version,
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and catalog embedded GraphQL operations without transforming them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		files, err := resolveFiles(cfg)
		if err != nil {
			return fmt.Errorf("resolving documents: %w", err)
		}

		driver := extract.NewHybridDriver(extract.DefaultOptions(), cfg.Strategy, nil)
		catalog, diags, err := driver.Run(cmd.Context(), files, os.ReadFile)
		if err != nil {
			return fmt.Errorf("extracting: %w", err)
		}

		ops := catalog.All()
		if !quiet {
			fmt.Printf("catalogued %d operations across %d file(s)\n", len(ops), len(files))
		}
		printDiagnostics(diags)
		return nil
	},
}

var analyzeDeprecationsCmd = &cobra.Command{
	Use:   "analyze-deprecations",
	Short: "Scan the configured schema's @deprecated directives and report the rules derived from them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sch, err := loadSchema(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}

		rules := deprecation.Analyze(sch)
		summary := rules.Summarize()
		fmt.Printf("%d deprecated member(s): %d replaceable, %d vague (%d field, %d argument)\n",
			summary.Total, summary.Replaceable, summary.Vague, summary.FieldLevel, summary.ArgumentLevel)

		for _, rule := range rules.All() {
			fmt.Printf("  %s.%s [%s] -> %s (%s)\n", rule.ObjectType, rule.MemberName, rule.MemberKind, describeRule(rule), rule.Action)
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Rewrite operations against deprecated schema members and splice the result back into host files",
	Long:  `migrate runs the full pipeline: extract, normalize operation names, analyze schema deprecations, transform each operation, and apply the result to host files. It defaults to a dry run; pass --write to persist changes to disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		sch, err := loadSchema(ctx, cfg)
		if err != nil {
			return fmt.Errorf("loading schema: %w", err)
		}

		files, err := resolveFiles(cfg)
		if err != nil {
			return fmt.Errorf("resolving documents: %w", err)
		}

		driver := extract.NewHybridDriver(extract.DefaultOptions(), cfg.Strategy, nil)
		catalog, diags, err := driver.Run(ctx, files, os.ReadFile)
		if err != nil {
			return fmt.Errorf("extracting: %w", err)
		}
		printDiagnostics(diags)

		if cfg.ResolveFragments {
			printDiagnostics(normalize.NewFragmentResolver(catalog).ExpandAll(catalog))
		}

		diags = normalize.NewNormalizer(cfg.QueryNames).Normalize(catalog)
		printDiagnostics(diags)

		rules := deprecation.Analyze(sch)
		thresholds := transform.Thresholds{Automatic: cfg.Thresholds.Automatic, SemiAutomatic: cfg.Thresholds.SemiAutomatic}
		transformer := transform.NewTransformer(rules, sch, thresholds)

		byFile := make(map[string]map[string]*opcatalog.Transformation)
		var automatic, semiAutomatic, manual int

		for _, op := range catalog.All() {
			result, err := transformer.Transform(op)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", op.HostFile, err)
				continue
			}
			if len(result.Changes) == 0 {
				continue
			}

			switch result.Category {
			case "automatic":
				automatic++
			case "semi-automatic":
				semiAutomatic++
			default:
				manual++
			}

			if byFile[op.HostFile] == nil {
				byFile[op.HostFile] = make(map[string]*opcatalog.Transformation)
			}
			byFile[op.HostFile][op.Id] = result

			if verbose {
				for _, w := range result.Warnings {
					fmt.Printf("  [%s] %s\n", w.Severity, w.Message)
				}
			}
		}

		if !quiet {
			fmt.Printf("%d operation(s) need changes: %d automatic, %d semi-automatic, %d manual\n",
				automatic+semiAutomatic+manual, automatic, semiAutomatic, manual)
		}

		applicator := apply.NewApplicator(!write)

		var paths []string
		for path := range byFile {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		for _, path := range paths {
			original, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reading %s: %v\n", path, err)
				continue
			}

			result, err := applicator.Apply(path, original, catalog, byFile[path], writeFile)
			if err != nil {
				fmt.Fprintf(os.Stderr, "applying %s: %v\n", path, err)
				continue
			}
			for _, d := range result.Rejected {
				fmt.Fprintf(os.Stderr, "  rejected in %s: %s\n", path, d.Message)
			}
			if result.Unchanged {
				continue
			}

			action := "would write"
			if result.Written {
				action = "wrote"
			}
			fmt.Printf("%s %s (%d operation(s) applied)\n", action, path, len(result.Applied))
		}

		return nil
	},
}

func writeFile(path string, content []byte) error {
	return os.WriteFile(path, content, 0o644)
}

func describeRule(rule *opcatalog.DeprecationRule) string {
	if rule.Action == "comment-out" {
		return "comment-out (vague reason)"
	}
	return rule.Replacement
}

func loadConfig() (*config.Config, error) {
	var configPath string
	var err error

	if cfgFile != "" {
		configPath = cfgFile
	} else {
		configPath, err = config.DiscoverConfig("")
		if err != nil {
			return nil, fmt.Errorf("discovering config: %w", err)
		}
	}

	if !quiet {
		fmt.Printf("loading config from: %s\n", configPath)
	}

	var cfg *config.Config
	if filepath.Base(configPath) == "package.json" {
		cfg, err = config.LoadFromPackageJSON(configPath)
	} else {
		cfg, err = config.LoadFile(configPath)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg.ResolveRelativePaths(configPath)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Verbose = cfg.Verbose || verbose
	return cfg, nil
}

// loadSchema loads every configured schema source and parses them
// together into one *ast.Schema. The config's onTypeConflict setting is
// not consulted here.
func loadSchema(ctx context.Context, cfg *config.Config) (*ast.Schema, error) {
	sources := make([]schema.Source, len(cfg.Schema))
	for i, s := range cfg.Schema {
		sources[i] = schema.Source{
			ID:      schema.SourceID(fmt.Sprintf("source-%d", i)),
			Kind:    s.Type,
			Path:    s.Path,
			URL:     s.URL,
			Headers: s.Headers,
		}
	}

	sl := loader.NewUniversalSchemaLoader()
	loaded, err := sl.Load(ctx, sources)
	if err != nil {
		return nil, err
	}
	printDiagnostics(sl.LastDiagnostics())
	return loaded.Raw(), nil
}

// resolveFiles expands a config's document include/exclude globs
// (supporting "**" recursive matching) into a sorted, deduplicated list
// of host file paths.
func resolveFiles(cfg *config.Config) ([]string, error) {
	excluded := make(map[string]bool)
	for _, pattern := range cfg.Documents.Exclude {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			excluded[m] = true
		}
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range cfg.Documents.Include {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if excluded[m] || seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

func printDiagnostics(diags []opcatalog.Diagnostic) {
	for _, d := range diags {
		if d.Severity == "error" {
			fmt.Fprintf(os.Stderr, "error: %s\n", d.Error())
		} else if verbose {
			fmt.Fprintf(os.Stderr, "warning: %s\n", d.Error())
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: auto-discover pgqlmigrate.{ts,js,yaml,yml})")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "quiet output")
	migrateCmd.Flags().BoolVar(&write, "write", false, "persist rewritten operations to their host files (default is a dry run)")

	rootCmd.AddCommand(extractCmd, analyzeDeprecationsCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// Package main provides the HelixDB CLI entry point: a thin driver over
// the storage engine, the compiler, and the bulk loader. It does not
// implement an HTTP gateway or a full operator CLI (those are out of
// scope); it exists so the in-scope subsystems can be exercised from a
// shell, in the style of cmd/nornicdb/main.go's cobra command tree.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/helixdb/helix/internal/storage"
	"github.com/helixdb/helix/internal/vector"
	"github.com/helixdb/helix/pkg/analyzer"
	"github.com/helixdb/helix/pkg/codegen"
	"github.com/helixdb/helix/pkg/config"
	"github.com/helixdb/helix/pkg/ingest"
	"github.com/helixdb/helix/pkg/parser"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "helix",
		Short: "HelixDB - an embedded graph and vector database",
		Long: `HelixDB compiles HelixQL queries directly against a Badger-backed
storage engine, combining typed graph traversal with vector similarity
search.`,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("helix v%s (%s)\n", version, commit)
		},
	})

	var queryParams []string
	queryCmd := &cobra.Command{
		Use:   "query <file.hx>",
		Short: "Compile and run every query declared in a HelixQL source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			params, err := parseParamFlags(queryParams)
			if err != nil {
				return err
			}
			return runQuery(cfg, args[0], params)
		},
	}
	queryCmd.Flags().StringArrayVar(&queryParams, "param", nil, "query parameter as name=value, repeatable")
	rootCmd.AddCommand(queryCmd)

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Bulk-load nodes or edges from a JSON-lines file",
	}

	var ingestSchemaPath string
	nodesCmd := &cobra.Command{
		Use:   "nodes <file.jsonl>",
		Short: "Bulk-load nodes from a JSON-lines file of NodePayload records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runIngestNodes(cfg, ingestSchemaPath, args[0])
		},
	}
	nodesCmd.Flags().StringVar(&ingestSchemaPath, "schema", "", "HelixQL file declaring the schema to validate indexed fields against")
	ingestCmd.AddCommand(nodesCmd)

	edgesCmd := &cobra.Command{
		Use:   "edges <file.jsonl>",
		Short: "Bulk-load edges from a JSON-lines file of EdgePayload records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runIngestEdges(cfg, ingestSchemaPath, args[0])
		},
	}
	edgesCmd.Flags().StringVar(&ingestSchemaPath, "schema", "", "HelixQL file declaring the schema to validate indexed fields against")
	ingestCmd.AddCommand(edgesCmd)

	rootCmd.AddCommand(ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openEngine opens the storage engine cfg's database section names,
// in-memory or on disk.
func openEngine(cfg *config.Config) (*storage.Engine, error) {
	if cfg.Database.InMemory {
		return storage.OpenInMemory()
	}
	return storage.Open(cfg.Database.DataDir)
}

func runQuery(cfg *config.Config, path string, params map[string]any) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("helix: reading %s: %w", path, err)
	}

	f, err := parser.Parse(path, string(src))
	if err != nil {
		return fmt.Errorf("helix: parsing %s: %w", path, err)
	}

	res := analyzer.Analyze(f)
	if res.HasErrors() {
		for _, d := range res.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s:%d: %s: %s\n", d.Loc.File, d.Loc.Start, d.Severity, d.Message)
		}
		return fmt.Errorf("helix: %s failed analysis", path)
	}

	engine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("helix: opening storage: %w", err)
	}
	defer engine.Close()

	db := &codegen.Database{Engine: engine, Vector: vector.New()}

	for _, lq := range res.Queries {
		handler := codegen.Build(res.Schema, lq)
		resp, err := handler(context.Background(), db, params)
		if err != nil {
			return fmt.Errorf("helix: %s: %w", lq.Query.Name, err)
		}
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("helix: encoding response: %w", err)
		}
		fmt.Printf("%s =>\n%s\n", lq.Query.Name, out)
	}
	return nil
}

func runIngestNodes(cfg *config.Config, schemaPath, dataPath string) error {
	schema, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("helix: opening storage: %w", err)
	}
	defer engine.Close()

	f, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("helix: opening %s: %w", dataPath, err)
	}
	defer f.Close()

	loader := ingest.NewBulkLoader(engine, schema)
	ids, err := ingest.LoadNodesFromReader(loader, f)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d node(s)\n", len(ids))
	return nil
}

func runIngestEdges(cfg *config.Config, schemaPath, dataPath string) error {
	schema, err := loadSchema(schemaPath)
	if err != nil {
		return err
	}
	engine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("helix: opening storage: %w", err)
	}
	defer engine.Close()

	f, err := os.Open(dataPath)
	if err != nil {
		return fmt.Errorf("helix: opening %s: %w", dataPath, err)
	}
	defer f.Close()

	loader := ingest.NewBulkLoader(engine, schema)
	if err := ingest.LoadEdgesFromReader(loader, f); err != nil {
		return err
	}
	fmt.Println("loaded edges")
	return nil
}

// loadSchema parses path (when non-empty) and returns its resolved
// schema; an empty path yields an empty schema, so ingest still works
// without INDEX- or endpoint-label lookups for callers that don't need
// them.
func loadSchema(path string) (*analyzer.SchemaInfo, error) {
	if path == "" {
		return &analyzer.SchemaInfo{
			Nodes:   map[string]*analyzer.NodeInfo{},
			Edges:   map[string]*analyzer.EdgeInfo{},
			Vectors: map[string]*analyzer.VectorInfo{},
		}, nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("helix: reading schema %s: %w", path, err)
	}
	f, err := parser.Parse(path, string(src))
	if err != nil {
		return nil, fmt.Errorf("helix: parsing schema %s: %w", path, err)
	}
	schema, diags := analyzer.BuildSchema(f)
	for _, d := range diags {
		if d.Severity == analyzer.SeverityError {
			return nil, fmt.Errorf("helix: schema %s: %s", path, d.Message)
		}
	}
	return schema, nil
}

// parseParamFlags converts "name=value" flags into a params map, coercing
// each value into the narrowest plain Go type it parses as (int64, float64,
// bool, or string) so bindParams's codec.FromAny conversion sees the right
// shape without the CLI needing to know each query parameter's declared
// type up front.
func parseParamFlags(flags []string) (map[string]any, error) {
	out := make(map[string]any, len(flags))
	for _, f := range flags {
		name, raw, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("helix: --param %q must be name=value", f)
		}
		out[name] = coerceParam(raw)
	}
	return out, nil
}

func coerceParam(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

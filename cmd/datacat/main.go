// Command datacat manages a datacat storage directory from the shell:
// saving float arrays, inspecting rows, querying the catalog and printing
// aggregate statistics.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/datacat-io/datacat"
	"github.com/datacat-io/datacat/pkg/npack"
)

var (
	configPath string
	verbose    bool
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "datacat",
	Short: "CLI for content-addressed array catalog storage",
	Long: `A command-line interface for managing named-array bundles paired with
queryable metadata rows in an embedded SQLite catalog.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      level,
			TimeFormat: "15:04:05",
			NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		}))
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the catalog database and blob directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		fmt.Printf("Storage initialized with schema %v\n", store.Fields())
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a bundle of float arrays under its metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		metaPairs, _ := cmd.Flags().GetStringArray("meta")
		arrayPairs, _ := cmd.Flags().GetStringArray("array")

		metadata, err := parsePairs(metaPairs)
		if err != nil {
			return fmt.Errorf("invalid --meta: %w", err)
		}
		bundle, err := parseArrays(arrayPairs)
		if err != nil {
			return fmt.Errorf("invalid --array: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.Save(context.Background(), bundle, metadata)
		if err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}
		fmt.Println(id)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the catalog row for an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		row, err := store.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		return printJSON(row)
	},
}

var loadCmd = &cobra.Command{
	Use:   "load <id>",
	Short: "Load a bundle and print a summary of its arrays",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		bundle, err := store.Load(context.Background(), args[0])
		if err != nil {
			return err
		}
		for name, arr := range bundle {
			fmt.Printf("%s\t%s\tshape=%v\tlen=%d\n", name, arr.Kind, arr.Shape, arr.Len())
		}
		return nil
	},
	Args: cobra.ExactArgs(1),
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query catalog rows by metadata",
	RunE: func(cmd *cobra.Command, args []string) error {
		filterPairs, _ := cmd.Flags().GetStringArray("filter")
		where, _ := cmd.Flags().GetString("where")
		orderBy, _ := cmd.Flags().GetString("order-by")
		limit, _ := cmd.Flags().GetInt("limit")

		filters, err := parsePairs(filterPairs)
		if err != nil {
			return fmt.Errorf("invalid --filter: %w", err)
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := store.Query(context.Background(), datacat.QueryOptions{
			Filters: filters,
			Where:   where,
			OrderBy: orderBy,
			Limit:   limit,
		})
		if err != nil {
			return err
		}
		return printJSON(rows)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every catalog row",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		rows, err := store.ListAll(context.Background())
		if err != nil {
			return err
		}
		return printJSON(rows)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an object, blob and row both",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Object %s deleted\n", args[0])
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print catalog statistics (full-table aggregation)",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats(context.Background())
		if err != nil {
			return err
		}
		return printJSON(stats)
	},
}

func openStore() (*datacat.Storage, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Logger = logger
	store, err := datacat.Open(context.Background(), cfg, npack.New())
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

// parsePairs turns repeated key=value flags into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}

// parseArrays turns repeated name=v1,v2,... flags into a float bundle.
func parseArrays(pairs []string) (datacat.Bundle, error) {
	bundle := make(datacat.Bundle, len(pairs))
	for _, p := range pairs {
		name, list, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=v1,v2,..., got %q", p)
		}
		parts := strings.Split(list, ",")
		values := make([]float64, 0, len(parts))
		for _, part := range parts {
			val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return nil, fmt.Errorf("array %q: %w", name, err)
			}
			values = append(values, val)
		}
		bundle[name] = datacat.NewFloats([]int{len(values)}, values)
	}
	return bundle, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "datacat.yaml", "Path to yaml config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	saveCmd.Flags().StringArray("meta", nil, "Metadata field as key=value (repeatable, must cover the schema)")
	saveCmd.Flags().StringArray("array", nil, "Float array as name=v1,v2,... (repeatable)")

	queryCmd.Flags().StringArray("filter", nil, "Equality filter as field=value (repeatable)")
	queryCmd.Flags().String("where", "", "Raw SQL predicate ANDed with filters (trusted input only)")
	queryCmd.Flags().String("order-by", "", "Raw ORDER BY clause body")
	queryCmd.Flags().Int("limit", 0, "Maximum rows to return (0 = unlimited)")

	rootCmd.AddCommand(initCmd, saveCmd, getCmd, loadCmd, queryCmd, listCmd, deleteCmd, statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

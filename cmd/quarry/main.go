package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/quarry"
	"github.com/jward/quarry/internal/config"
)

var (
	flagDB         string
	flagFormat     string
	flagRoot       string
	flagVerbose    bool
	flagBatchSize  int
	flagScriptsDir string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "quarry",
	Short:         "Structural search over Java sources and libraries",
	Long:          "Quarry indexes Java sources and library manifests into a SQLite database and answers declaration, reference and package searches against it.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: the config's database, .quarry/index.db)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "project root (default: enclosing git repository of the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log pipeline events to stderr")
	rootCmd.PersistentFlags().IntVar(&flagBatchSize, "batch-size", 0, "documents processed per search batch (default: from config)")
	rootCmd.PersistentFlags().StringVar(&flagScriptsDir, "scripts-dir", "", "directory pattern expressions import .risor files from")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(hierarchyCmd)
}

var (
	flagForce   bool
	flagWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index the Java sources and libraries of a project",
	Long:  "Parses every .java file under path, records its posting lists and declarations, then indexes the library manifests of each build context.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel extraction workers (default: from config)")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()
	stderr := cmd.ErrOrStderr()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	root := flagRoot
	if root == "" {
		root = findRepoRoot(targetDir)
	}
	if root, err = filepath.Abs(root); err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(root, cfg)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(stderr, "Cleared database: %s\n", dbPath)
	}

	opts := engineOptions(cfg, stderr)
	if flagWorkers > 0 {
		opts = append(opts, quarry.WithWorkers(flagWorkers))
	}
	engine, err := quarry.New(dbPath, opts...)
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	defer engine.Close()

	if err := engine.IndexDirectory(cmd.Context(), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	n, err := engine.Store().DocumentCount()
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Indexed %s in %s (%d documents)\n", targetDir, time.Since(start).Round(time.Millisecond), n)
	fmt.Fprintf(stderr, "Database: %s\n", dbPath)
	return nil
}

// engineOptions builds the Engine options shared by every command.
func engineOptions(cfg *config.Config, logOut io.Writer) []quarry.Option {
	opts := []quarry.Option{
		quarry.WithConfig(cfg),
		quarry.WithLogger(newLogger(logOut)),
	}
	if flagBatchSize > 0 {
		opts = append(opts, quarry.WithBatchSize(flagBatchSize))
	}
	if flagScriptsDir != "" {
		opts = append(opts, quarry.WithScriptsDir(flagScriptsDir))
	}
	return opts
}

// newLogger returns a text logger on w, or a discarding one unless
// --verbose is set.
func newLogger(w io.Writer) *slog.Logger {
	if !flagVerbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// openEngine opens the index of the current project for a search command.
func openEngine(cmd *cobra.Command) (*quarry.Engine, string, error) {
	root := flagRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", fmt.Errorf("getting cwd: %w", err)
		}
		root = findRepoRoot(cwd)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, "", fmt.Errorf("resolving root %q: %w", root, err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, "", err
	}
	dbPath := resolveDBPath(root, cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("database not found: %s (run 'quarry index' first)", dbPath)
	}
	engine, err := quarry.New(dbPath, engineOptions(cfg, cmd.ErrOrStderr())...)
	if err != nil {
		return nil, "", fmt.Errorf("opening engine: %w", err)
	}
	return engine, root, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, else the
// configured one, relative to the project root.
func resolveDBPath(root string, cfg *config.Config) string {
	p := flagDB
	if p == "" {
		p = cfg.Database
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

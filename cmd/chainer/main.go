package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cognicore/chainer/pkg/chainer"
	"github.com/cognicore/chainer/pkg/chainer/config"
	"github.com/cognicore/chainer/pkg/chainer/store"
	"github.com/cognicore/chainer/pkg/chainer/store/memstore"
	"github.com/cognicore/chainer/pkg/chainer/store/sqlite"
)

var (
	// Global flags
	verbose bool
	timeout time.Duration

	// run / rules
	kbPath     string
	enginePath string
	dbPath     string

	// records
	runID string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chainer",
	Short: "Forward chaining over a knowledge base",
	Long: `chainer derives new facts from a knowledge base by forward chaining.

Each step selects a source fact, picks a rule that can fire on it, applies
the rule and adds the products to the pool of sources.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Chain from the knowledge base sources and print the derived facts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return runChain(ctx, cmd.OutOrStdout(), kbPath, enginePath, dbPath, logger)
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules of a knowledge base",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listRules(cmd.OutOrStdout(), kbPath)
	},
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Show inference records persisted in a database",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return listRecords(ctx, cmd.OutOrStdout(), dbPath, runID)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	runCmd.Flags().StringVar(&kbPath, "kb", "", "Knowledge base file (required)")
	runCmd.Flags().StringVar(&enginePath, "config", "", "Engine config file")
	runCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for facts and records (default: in memory)")
	runCmd.MarkFlagRequired("kb")

	rulesCmd.Flags().StringVar(&kbPath, "kb", "", "Knowledge base file (required)")
	rulesCmd.MarkFlagRequired("kb")

	recordsCmd.Flags().StringVar(&dbPath, "db", "", "SQLite database (required)")
	recordsCmd.Flags().StringVar(&runID, "run", "", "Only show this run")
	recordsCmd.MarkFlagRequired("db")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(recordsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, path string) (store.Store, error) {
	if path == "" {
		return memstore.New(), nil
	}
	return sqlite.OpenSQLite(ctx, path)
}

// runChain loads the configuration, chains and prints the products.
func runChain(ctx context.Context, out io.Writer, kb, engine, db string, log *zap.Logger) error {
	loader := config.Loader{EnginePath: engine, KnowledgeBasePath: kb}
	comp, err := loader.Load()
	if err != nil {
		return err
	}

	st, err := openStore(ctx, db)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	c, req, err := chainer.FromComponents(ctx, st, comp, log)
	if err != nil {
		st.Close()
		return err
	}
	defer c.Close()

	log.Info("Chaining",
		zap.Int("facts", len(comp.Facts)),
		zap.Int("rules", comp.Catalog.Len()),
		zap.Bool("bulk", req.Source == nil))

	res, err := c.Run(ctx, req)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "run %s: %d iterations, %d records, %d products", res.RunID, res.Iterations, len(res.Records), len(res.Products))
	if res.Reason != "" {
		fmt.Fprintf(out, " (%s)", res.Reason)
	}
	fmt.Fprintln(out)
	for _, p := range res.Products {
		fmt.Fprintln(out, p)
	}
	return nil
}

// listRules prints one line per rule of the knowledge base.
func listRules(out io.Writer, kb string) error {
	comp, err := (&config.Loader{KnowledgeBasePath: kb}).Load()
	if err != nil {
		return err
	}
	for _, r := range comp.Catalog.Rules() {
		kind := "rule"
		if r.Meta {
			kind = "meta"
		}
		fmt.Fprintf(out, "%-4s %-24s %s premises=%d conclusions=%d\n", kind, r.Name, r.TV, len(r.Premises), len(r.Conclusions))
	}
	return nil
}

// listRecords prints persisted inference records.
func listRecords(ctx context.Context, out io.Writer, db, run string) error {
	st, err := sqlite.OpenSQLite(ctx, db)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	records, err := st.Records(ctx, run)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(out, "%s run=%s iter=%d rule=%s source=%s\n", r.ID, r.RunID, r.Iteration, r.Rule, r.Source)
		if len(r.Products) > 0 {
			fmt.Fprintf(out, "  => %s\n", strings.Join(r.Products, "\n  => "))
		}
	}
	return nil
}

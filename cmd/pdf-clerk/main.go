// Command pdf-clerk turns invoice PDFs and receipt photos into the
// reimbursement and procurement spreadsheets of a research lab, keeps the
// archive of reimbursed invoices tidy and summarizes papers with an LLM.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-clerk/internal/config"
	"github.com/a3tai/pdf-clerk/internal/logging"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "pdf-clerk",
		Short: "Invoice, receipt and paper paperwork for research labs",
		Long: `pdf-clerk reads invoice PDFs (falling back to OCR for scans) and writes the
expense reimbursement workbook, builds procurement requests from receipt photos,
tracks which invoices were already reimbursed and summarizes PDFs with an LLM.

Configuration comes from flags, CLERK_* environment variables, a .env file
and an optional --config file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logger
			if version != "dev" {
				a.cfg.Server.Version = version
			}
			logger.Debug("configuration loaded", zap.String("config", cfg.String()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newExpenseCmd(a),
		newCheckCmd(a),
		newReconcileCmd(a),
		newDedupeCmd(a),
		newProcureCmd(a),
		newConvertCmd(a),
		newOCRImagesCmd(a),
		newOrdersCmd(a),
		newSummarizeCmd(a),
		newServeCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(a.out)
		},
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "pdf-clerk\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

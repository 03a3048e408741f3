package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/oklog/run"
	"github.com/spf13/cobra"

	"codeberg.org/snonux/ynlb/internal/cli"
	"codeberg.org/snonux/ynlb/internal/log"
	"codeberg.org/snonux/ynlb/internal/processor"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// Create flags instance
	flags := cli.NewFlags()

	// Create commands
	rootCmd := cli.CreateRootCommand(flags)
	historyCmd := cli.CreateHistoryCommand(rootCmd, flags)

	rootCmd.SetArgs(args[1:])
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	var logger log.Logger = log.Noop
	var proc *processor.Processor

	// Config is read once flags are parsed, so --config is honoured.
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cli.InitConfig(flags.CfgFile)
		logger = cli.NewLogger(flags, stderr)

		p, err := processor.NewProcessor(processor.Config{
			Flags:  flags,
			Stdin:  stdin,
			Stdout: stdout,
			Stderr: stderr,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		proc = p
		return nil
	}
	defer func() {
		if proc == nil {
			return
		}
		if err := proc.Close(); err != nil {
			logger.Warningf("Could not close processor: %s", err)
		}
	}()

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		switch {
		case flags.Archive:
			return proc.ArchiveReports()
		case flags.ListModels:
			return proc.ListModels(ctx)
		case flags.BatchFile != "":
			return proc.ProcessBatch(ctx)
		case len(args) > 0:
			return proc.TranslateText(ctx, args[0])
		default:
			return cmd.Help()
		}
	}

	historyCmd.List.RunE = func(cmd *cobra.Command, _ []string) error {
		return proc.ListHistory(cmd.Context())
	}
	historyCmd.Show.RunE = func(cmd *cobra.Command, args []string) error {
		return proc.ShowHistory(cmd.Context(), args[0])
	}
	historyCmd.Delete.RunE = func(cmd *cobra.Command, args []string) error {
		return proc.DeleteHistory(cmd.Context(), args[0])
	}
	historyCmd.Clear.RunE = func(cmd *cobra.Command, _ []string) error {
		return proc.ClearHistory(cmd.Context())
	}
	historyCmd.Export.RunE = func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return proc.ExportHistory(cmd.Context(), path)
	}
	historyCmd.Import.RunE = func(cmd *cobra.Command, args []string) error {
		return proc.ImportHistory(cmd.Context(), args[0])
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				return rootCmd.ExecuteContext(ctx)
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

// errorMessage is what the user sees for err.
func errorMessage(err error) string {
	if errors.Is(err, processor.ErrEmptyInput) {
		return "Please enter some text to translate."
	}
	return fmt.Sprintf("Error: %s", err)
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

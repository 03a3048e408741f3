package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/ynlb/internal"
)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ynlb [text]",
		Short: "English to Yoruba translator",
		Long: `ynlb translates English text to Yoruba with an NLLB model or a
hosted LLM backend.

Single texts are streamed to the terminal and stored in the translation
history. Bulk files are translated line by line by a pool of parallel
workers and exported as a two-column spreadsheet report.

Examples:
  ynlb "Good morning"               # Translate one text
  echo "Thank you" | ynlb -         # Translate text from stdin
  ynlb --batch lines.txt -w 4       # Translate a file with 4 workers
  ynlb history list                 # Show recent translations`,
		Args:          cobra.MaximumNArgs(1),
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.ynlb.yaml)")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.NoLog, "no-log", false, "Disable logging")
	cmd.PersistentFlags().StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: default or json")
	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "Print protocol events as newline delimited JSON")

	// Local flags
	cmd.Flags().StringVarP(&flags.BatchFile, "batch", "b", "", "Translate a plain text file, one item per line (- for stdin)")
	cmd.Flags().StringVarP(&flags.OutputDir, "output", "o", DefaultReportsDir(), "Report directory")
	cmd.Flags().StringVarP(&flags.ReportFormat, "format", "f", flags.ReportFormat, "Report format (xlsx or csv)")
	cmd.Flags().BoolVar(&flags.NoReport, "no-report", false, "Do not write a report after a bulk run")
	cmd.Flags().BoolVar(&flags.ShowTable, "table", false, "Print the bulk results as a table")
	cmd.Flags().BoolVar(&flags.SaveHistory, "save-history", false, "Record bulk translations in the history")
	cmd.Flags().BoolVar(&flags.NoHistory, "no-history", false, "Do not record single translations in the history")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List the models available to the selected backend")
	cmd.Flags().BoolVar(&flags.Archive, "archive", false, "Archive existing reports")

	// Translation flags
	cmd.Flags().StringVar(&flags.Backend, "backend", flags.Backend, "Translation backend: nllb, openai or gemini")
	cmd.Flags().StringVarP(&flags.Model, "model", "m", "", "Model of the backend (default depends on the backend)")
	cmd.Flags().StringVar(&flags.SourceLang, "from", flags.SourceLang, "Source language (BCP-47 or FLORES-200 code)")
	cmd.Flags().StringVar(&flags.TargetLang, "to", flags.TargetLang, "Target language (BCP-47 or FLORES-200 code)")
	cmd.Flags().IntVar(&flags.MaxLength, "max-length", flags.MaxLength, "Maximum length of a translation")
	cmd.Flags().IntVarP(&flags.Workers, "workers", "w", flags.Workers, "Parallel workers for bulk runs (1 to 10)")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", flags.Timeout, "Timeout of a single translation (0 disables)")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("translate.backend", cmd.Flags().Lookup("backend"))
	viper.BindPFlag("translate.model", cmd.Flags().Lookup("model"))
	viper.BindPFlag("translate.source_lang", cmd.Flags().Lookup("from"))
	viper.BindPFlag("translate.target_lang", cmd.Flags().Lookup("to"))
	viper.BindPFlag("translate.max_length", cmd.Flags().Lookup("max-length"))
	viper.BindPFlag("translate.workers", cmd.Flags().Lookup("workers"))
	viper.BindPFlag("translate.timeout", cmd.Flags().Lookup("timeout"))
	viper.BindPFlag("output.directory", cmd.Flags().Lookup("output"))
	viper.BindPFlag("output.format", cmd.Flags().Lookup("format"))
}

// HistoryCommand groups the history subcommands. Their RunE is wired by
// the caller.
type HistoryCommand struct {
	Cmd    *cobra.Command
	List   *cobra.Command
	Show   *cobra.Command
	Delete *cobra.Command
	Clear  *cobra.Command
	Export *cobra.Command
	Import *cobra.Command
}

// CreateHistoryCommand creates the history command and adds it to root
func CreateHistoryCommand(root *cobra.Command, flags *Flags) *HistoryCommand {
	h := &HistoryCommand{
		Cmd: &cobra.Command{
			Use:   "history",
			Short: "Manage the translation history",
		},
		List: &cobra.Command{
			Use:   "list",
			Short: "List recent translations",
			Args:  cobra.NoArgs,
		},
		Show: &cobra.Command{
			Use:   "show <id>",
			Short: "Show one translation",
			Args:  cobra.ExactArgs(1),
		},
		Delete: &cobra.Command{
			Use:     "delete <id>",
			Aliases: []string{"rm"},
			Short:   "Delete one translation",
			Args:    cobra.ExactArgs(1),
		},
		Clear: &cobra.Command{
			Use:   "clear",
			Short: "Delete every translation",
			Args:  cobra.NoArgs,
		},
		Export: &cobra.Command{
			Use:   "export [file]",
			Short: "Export the history as JSON (default stdout)",
			Args:  cobra.MaximumNArgs(1),
		},
		Import: &cobra.Command{
			Use:   "import <file>",
			Short: "Import a JSON history export (- for stdin)",
			Args:  cobra.ExactArgs(1),
		},
	}

	h.List.Flags().IntVarP(&flags.HistoryLimit, "limit", "n", flags.HistoryLimit, "Number of entries to list (0 for all)")

	h.Cmd.AddCommand(h.List, h.Show, h.Delete, h.Clear, h.Export, h.Import)
	root.AddCommand(h.Cmd)

	return h
}

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// Search config in home directory with name ".ynlb" (without extension)
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ynlb")
	}

	// Environment variables, e.g. YNLB_TRANSLATE_BACKEND
	viper.SetEnvPrefix("YNLB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// StateDir is where ynlb keeps its history and reports
func StateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "ynlb")
}

// DefaultReportsDir is the default directory of bulk reports
func DefaultReportsDir() string {
	return filepath.Join(StateDir(), "reports")
}

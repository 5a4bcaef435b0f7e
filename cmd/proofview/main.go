package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"proofview/internal/logging"
	"proofview/internal/observ"
	"proofview/internal/prof"
	"proofview/internal/runner"
	"proofview/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "proofview",
	Short: "Browsable reports for CBMC proofs",
	Long: `proofview turns the output of the CBMC model checker into a browsable report:
annotated sources with coverage, error traces and per-proof summaries`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: teardown,
}

// Set up by the root command before any subcommand runs.
var (
	logger   *zap.Logger
	timer    *observ.Timer
	profiles *prof.Session
)

func main() {
	rootCmd.Version = version.String()

	rootCmd.AddCommand(reportCmd)
	for _, cmd := range registryCmds() {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "log errors only")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a runtime trace to file")

	err := rootCmd.Execute()
	if stopErr := profiles.Stop(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "failed to write profiles: %v\n", stopErr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		os.Exit(exitCode(err))
	}
}

func setup(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return fmt.Errorf("failed to get color flag: %w", err)
	}
	useColor, err := readColorMode(colorFlag, os.Stderr)
	if err != nil {
		return err
	}
	color.NoColor = !useColor

	logger, err = logging.New(logging.Options{
		Verbose: verbose,
		Quiet:   quiet,
		Console: isTerminal(os.Stderr),
		Color:   useColor,
	})
	if err != nil {
		return err
	}
	timer = observ.NewTimer()

	var opts prof.Options
	for name, dst := range map[string]*string{"cpu-profile": &opts.CPU, "mem-profile": &opts.Mem, "runtime-trace": &opts.Trace} {
		if *dst, err = flags.GetString(name); err != nil {
			return fmt.Errorf("failed to get %s flag: %w", name, err)
		}
	}
	profiles, err = prof.Start(opts)
	return err
}

func teardown(cmd *cobra.Command, _ []string) {
	if timings, err := cmd.Root().PersistentFlags().GetBool("timings"); err == nil && timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	if logger != nil {
		timer.Log(logger)
		_ = logger.Sync()
	}
}

func readColorMode(value string, f *os.File) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "auto":
		return isTerminal(f), nil
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", value)
	}
}

// exitCode is the status of a failed external tool, else 1.
func exitCode(err error) int {
	if status, ok := runner.ExitStatus(err); ok {
		return status
	}
	return 1
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

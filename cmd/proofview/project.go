package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"proofview/internal/summary"
	"proofview/internal/ui"
)

var projectCmd = &cobra.Command{
	Use:   "project [flags] <dir>",
	Short: "Aggregate the proof summaries of every proof under a directory",
	Long: `Read viewer-summary.json of every immediate subdirectory of dir and write
summary.json, report.json and report.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runProject,
}

func init() {
	projectCmd.Flags().Int("jobs", 0, "max summaries read at once (0=auto)")
	projectCmd.Flags().String("progress", "auto", "show a progress view (auto|on|off)")
	projectCmd.Flags().String("outdir", "", "directory for the aggregate files (default: dir)")
}

type aggregateOutcome struct {
	project *summary.Project
	err     error
}

func runProject(cmd *cobra.Command, args []string) error {
	root := args[0]
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	progressFlag, err := cmd.Flags().GetString("progress")
	if err != nil {
		return fmt.Errorf("failed to get progress flag: %w", err)
	}
	mode, err := readProgressMode(progressFlag)
	if err != nil {
		return err
	}
	outdir, err := cmd.Flags().GetString("outdir")
	if err != nil {
		return fmt.Errorf("failed to get outdir flag: %w", err)
	}
	if outdir == "" {
		outdir = root
	}

	opts := summary.Options{Jobs: jobs, Log: logger}
	var project *summary.Project
	err = timer.Track("aggregate", func() (err error) {
		if shouldShowProgress(mode) {
			project, err = aggregateWithUI(cmd.Context(), root, opts)
		} else {
			project, err = summary.Aggregate(cmd.Context(), root, opts)
		}
		return err
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", outdir, err)
	}
	if err := project.Write(outdir); err != nil {
		return err
	}

	missing := 0
	for _, row := range project.Rows {
		if row.Summary == nil {
			missing++
		}
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d proofs summarized", len(project.Rows)-missing)
	if missing > 0 {
		fmt.Fprintf(out, ", %s", color.YellowString("%d without summary", missing))
	}
	fmt.Fprintf(out, "\nreport: %s\n", outdir)
	return nil
}

func aggregateWithUI(ctx context.Context, root string, opts summary.Options) (*summary.Project, error) {
	proofs, err := summary.ProofDirs(root)
	if err != nil {
		return nil, err
	}
	events := make(chan summary.Event, 256)
	outcomeCh := make(chan aggregateOutcome, 1)

	go func() {
		opts.Progress = summary.ChannelSink{Ch: events}
		p, err := summary.Aggregate(ctx, root, opts)
		outcomeCh <- aggregateOutcome{project: p, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("proofview project", proofs, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view may quit before the last event
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.project, uiErr
	}
	return outcome.project, outcome.err
}

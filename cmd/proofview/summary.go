package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"proofview/internal/config"
	"proofview/internal/summary"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [flags] [jsondir]",
	Short: "Write viewer-summary.json from the JSON dumps of a proof",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().String("config", "", "proof configuration (default: ./"+config.FileName+" if present)")
	summaryCmd.Flags().String("name", "", "proof name (default: from the configuration)")
}

func runSummary(cmd *cobra.Command, args []string) error {
	dir := "json"
	if len(args) == 1 {
		dir = args[0]
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return fmt.Errorf("failed to get name flag: %w", err)
	}
	if name == "" {
		name = cfg.Proof.Name
	}

	in, err := summary.FromDir(dir, logger)
	if err != nil {
		return err
	}
	in.InProofRoot = cfg.InProofRoot
	in.ExpectedMissing = cfg.ExpectedMissing()
	p := summary.Compute(in)
	if err := summary.Write(dir, name, p); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d project lines hit, %d property and %d loop issue lines\n",
		name, len(p.ProjectLinesHit), len(p.ProjectLines), len(p.PropertyIssueLines), len(p.LoopIssueLines))
	return nil
}

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proofview/internal/driver"
)

var reportCmd = &cobra.Command{
	Use:   "report [flags]",
	Short: "Write the HTML report and JSON dumps of one proof",
	Long: `Parse the verifier output of one proof and write an HTML report (index,
annotated sources and error traces) and the viewer-*.json dumps`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	addInputFlags(reportCmd)
	reportCmd.Flags().String("htmldir", "html", "directory for the HTML report (empty to skip)")
	reportCmd.Flags().String("jsondir", "json", "directory for the JSON dumps (empty to skip)")
	reportCmd.Flags().String("title", "", "report title")
}

func runReport(cmd *cobra.Command, _ []string) error {
	req, cfg, err := buildRequest(cmd)
	if err != nil {
		return err
	}
	if req.HTMLDir, err = cmd.Flags().GetString("htmldir"); err != nil {
		return fmt.Errorf("failed to get htmldir flag: %w", err)
	}
	if req.JSONDir, err = cmd.Flags().GetString("jsondir"); err != nil {
		return fmt.Errorf("failed to get jsondir flag: %w", err)
	}
	if req.Title, err = cmd.Flags().GetString("title"); err != nil {
		return fmt.Errorf("failed to get title flag: %w", err)
	}
	if cfg.Path != "" {
		logger.Debug("using proof configuration", zap.String("path", cfg.Path))
	}

	rep, err := driver.New(logger, timer).Generate(cmd.Context(), req)
	if err != nil {
		return err
	}
	failed := len(rep.Results.Failed())
	status := color.GreenString("%d failed", failed)
	if failed > 0 {
		status = color.RedString("%d failed", failed)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d properties, %s\n", req.ProofName, len(rep.Results.Passed())+failed, status)
	if req.HTMLDir != "" {
		fmt.Fprintf(out, "report: %s\n", req.HTMLDir)
	}
	return nil
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"proofview/internal/driver"
)

var registryShort = map[string]string{
	"traces":     "Print the repaired error traces as JSON",
	"results":    "Print the verification results as JSON",
	"coverage":   "Print line and function coverage as JSON",
	"properties": "Print the property definitions as JSON",
	"loops":      "Print the loop locations as JSON",
	"reachable":  "Print the reachable functions as JSON",
	"symbols":    "Print the symbol definitions as JSON",
	"sources":    "Print the source file listing as JSON",
}

// registryCmds returns one command per registry; each loads the proof like
// report does and prints that registry on stdout.
func registryCmds() []*cobra.Command {
	names := []string{"traces", "results", "coverage", "properties", "loops", "reachable", "symbols", "sources"}
	cmds := make([]*cobra.Command, 0, len(names))
	for _, name := range names {
		cmd := &cobra.Command{
			Use:   name + " [flags]",
			Short: registryShort[name],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runRegistry(cmd, name)
			},
		}
		addInputFlags(cmd)
		cmds = append(cmds, cmd)
	}
	return cmds
}

func runRegistry(cmd *cobra.Command, name string) error {
	req, _, err := buildRequest(cmd)
	if err != nil {
		return err
	}
	rep, err := driver.New(logger, timer).Build(cmd.Context(), req)
	if err != nil {
		return err
	}
	v, ok := rep.Registry(name)
	if !ok {
		return fmt.Errorf("unknown registry %q", name)
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/aid2e/pipeline-core/pkg/utils"
)

var runFlags struct {
	tag     string
	set     []string
	jsonOut bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Evaluate one parameter set as a single trial",
	Long: `Run evaluates one parameter set end to end: geometry edits, simulation,
reconstruction, and objective extraction. The scalar value of every
configured objective is printed when the trial completes.`,
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.tag, "tag", "", "Trial tag (minted when empty)")
	f.StringArrayVar(&runFlags.set, "set", nil, "Parameter assignment name=value (repeatable)")
	f.BoolVar(&runFlags.jsonOut, "json", false, "Emit the result as JSON")
}

func runRun(cmd *cobra.Command, _ []string) error {
	values, err := parseAssignments(runFlags.set)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("at least one --set assignment is required")
	}

	m, _, err := buildManager()
	if err != nil {
		return err
	}

	tag := runFlags.tag
	if tag == "" {
		tag = utils.GenerateTrialTag()
	}

	results, err := m.EvaluateTrial(cmd.Context(), tag, values)
	if err != nil {
		return fmt.Errorf("trial %s: %w", tag, err)
	}

	out := cmd.OutOrStdout()
	if runFlags.jsonOut {
		return json.NewEncoder(out).Encode(map[string]any{
			"tag":        tag,
			"parameters": values,
			"objectives": results,
		})
	}

	fmt.Fprintf(out, "Trial: %s\n", tag)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s = %g\n", name, results[name])
	}
	return nil
}

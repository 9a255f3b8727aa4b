package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aid2e/pipeline-core/internal/params"
	"github.com/aid2e/pipeline-core/pkg/config"
	"github.com/aid2e/pipeline-core/pkg/logger"
)

var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "List the design parameters the pipeline can edit",
	Long: `Params lists every concrete design parameter from the parameter
configuration, with templated families expanded into their instances.`,
	RunE: runParams,
}

func runParams(cmd *cobra.Command, _ []string) error {
	logger.SetDefault(logger.NewText(rootFlags.logLevel, cmd.ErrOrStderr()))

	paramCfg, err := config.LoadParamConfig(rootFlags.paramConfig)
	if err != nil {
		return err
	}
	registry := params.NewRegistry(paramCfg)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tTARGET\tUNIT\tLOCATION")
	for _, name := range registry.Names() {
		p, err := registry.Resolve(name)
		if err != nil {
			return err
		}
		location := p.Compact
		if location == "" {
			location = "(reconstruction flag)"
		}
		unit := p.Unit
		if unit == "" {
			unit = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s@%s\t%s\t%s\n",
			p.Name, p.Kind, p.Path, p.Attribute, unit, location)
	}
	return w.Flush()
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yeha-adry/spacetime/internal/experiment"
)

func newNameCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "name",
		Short: "Print the experiment name of a run configuration",
		Long: `Print the experiment and project names and the file layout a run
would get, without seeding, creating directories or contacting the
tracking server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCfg, err := buildRunConfiguration(cmd, afero.NewOsFs(), a.config())
			if err != nil {
				return err
			}
			if err := runCfg.Validate(); err != nil {
				return err
			}

			prefix, _ := cmd.Flags().GetString("name-prefix")
			layout := experiment.Plan(runCfg, prefix)

			if all, _ := cmd.Flags().GetBool("all"); all {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(layout)
			}
			fmt.Fprintln(cmd.OutOrStdout(), layout.ExperimentName)
			return nil
		},
	}

	addRunFlags(cmd)
	cmd.Flags().Bool("all", false, "Print every derived name and path as JSON")

	return cmd
}

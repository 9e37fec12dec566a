package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/zeu5/qfuzz/analysis"
	"github.com/zeu5/qfuzz/store"
)

var (
	top        int
	jsonOutput bool
)

func InspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarise the learned policy and the accepted inputs of a trainer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			r, _, err := newRand(cmd)
			if err != nil {
				return err
			}
			space, err := store.NewPolicyStore(cfg.Trainer, logger).Load(r)
			if err != nil {
				return err
			}
			records, err := store.NewResultsLog(cfg.Trainer).Read()
			if err != nil {
				return err
			}

			policy := analysis.SummarizePolicy(space, top)
			results := analysis.SummarizeResults(records)
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"policy":  policy,
					"results": results,
				})
			}
			policy.Print(cmd.OutOrStdout())
			results.Print(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "Number of most visited states to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")
	return cmd
}

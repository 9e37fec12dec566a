package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zeu5/qfuzz/analysis"
	"github.com/zeu5/qfuzz/store"
)

var plotDir string

func PlotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Plot the accepted inputs of a trainer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			records, err := store.NewResultsLog(cfg.Trainer).Read()
			if err != nil {
				return err
			}
			dir := plotDir
			if dir == "" {
				dir = cfg.Trainer
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
			for _, plotFunc := range []func([]store.Record, string) (string, error){
				analysis.PlotResultLengths,
				analysis.PlotStateGrowth,
			} {
				out, err := plotFunc(records, dir)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&plotDir, "out", "o", "", "Output folder (defaults to the trainer directory)")
	return cmd
}

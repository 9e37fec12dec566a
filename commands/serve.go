package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/zeu5/qfuzz/server"
	"github.com/zeu5/qfuzz/store"
)

var serveAddr string

func ServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the persisted policy and results of a trainer over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := server.NewServer(&server.Config{
				Addr:     serveAddr,
				Policy:   store.NewPolicyStore(cfg.Trainer, logger),
				Results:  store.NewResultsLog(cfg.Trainer),
				Gatherer: reg,
				Logger:   logger,
			})
			srv.Start(ctx)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/mrpasztoradam/goadsio"
	"github.com/mrpasztoradam/goadsio/httpapi"
	"github.com/mrpasztoradam/goadsio/promstats"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the PLC memory over a JSON HTTP API",
		Long: `Start an HTTP server that exposes the PLC session:

  GET  /api/v1/info                     device information (connects on demand)
  GET  /api/v1/status                   session state
  POST /api/v1/connect                  open the session
  POST /api/v1/disconnect               close the session
  GET  /api/v1/memory/{address}?length  read bytes, hex encoded
  PUT  /api/v1/memory/{address}         write {"data":"<hex>"}
  GET  /metrics                         Prometheus metrics

Press Ctrl+C to stop the server gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			cfg, logger, client, err := setup(cmd, flags, goadsio.WithMetrics(promstats.NewCollector(reg)))
			if err != nil {
				return err
			}
			defer client.Close()

			if cmd.Flags().Changed("host") {
				cfg.HTTP.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}

			srv := httpapi.NewServer(cfg, client, logger, reg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (default from config)")
	return cmd
}

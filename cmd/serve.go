package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/abhisek/examiner/internal/server"
	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the answer-marking HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Addr = addr
		}

		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		srv := &http.Server{
			Addr:              cfg.Addr,
			Handler:           server.NewHandler(d.grader, cfg.MaxDiagramBytes).Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			// Model calls are bounded by the grading timeout; leave room to
			// write the response after them.
			WriteTimeout: cfg.Grading.Timeout + 30*time.Second,
			IdleTimeout:  60 * time.Second,
			BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
		}

		errc := make(chan error, 1)
		go func() {
			clog.InfoContextf(ctx, "listening on %s", cfg.Addr)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
		}

		clog.InfoContextf(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides EXAMINER_ADDR)")
}

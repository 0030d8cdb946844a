package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"narengine/internal/engine"
	"narengine/internal/httpapi"
	"narengine/pkg/nar"
)

type serveFlags struct {
	addr        string
	corsOrigins string
	grace       time.Duration
}

func newServeCmd(opts *options) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and expose read-only diagnostics over HTTP",
		Long: `Initialize the engine and serve /status, /healthz, /readyz, /version,
/gpu, /models and /metrics until interrupted. No generation endpoint is
exposed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if f.addr == "" {
				f.addr = cfg.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return opts.serve(ctx, f, cfg.ModelsDir, func() error { return opts.initEngine(cfg) })
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", os.Getenv("NARCTL_ADDR"), "Listen address (defaults to the config addr)")
	cmd.Flags().StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (empty disables CORS)")
	cmd.Flags().DurationVar(&f.grace, "grace", 5*time.Second, "Graceful shutdown timeout")
	return cmd
}

// serve runs the diagnostics server until ctx is done, then stops the
// server and the engine. The server starts before init so /readyz reports
// loading while the model loads.
func (o *options) serve(ctx context.Context, f *serveFlags, modelsDir string, init func() error) error {
	if origins := splitCSV(f.corsOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins, []string{http.MethodGet, http.MethodOptions}, []string{"Accept", "Content-Type"})
	}
	httpapi.SetLogger(o.log.With().Str("component", "httpapi").Logger())

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mux := httpapi.NewMux(nar.Engine(), httpapi.Options{
		ModelsDir: modelsDir,
		Validate:  engine.ValidateModelFile,
		Registry:  reg,
	})
	srv := &http.Server{Addr: f.addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.log.Info().Str("addr", f.addr).Str("models_dir", modelsDir).Msg("narctl listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	initDone := make(chan struct{})
	g.Go(func() error {
		defer close(initDone)
		return init()
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), f.grace)
		defer cancel()
		err := srv.Shutdown(sctx)
		// init and shutdown must not overlap
		<-initDone
		o.shutdownEngine()
		o.log.Info().Msg("narctl stopped")
		return err
	})
	return g.Wait()
}

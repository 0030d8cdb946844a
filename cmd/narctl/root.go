package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"narengine/internal/config"
	"narengine/pkg/nar"
	"narengine/pkg/types"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	modelPath  string
	logLevel   string
	jsonOut    bool

	out io.Writer
	log zerolog.Logger
}

func buildRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}
	root := &cobra.Command{
		Use:           "narctl",
		Short:         "Operate the in-process text-generation engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("NARCTL_CONFIG"), "Config file (.yaml, .json or .toml)")
	root.PersistentFlags().StringVarP(&opts.modelPath, "model", "m", "", "Model file; overrides engine.model_path")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "CLI log level: debug|info|warn|error")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print results as JSON")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		lvl, err := zerolog.ParseLevel(opts.logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level %q", opts.logLevel)
		}
		opts.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Str("component", "narctl").Logger()
		return nil
	}

	root.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newBenchCmd(opts),
		newStatusCmd(opts),
		newValidateCmd(opts),
		newModelsCmd(opts),
		newGPUCmd(opts),
		newVersionCmd(opts),
	)
	return root
}

// loadConfig reads --config (or defaults) and applies --model.
func (o *options) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}
	if o.modelPath != "" {
		cfg.Engine.ModelPath = o.modelPath
	}
	return cfg, nil
}

// initEngine starts the process-wide engine from cfg.
func (o *options) initEngine(cfg config.Config) error {
	o.log.Debug().Str("model", cfg.Engine.ModelPath).Msg("initializing engine")
	if code := nar.InitEngine(cfg.Engine); code != types.Success {
		st, _ := nar.GetStatus()
		return codeError("init engine", code, st.ErrorMessage)
	}
	st, _ := nar.GetStatus()
	o.log.Info().Str("model", st.ModelName).Uint64("model_bytes", st.ModelMemoryUsageBytes).Msg("engine ready")
	return nil
}

func (o *options) shutdownEngine() {
	if code := nar.ShutdownEngine(); code != types.Success {
		o.log.Warn().Stringer("code", code).Msg("shutdown")
	}
}

func (o *options) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(o.out, string(b))
	return err
}

func codeError(op string, code types.ResultCode, detail string) error {
	if detail != "" {
		return fmt.Errorf("%s: %s: %s", op, code, detail)
	}
	return fmt.Errorf("%s: %s", op, code)
}

// splitCSV splits a comma-separated list, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"narengine/internal/engine"
	"narengine/internal/registry"
	"narengine/pkg/nar"
)

func newStatusCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query the status of a running narctl serve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				addr = cfg.Addr
			}
			st, err := fetchStatus(cmd.Context(), "http://"+addr+"/status")
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return opts.printJSON(st)
			}
			printStatus(opts.out, st)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Address of narctl serve (defaults to the config addr)")
	return cmd
}

// statusView decodes the /status body; the state arrives as its name.
type statusView struct {
	Status                       string  `json:"status"`
	StatusMessage                string  `json:"status_message"`
	ModelName                    string  `json:"model_name"`
	TotalMemoryUsageBytes        uint64  `json:"total_memory_usage_bytes"`
	ModelMemoryUsageBytes        uint64  `json:"model_memory_usage_bytes"`
	ActiveGenerations            uint32  `json:"active_generations"`
	QueuedGenerations            uint32  `json:"queued_generations"`
	AverageGenerationTimeSeconds float32 `json:"average_generation_time_seconds"`
	TotalGenerationsCompleted    uint64  `json:"total_generations_completed"`
	TotalTokensGenerated         uint64  `json:"total_tokens_generated"`
	LastGenerationTimestamp      int64   `json:"last_generation_timestamp"`
	GPUAccelerationActive        bool    `json:"gpu_acceleration_active"`
	ErrorMessage                 string  `json:"error_message,omitempty"`
}

func fetchStatus(ctx context.Context, url string) (statusView, error) {
	var st statusView
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return st, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return st, fmt.Errorf("query status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return st, fmt.Errorf("query status: %s: %s", resp.Status, b)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}

func printStatus(w io.Writer, st statusView) {
	fmt.Fprintf(w, "state:      %s (%s)\n", st.Status, st.StatusMessage)
	if st.ModelName != "" {
		fmt.Fprintf(w, "model:      %s (%d bytes, total %d)\n", st.ModelName, st.ModelMemoryUsageBytes, st.TotalMemoryUsageBytes)
	}
	fmt.Fprintf(w, "active:     %d queued: %d\n", st.ActiveGenerations, st.QueuedGenerations)
	fmt.Fprintf(w, "completed:  %d tokens: %d avg: %.3fs\n", st.TotalGenerationsCompleted, st.TotalTokensGenerated, st.AverageGenerationTimeSeconds)
	if st.LastGenerationTimestamp > 0 {
		fmt.Fprintf(w, "last:       %s\n", time.Unix(st.LastGenerationTimestamp, 0).Format(time.RFC3339))
	}
	fmt.Fprintf(w, "gpu:        %v\n", st.GPUAccelerationActive)
	if st.ErrorMessage != "" {
		fmt.Fprintf(w, "error:      %s\n", st.ErrorMessage)
	}
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model-file>",
		Short: "Check a model file without loading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, msg := nar.ValidateModelFile(args[0])
			if opts.jsonOut {
				if err := opts.printJSON(map[string]any{"path": args[0], "valid": ok, "reason": msg}); err != nil {
					return err
				}
			} else if ok {
				fmt.Fprintf(opts.out, "%s: ok\n", args[0])
			}
			if !ok {
				return fmt.Errorf("%s: %s", args[0], msg)
			}
			return nil
		},
	}
}

func newModelsCmd(opts *options) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List and validate model files in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := opts.loadConfig()
				if err != nil {
					return err
				}
				dir = cfg.ModelsDir
			}
			models, err := registry.NewScanner(engine.ValidateModelFile).Scan(dir)
			if err != nil {
				return err
			}
			if opts.jsonOut {
				if models == nil {
					models = []registry.Model{}
				}
				return opts.printJSON(models)
			}
			for _, m := range models {
				state := "ok"
				if !m.Valid {
					state = m.Reason
				}
				fmt.Fprintf(opts.out, "%-40s %12d  %s\n", m.ID, m.SizeBytes, state)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory to scan (defaults to the config models_dir)")
	return cmd
}

func newGPUCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "gpu",
		Short: "Report whether this build supports GPU acceleration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok := nar.CheckGPUSupport()
			if opts.jsonOut {
				return opts.printJSON(map[string]bool{"supported": ok})
			}
			fmt.Fprintf(opts.out, "gpu support: %v\n", ok)
			return nil
		},
	}
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the engine version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.jsonOut {
				major, minor, patch := nar.GetVersion()
				return opts.printJSON(map[string]int{"major": major, "minor": minor, "patch": patch})
			}
			fmt.Fprintln(opts.out, "narengine", nar.VersionString())
			return nil
		},
	}
}

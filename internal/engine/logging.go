package engine

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"narengine/pkg/types"
)

// newLogger builds the engine logger from the config: debug level when
// enable_debug_logging is set, output appended to log_file_path or stderr.
// The returned closer is nil when no file was opened.
func newLogger(cfg types.Config) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.EnableDebugLogging {
		level = zerolog.DebugLevel
	}
	var out io.Writer = os.Stderr
	var closer io.Closer
	if cfg.LogFilePath != "" {
		f, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out, closer = f, f
	}
	l := zerolog.New(out).Level(level).With().Timestamp().Str("component", "engine").Logger()
	return l, closer, nil
}

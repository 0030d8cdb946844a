package types

// Config configures one initialized engine instance. Zero values mean
// "unspecified" and are replaced with defaults during validation.
type Config struct {
	// Path to the model weights file.
	// example: models/gemma-3-1b.gguf
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path" example:"models/gemma-3-1b.gguf"`
	// Maximum context length in tokens.
	// example: 2048
	ContextLength uint32 `json:"context_length" yaml:"context_length" toml:"context_length" example:"2048"`
	// Maximum number of concurrently active generations.
	// example: 4
	MaxBatchSize       uint32 `json:"max_batch_size" yaml:"max_batch_size" toml:"max_batch_size" example:"4"`
	UseGPUAcceleration bool   `json:"use_gpu_acceleration" yaml:"use_gpu_acceleration" toml:"use_gpu_acceleration"`

	// Worker threads (0 = auto-detect).
	NumThreads       uint32 `json:"num_threads" yaml:"num_threads" toml:"num_threads"`
	EnableThreadPool bool   `json:"enable_thread_pool" yaml:"enable_thread_pool" toml:"enable_thread_pool"`

	// Maximum model memory in bytes (0 = unlimited).
	MemoryLimitBytes    uint64 `json:"memory_limit_bytes" yaml:"memory_limit_bytes" toml:"memory_limit_bytes"`
	EnableMemoryMapping bool   `json:"enable_memory_mapping" yaml:"enable_memory_mapping" toml:"enable_memory_mapping"`

	DefaultTemperature float32 `json:"default_temperature" yaml:"default_temperature" toml:"default_temperature"`
	DefaultMaxTokens   uint32  `json:"default_max_tokens" yaml:"default_max_tokens" toml:"default_max_tokens"`
	DefaultTopP        float32 `json:"default_top_p" yaml:"default_top_p" toml:"default_top_p"`
	DefaultTopK        uint32  `json:"default_top_k" yaml:"default_top_k" toml:"default_top_k"`

	EnableContentFiltering bool   `json:"enable_content_filtering" yaml:"enable_content_filtering" toml:"enable_content_filtering"`
	ValidateUTF8           bool   `json:"validate_utf8" yaml:"validate_utf8" toml:"validate_utf8"`
	TimeoutSeconds         uint32 `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`

	EnableDebugLogging bool `json:"enable_debug_logging" yaml:"enable_debug_logging" toml:"enable_debug_logging"`
	// Log file path; empty logs to stderr.
	LogFilePath string `json:"log_file_path" yaml:"log_file_path" toml:"log_file_path"`
}

// DefaultConfig returns a configuration populated with safe defaults.
func DefaultConfig() Config {
	return Config{
		ModelPath:              "models/gemma-3-1b.gguf",
		ContextLength:          2048,
		MaxBatchSize:           4,
		UseGPUAcceleration:     false,
		NumThreads:             0,
		EnableThreadPool:       true,
		MemoryLimitBytes:       0,
		EnableMemoryMapping:    true,
		DefaultTemperature:     0.7,
		DefaultMaxTokens:       256,
		DefaultTopP:            0.9,
		DefaultTopK:            40,
		EnableContentFiltering: true,
		ValidateUTF8:           true,
		TimeoutSeconds:         30,
		EnableDebugLogging:     false,
	}
}

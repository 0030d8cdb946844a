package types

// StatusReport is a point-in-time copy of the engine state for get_status.
type StatusReport struct {
	// Current lifecycle state.
	// example: ready
	Status EngineStatus `json:"status" example:"ready"`
	// Human-readable description of the state.
	// example: Engine ready
	StatusMessage string `json:"status_message" example:"Engine ready"`
	// Process memory attributed to the engine, in bytes.
	// example: 734003200
	TotalMemoryUsageBytes uint64 `json:"total_memory_usage_bytes" example:"734003200"`
	// Memory held by the loaded model, in bytes.
	// example: 671088640
	ModelMemoryUsageBytes uint64 `json:"model_memory_usage_bytes" example:"671088640"`
	// Generations currently running on a worker.
	// example: 2
	ActiveGenerations uint32 `json:"active_generations" example:"2"`
	// Generations waiting for admission.
	// example: 1
	QueuedGenerations uint32 `json:"queued_generations" example:"1"`
	// Mean wall time of completed generations.
	// example: 1.25
	AverageGenerationTimeSeconds float32 `json:"average_generation_time_seconds" example:"1.25"`
	// Generations completed since initialization.
	// example: 42
	TotalGenerationsCompleted uint64 `json:"total_generations_completed" example:"42"`
	// Tokens generated since initialization.
	// example: 9001
	TotalTokensGenerated uint64 `json:"total_tokens_generated" example:"9001"`
	// Unix seconds of the last finished generation (0 if none).
	// example: 1700000000
	LastGenerationTimestamp int64 `json:"last_generation_timestamp" example:"1700000000"`
	GPUAccelerationActive   bool  `json:"gpu_acceleration_active"`
	// Name of the loaded model.
	// example: gemma-3-1b
	ModelName string `json:"model_name" example:"gemma-3-1b"`
	// Last error, populated only while Status is error.
	ErrorMessage string `json:"error_message,omitempty"`
	// Context window of the loaded model, in tokens.
	// example: 2048
	ContextLength uint32 `json:"context_length" example:"2048"`
	// Seconds since the engine reached ready.
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// StreamEvent is one incremental update delivered to a streaming sink. The
// final event of a request has IsComplete set.
type StreamEvent struct {
	PartialText string `json:"partial_text"`
	TokenCount  uint32 `json:"token_count"`
	IsComplete  bool   `json:"is_complete"`
}

// ModelFile describes a model file discovered on disk.
type ModelFile struct {
	// Stable identifier (file name).
	// example: gemma-3-1b-it-Q4_K_M.gguf
	ID string `json:"id" example:"gemma-3-1b-it-Q4_K_M.gguf"`
	// Absolute path to the file.
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Valid     bool   `json:"valid"`
	Error     string `json:"error,omitempty"`
}

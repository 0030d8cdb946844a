package types

// GenerateParams describes one generation request. Zero-valued sampling
// fields fall back to the engine defaults (MaxTokens, Temperature, TopP,
// TopK) or to neutral values (RepetitionPenalty 1.0, TypicalP 1.0, MinP off,
// MirostatTau 5.0, MirostatEta 0.1). Greedy decoding is requested with TopK 1.
type GenerateParams struct {
	Prompt  string `json:"prompt" yaml:"prompt"`
	Context string `json:"context,omitempty" yaml:"context,omitempty"`

	MaxTokens         uint32  `json:"max_tokens" yaml:"max_tokens"`
	Temperature       float32 `json:"temperature" yaml:"temperature"`
	TopP              float32 `json:"top_p" yaml:"top_p"`
	TopK              uint32  `json:"top_k" yaml:"top_k"`
	RepetitionPenalty float32 `json:"repetition_penalty" yaml:"repetition_penalty"`

	// StopSequences holds the stop strings; only the first StopSequenceCount
	// entries are consulted.
	StopSequences     []string `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty"`
	StopSequenceCount uint32   `json:"stop_sequence_count" yaml:"stop_sequence_count"`

	ApplyContentFilter    bool `json:"apply_content_filter" yaml:"apply_content_filter"`
	EnableProfanityFilter bool `json:"enable_profanity_filter" yaml:"enable_profanity_filter"`

	// Seed 0 picks a random seed unless Deterministic is set.
	Seed           uint32 `json:"seed" yaml:"seed"`
	Deterministic  bool   `json:"deterministic" yaml:"deterministic"`
	TimeoutSeconds uint32 `json:"timeout_seconds" yaml:"timeout_seconds"`

	MinP         float32 `json:"min_p" yaml:"min_p"`
	TypicalP     float32 `json:"typical_p" yaml:"typical_p"`
	MirostatMode int32   `json:"mirostat_mode" yaml:"mirostat_mode"`
	MirostatTau  float32 `json:"mirostat_tau" yaml:"mirostat_tau"`
	MirostatEta  float32 `json:"mirostat_eta" yaml:"mirostat_eta"`
}

// SetStopSequences replaces the stop sequences and keeps the explicit count in
// sync.
func (p *GenerateParams) SetStopSequences(seqs ...string) {
	p.StopSequences = append([]string(nil), seqs...)
	p.StopSequenceCount = uint32(len(seqs))
}

// DefaultGenerateParams returns request parameters populated with safe
// defaults.
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		MaxTokens:         256,
		Temperature:       0.7,
		TopP:              0.9,
		TopK:              40,
		RepetitionPenalty: 1.1,
		MinP:              0.05,
		TypicalP:          1.0,
		MirostatMode:      0,
		MirostatTau:       5.0,
		MirostatEta:       0.1,
	}
}

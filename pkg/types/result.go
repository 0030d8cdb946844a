package types

import (
	"sync"
	"time"
)

// GeneratedText is the result of one generation. The text buffer belongs to
// the caller and must be released with Free exactly once; Free tombstones the
// value so a second call is a no-op and Text returns "" afterwards.
type GeneratedText struct {
	TokenCount          uint32
	PromptTokenCount    uint32
	GenerationTime      time.Duration
	StopReason          StopReason
	ContentFiltered     bool
	StopSequenceMatched string

	mu    sync.Mutex
	text  []byte
	freed bool
}

// NewGeneratedText wraps text in a caller-owned result.
func NewGeneratedText(text string) *GeneratedText {
	return &GeneratedText{text: []byte(text)}
}

// Text returns the generated text, or "" once the result has been freed.
func (g *GeneratedText) Text() string {
	if g == nil {
		return ""
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.freed {
		return ""
	}
	return string(g.text)
}

// GenerationTimeSeconds mirrors the ABI's float seconds field.
func (g *GeneratedText) GenerationTimeSeconds() float32 {
	return float32(g.GenerationTime.Seconds())
}

// Free releases the text buffer. It reports whether this call released it;
// later calls return false and change nothing.
func (g *GeneratedText) Free() bool {
	if g == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.freed {
		return false
	}
	g.text = nil
	g.freed = true
	return true
}

// Freed reports whether Free has been called.
func (g *GeneratedText) Freed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.freed
}

// Package safety redacts unsafe or profane content from generated text.
package safety

import (
	"regexp"
	"strings"
)

// Options selects which classifiers run for a request.
type Options struct {
	// Unsafe enables the unsafe-content classifier (harmful instructions,
	// self-harm encouragement, personal identifiers).
	Unsafe bool
	// Profanity enables word-level profanity masking.
	Profanity bool
}

// Enabled reports whether any classifier is on.
func (o Options) Enabled() bool { return o.Unsafe || o.Profanity }

// Redaction replaces unsafe spans.
const Redaction = "[filtered]"

var defaultProfanity = []string{
	"damn", "hell", "shit", "fuck", "fucking", "bitch", "bastard", "crap", "asshole", "dick",
}

var defaultUnsafe = []string{
	`kill\s+yourself`,
	`how\s+to\s+(?:make|build)\s+(?:a\s+)?(?:bomb|explosive)`,
	`\b\d{3}-\d{2}-\d{4}\b`,      // US SSN
	`\b(?:\d{4}[ -]?){3}\d{4}\b`, // payment card number
}

// Filter applies compiled word lists. It is safe for concurrent use.
type Filter struct {
	profanity *regexp.Regexp
	unsafe    *regexp.Regexp
}

// New compiles a filter from word lists. Nil lists use the built-in ones.
func New(profanity, unsafe []string) (*Filter, error) {
	if profanity == nil {
		profanity = defaultProfanity
	}
	if unsafe == nil {
		unsafe = defaultUnsafe
	}
	f := &Filter{}
	if len(profanity) > 0 {
		quoted := make([]string, len(profanity))
		for i, w := range profanity {
			quoted[i] = regexp.QuoteMeta(w)
		}
		re, err := regexp.Compile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
		if err != nil {
			return nil, err
		}
		f.profanity = re
	}
	if len(unsafe) > 0 {
		re, err := regexp.Compile(`(?i)(?:` + strings.Join(unsafe, "|") + `)`)
		if err != nil {
			return nil, err
		}
		f.unsafe = re
	}
	return f, nil
}

// Default returns a filter with the built-in lists.
func Default() *Filter {
	f, err := New(nil, nil)
	if err != nil {
		panic("safety: built-in patterns: " + err.Error())
	}
	return f
}

// Apply redacts text and reports whether anything changed. Profane words are
// masked with asterisks of the same length; unsafe spans become Redaction.
func (f *Filter) Apply(text string, opts Options) (string, bool) {
	if f == nil || !opts.Enabled() || text == "" {
		return text, false
	}
	out := text
	if opts.Unsafe && f.unsafe != nil {
		out = f.unsafe.ReplaceAllString(out, Redaction)
	}
	if opts.Profanity && f.profanity != nil {
		out = f.profanity.ReplaceAllStringFunc(out, func(w string) string {
			return strings.Repeat("*", len(w))
		})
	}
	return out, out != text
}

// Stream filters accumulated text chunk by chunk for one request.
type Stream struct {
	f    *Filter
	opts Options
}

// NewStream starts per-request streaming filtering.
func (f *Filter) NewStream(opts Options) *Stream {
	return &Stream{f: f, opts: opts}
}

// Apply filters the text accumulated so far.
func (s *Stream) Apply(accumulated string) string {
	out, _ := s.f.Apply(accumulated, s.opts)
	return out
}

// Pending returns how many trailing bytes of text may still change how it is
// filtered: an unfinished word, and with the unsafe classifier on, a trailing
// run of digits and separators that could grow into an identifier.
func (s *Stream) Pending(text string) int {
	i := len(text)
	for i > 0 && isWordByte(text[i-1]) {
		i--
	}
	hold := len(text) - i
	if !s.opts.Unsafe {
		return hold
	}
	j := len(text)
	for j > 0 && (isDigit(text[j-1]) || text[j-1] == '-' || text[j-1] == ' ') {
		j--
	}
	for j < len(text) && !isDigit(text[j]) {
		j++
	}
	return max(hold, len(text)-j)
}

// isWordByte matches the ASCII word class used by \b.
func isWordByte(c byte) bool {
	return c == '_' || isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

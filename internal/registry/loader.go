package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"narengine/internal/common/fsutil"
)

// Model describes one candidate model file found on disk.
type Model struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
	Valid     bool      `json:"valid"`
	Reason    string    `json:"reason,omitempty"`
}

// Validator reports why a model file cannot be loaded, or nil.
type Validator func(path string) error

// extensions recognised as model weights.
var extensions = []string{".gguf", ".bin"}

// Scanner lists model files in a directory.
type Scanner struct {
	validate Validator
}

// NewScanner returns a Scanner. A nil validator marks every file valid.
func NewScanner(validate Validator) *Scanner {
	return &Scanner{validate: validate}
}

// Scan lists *.gguf and *.bin files in dir, sorted by ID. ID is the full
// filename; Path is the absolute file path.
func (s *Scanner) Scan(dir string) ([]Model, error) {
	abs, err := fsutil.AbsPath(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []Model
	for _, e := range entries {
		if e.IsDir() || !isModelFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		m := Model{
			ID:        e.Name(),
			Path:      filepath.Join(abs, e.Name()),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
			Valid:     true,
		}
		if s.validate != nil {
			if verr := s.validate(m.Path); verr != nil {
				m.Valid = false
				m.Reason = verr.Error()
			}
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func isModelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, x := range extensions {
		if ext == x {
			return true
		}
	}
	return false
}

// LoadDir scans dir without validation.
func LoadDir(dir string) ([]Model, error) {
	return NewScanner(nil).Scan(dir)
}

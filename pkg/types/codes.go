package types

import "fmt"

// ResultCode is the fixed error taxonomy returned by every boundary call.
type ResultCode uint32

const (
	Success                     ResultCode = 0
	ErrInvalidParams            ResultCode = 1
	ErrModelNotFound            ResultCode = 2
	ErrModelLoadFailed          ResultCode = 3
	ErrGenerationFailed         ResultCode = 4
	ErrOutOfMemory              ResultCode = 5
	ErrContextTooLong           ResultCode = 6
	ErrEngineNotInitialized     ResultCode = 7
	ErrEngineAlreadyInitialized ResultCode = 8
	ErrThreadPool               ResultCode = 9
	ErrTimeout                  ResultCode = 10
	ErrCancelled                ResultCode = 11
	ErrInvalidUTF8              ResultCode = 12
	ErrUnknown                  ResultCode = 99
)

var codeDescriptions = map[ResultCode]string{
	Success:                     "Success",
	ErrInvalidParams:            "Invalid parameters provided",
	ErrModelNotFound:            "Model file not found",
	ErrModelLoadFailed:          "Failed to load model",
	ErrGenerationFailed:         "Text generation failed",
	ErrOutOfMemory:              "Out of memory",
	ErrContextTooLong:           "Input context too long",
	ErrEngineNotInitialized:     "Engine not initialized",
	ErrEngineAlreadyInitialized: "Engine already initialized",
	ErrThreadPool:               "Thread pool error",
	ErrTimeout:                  "Operation timed out",
	ErrCancelled:                "Operation was cancelled",
	ErrInvalidUTF8:              "Invalid UTF-8 encoding",
	ErrUnknown:                  "Unknown error",
}

// Description returns the static human-readable text for the code. Unknown
// values map to the ErrUnknown description.
func (c ResultCode) Description() string {
	if d, ok := codeDescriptions[c]; ok {
		return d
	}
	return codeDescriptions[ErrUnknown]
}

func (c ResultCode) String() string {
	return fmt.Sprintf("%s (%d)", c.Description(), uint32(c))
}

// EngineStatus is the lifecycle state reported in status snapshots.
type EngineStatus uint32

const (
	StatusUninitialized EngineStatus = 0
	StatusInitializing  EngineStatus = 1
	StatusReady         EngineStatus = 2
	StatusGenerating    EngineStatus = 3
	StatusError         EngineStatus = 4
	StatusShuttingDown  EngineStatus = 5
)

func (s EngineStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusInitializing:
		return "initializing"
	case StatusReady:
		return "ready"
	case StatusGenerating:
		return "generating"
	case StatusError:
		return "error"
	case StatusShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON/YAML output.
func (s EngineStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// StopReason records why a generation ended. Values 0..2 are the ABI values;
// StopCancelled and StopTimeout only accompany the Cancelled/Timeout codes.
type StopReason uint32

const (
	StopMaxTokens     StopReason = 0
	StopSequence      StopReason = 1
	StopEndOfSequence StopReason = 2
	StopCancelled     StopReason = 3
	StopTimeout       StopReason = 4
)

func (r StopReason) String() string {
	switch r {
	case StopMaxTokens:
		return "max_tokens"
	case StopSequence:
		return "stop_sequence"
	case StopEndOfSequence:
		return "eos"
	case StopCancelled:
		return "cancelled"
	case StopTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

func (r StopReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

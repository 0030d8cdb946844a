// Package types holds the data carried across the engine boundary: result
// codes, configuration, generation parameters, results and status reports.
// Field names follow the C ABI of the host integration one-for-one.
package types

// Library version reported by GetVersion.
const (
	VersionMajor = 0
	VersionMinor = 1
	VersionPatch = 0
)

// Size limits enforced before any generation work starts.
const (
	MaxModelPathLen    = 512
	MaxPromptLen       = 8192
	MaxResponseLen     = 32768
	MaxErrorMessageLen = 256
	MaxContextLen      = 16384
	MaxStopSequences   = 8
)

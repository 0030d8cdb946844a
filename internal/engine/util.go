package engine

import (
	"fmt"

	"narengine/pkg/types"
)

// Version returns the library version.
func Version() (major, minor, patch int) {
	return types.VersionMajor, types.VersionMinor, types.VersionPatch
}

// VersionString renders Version as "major.minor.patch".
func VersionString() string {
	return fmt.Sprintf("%d.%d.%d", types.VersionMajor, types.VersionMinor, types.VersionPatch)
}

// DescribeError returns the static description of a result code.
func DescribeError(code types.ResultCode) string { return code.Description() }

// GPUSupported reports whether this binary can offload to a GPU.
func GPUSupported() bool { return gpuCompiled }

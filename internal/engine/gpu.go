//go:build cuda || metal

package engine

// gpuCompiled reports whether a GPU-enabled runtime was linked in.
const gpuCompiled = true

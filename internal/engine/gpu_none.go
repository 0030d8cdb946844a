//go:build !cuda && !metal

package engine

const gpuCompiled = false

//go:build llama

package llama

// cgo link directives for the in-process llama backend.
//   - rpath of $ORIGIN so the runtime loader finds libllama.so next to the
//     binary (./bin).
//   - -L${SRCDIR}/../../../bin so the linker finds libllama.so at link time.
/*
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../../bin -lllama
*/
import "C"

// Package llama adapts go-llama.cpp to the backend contract. The real
// implementation is compiled with `-tags=llama`; without the tag a stub
// reports backend.ErrUnavailable from Load.
package llama

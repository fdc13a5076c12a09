//go:build cgo && bearssl

package bearssl

import "unsafe"

// Br_sha256_update injects data into a SHA-256 context. SHA-256 shares its
// update routine with SHA-224.
func Br_sha256_update(ctx *Br_sha256_context, data unsafe.Pointer, len uintptr) {
	Br_sha224_update(ctx, data, len)
}

// Br_sha512_update injects data into a SHA-512 context. SHA-512 shares its
// update routine with SHA-384.
func Br_sha512_update(ctx *Br_sha512_context, data unsafe.Pointer, len uintptr) {
	Br_sha384_update(ctx, data, len)
}

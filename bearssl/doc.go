// Package bearssl exposes the BearSSL C library to Go.
//
// The declarations live in generated files (zbindings.go, zlink.go)
// written by cmd/bearssl-build. They are guarded by the cgo and bearssl
// build tags, so without -tags bearssl this package is empty and builds
// without a C toolchain.
//
// BearSSL implements br_sha256_update and br_sha512_update as macros over
// the SHA-224 and SHA-384 update functions, which cgo cannot call. This
// package provides Go functions of the same names that forward to them.
//
// Call VerifyLayout from a test on a new target to check that the
// generated struct layouts match the C compiler.
package bearssl

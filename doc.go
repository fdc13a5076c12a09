// Package bearsslbuild prepares the BearSSL C library for use from Go
// through cgo.
//
// A build runs three stages in order:
//
//   - Resolution: find BearSSL. A precompiled directory
//     (BEARSSL_PRECOMPILED_PATH) wins over a source tree
//     (BEARSSL_SOURCE_PATH); without either, the upstream repository is
//     cloned into OUT_DIR/deps/bearssl and a pinned revision checked out.
//   - Compilation: turn a source tree into libbearssl.a, either by compiling
//     every src/**/*.c file directly or by running the tree's Makefile.
//   - Generation: translate the public headers into a single Go file of
//     types, constants and function wrappers, plus a file carrying the
//     #cgo link directives.
//
// # Basic Usage
//
//	cfg, err := bearsslbuild.LoadConfig(os.LookupEnv)
//	if err != nil {
//	    return err
//	}
//	report, err := bearsslbuild.NewPipeline(logger).Run(ctx, cfg)
//
// # Architecture
//
//	Pipeline
//	├── Resolver          (Precompiled | Raw)
//	├── BuilderFactory
//	│   ├── DirectBuilder     (cc + ar)
//	│   └── DelegatedBuilder  (make)
//	└── Generator         (header translation, quirks, rendering)
//
// Every error returned by Pipeline.Run is a *StageError naming the stage
// that failed. Process failures carry an *ExitStatusError with the exit
// status.
//
// # Platform Support
//
// Linux and macOS hosts are supported. On Darwin the link directives allow
// undefined symbols to be resolved at load time. Layout checks are not
// generated for aarch64-apple-ios and aarch64-apple-ios-sim.
package bearsslbuild

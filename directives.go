package bearsslbuild

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"
)

const (
	platformWindows = "windows"
	platformDarwin  = "darwin"
)

// libName is the archive name both strategies produce: libbearssl.a.
const libName = "bearssl"

// relaxedUndefinedFlag lets the final link leave symbols to be resolved at
// load time on Darwin hosts.
const relaxedUndefinedFlag = "-Wl,-undefined,dynamic_lookup"

// Directives tell the Go toolchain how to compile against and link the
// library. They are rendered into a cgo preamble by Render.
type Directives struct {
	LinkLib          string   // Library name passed as -l
	SearchPaths      []string // Directories passed as -L
	IncludeDirs      []string // Directories passed as -I
	RelaxedUndefined bool     // Add -Wl,-undefined,dynamic_lookup
}

func newDirectives(config *Config, searchPaths ...string) *Directives {
	return &Directives{
		LinkLib:          libName,
		SearchPaths:      searchPaths,
		RelaxedUndefined: config.HostOS == platformDarwin,
	}
}

// PrecompiledDirectives returns the directives for a Precompiled location:
// the archive may sit in the directory itself or in its build/ subdirectory.
func PrecompiledDirectives(config *Config, dir string) *Directives {
	return newDirectives(config, dir, filepath.Join(dir, "build"))
}

// LDFlags returns the linker flags in emission order.
func (d *Directives) LDFlags() []string {
	var flags []string
	for _, p := range d.SearchPaths {
		flags = append(flags, "-L"+quoteFlag(p))
	}
	if d.LinkLib != "" {
		flags = append(flags, "-l"+d.LinkLib)
	}
	if d.RelaxedUndefined {
		flags = append(flags, relaxedUndefinedFlag)
	}
	return flags
}

// CFlags returns the compiler flags in emission order.
func (d *Directives) CFlags() []string {
	var flags []string
	for _, p := range d.IncludeDirs {
		flags = append(flags, "-I"+quoteFlag(p))
	}
	return flags
}

// Render produces a Go source file whose cgo preamble carries the
// directives. The file belongs to package pkg and is guarded by buildTags
// (a //go:build expression) when buildTags is not empty.
func (d *Directives) Render(pkg, buildTags string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by bearssl-build. DO NOT EDIT.\n\n")
	if buildTags != "" {
		fmt.Fprintf(&buf, "//go:build %s\n\n", buildTags)
	}
	fmt.Fprintf(&buf, "package %s\n\n/*\n", pkg)
	if cflags := d.CFlags(); len(cflags) > 0 {
		fmt.Fprintf(&buf, "#cgo CFLAGS: %s\n", strings.Join(cflags, " "))
	}
	if ldflags := d.LDFlags(); len(ldflags) > 0 {
		fmt.Fprintf(&buf, "#cgo LDFLAGS: %s\n", strings.Join(ldflags, " "))
	}
	buf.WriteString("*/\nimport \"C\"\n")

	return imports.Process("zlink.go", buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}

// quoteFlag quotes a path for a #cgo line when it contains blanks.
func quoteFlag(p string) string {
	if strings.ContainsAny(p, " \t") {
		return "'" + p + "'"
	}
	return p
}

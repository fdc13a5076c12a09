package bearsslbuild

// layoutTestExempt lists targets whose layout checks are disabled. On these
// targets explicitly unaligned system types make alignment checks report
// spurious mismatches, and the checks cannot be switched off per type.
var layoutTestExempt = map[string]struct{}{
	"aarch64-apple-ios":     {},
	"aarch64-apple-ios-sim": {},
}

// LayoutTestsEnabled reports whether layout checks are generated for target.
// Matching is exact; there is no prefix or pattern matching.
func LayoutTestsEnabled(target string) bool {
	_, exempt := layoutTestExempt[target]
	return !exempt
}

// ApplyQuirks adjusts opts for target before generation.
func ApplyQuirks(target string, opts *BindgenOptions) {
	if !LayoutTestsEnabled(target) {
		opts.LayoutTests = false
	}
}

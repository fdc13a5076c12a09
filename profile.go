package bearsslbuild

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed profiles.toml
var builtinProfiles string

// Profile is a named HeaderSet plus the allowlists applied to it.
type Profile struct {
	Name      string   `toml:"-"`
	Headers   []string `toml:"headers"`
	Functions []string `toml:"functions"`
	Types     []string `toml:"types"`
	Vars      []string `toml:"vars"`
}

type profileFile struct {
	Defaults Profile            `toml:"defaults"`
	Profiles map[string]Profile `toml:"profiles"`
}

// ParseProfiles decodes a profile document. Unknown keys are rejected, and
// allowlist fields a profile leaves empty are taken from [defaults].
func ParseProfiles(doc string) (map[string]*Profile, error) {
	var f profileFile
	md, err := toml.Decode(doc, &f)
	if err != nil {
		return nil, fmt.Errorf("decoding profiles: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("decoding profiles: unknown keys %s", strings.Join(keys, ", "))
	}

	out := make(map[string]*Profile, len(f.Profiles))
	for name, p := range f.Profiles {
		p := p
		p.Name = name
		if len(p.Functions) == 0 {
			p.Functions = f.Defaults.Functions
		}
		if len(p.Types) == 0 {
			p.Types = f.Defaults.Types
		}
		if len(p.Vars) == 0 {
			p.Vars = f.Defaults.Vars
		}
		if len(p.Headers) == 0 {
			return nil, fmt.Errorf("profile %q lists no headers", name)
		}
		if _, err := p.Allowlist(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
		out[name] = &p
	}
	return out, nil
}

// LoadProfile returns the built-in profile called name. Profiles are named
// after the build strategy they pair with.
func LoadProfile(name string) (*Profile, error) {
	profiles, err := ParseProfiles(builtinProfiles)
	if err != nil {
		return nil, err
	}
	p, ok := profiles[name]
	if !ok {
		names := make([]string, 0, len(profiles))
		for n := range profiles {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("unknown binding profile %q (have %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}

// Allowlist holds compiled, fully anchored name filters.
type Allowlist struct {
	Functions []*regexp.Regexp
	Types     []*regexp.Regexp
	Vars      []*regexp.Regexp
}

// Allowlist compiles the profile's patterns.
func (p *Profile) Allowlist() (*Allowlist, error) {
	var (
		a   Allowlist
		err error
	)
	if a.Functions, err = compileAnchored(p.Functions); err != nil {
		return nil, err
	}
	if a.Types, err = compileAnchored(p.Types); err != nil {
		return nil, err
	}
	if a.Vars, err = compileAnchored(p.Vars); err != nil {
		return nil, err
	}
	return &a, nil
}

func compileAnchored(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("^(?:" + p + ")$")
		if err != nil {
			return nil, fmt.Errorf("allowlist pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, name string) bool {
	for _, re := range res {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// Function reports whether a function declaration is kept.
func (a *Allowlist) Function(name string) bool { return matchAny(a.Functions, name) }

// Type reports whether a type declaration is kept.
func (a *Allowlist) Type(name string) bool { return matchAny(a.Types, name) }

// Var reports whether a variable, enumerator or macro constant is kept.
func (a *Allowlist) Var(name string) bool { return matchAny(a.Vars, name) }

package bearsslbuild

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"modernc.org/cc/v4"
)

type declKind int

const (
	declStruct     declKind = iota // struct or union, by typedef or tag
	declEnum                       // enum, by typedef or tag
	declTypedef                    // any other typedef
	declFunc                       // function prototype
	declVar                        // extern object
	declEnumerator                 // enumerator whose enum is not emitted
)

// cdecl is one allowlisted file-scope declaration.
type cdecl struct {
	kind  declKind
	name  string
	isTag bool // name is a struct, union or enum tag
	seq   int
	file  string
	line  int
	typ   cc.Type

	enumerator *cc.Enumerator
}

// translationUnit is the parsed header set filtered through an allowlist.
type translationUnit struct {
	ast     *cc.AST
	decls   []cdecl
	macros  []*cc.Macro
	skipped []string // functions the module cannot call through cgo
}

// translateHeaders parses the header set with the host C compiler's
// configuration and collects the allowlisted declarations.
func translateHeaders(opts *BindgenOptions) (unit *translationUnit, err error) {
	fail := func(err error) error {
		return &TranslationError{IncludePath: opts.IncludeDir, Headers: opts.Headers, Err: err}
	}

	if len(opts.Headers) == 0 {
		return nil, fail(errors.New("empty header set"))
	}
	if opts.Allowlist == nil {
		return nil, fail(errors.New("no allowlist"))
	}
	info, err := os.Stat(opts.IncludeDir)
	if err != nil {
		return nil, fail(err)
	}
	if !info.IsDir() {
		return nil, fail(fmt.Errorf("%s is not a directory", opts.IncludeDir))
	}
	for _, h := range opts.Headers {
		if _, err := os.Stat(filepath.Join(opts.IncludeDir, h)); err != nil {
			return nil, fail(err)
		}
	}

	goos, goarch := opts.GOOS, opts.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	cfg, err := cc.NewConfig(goos, goarch, opts.CompilerArgs...)
	if err != nil {
		return nil, fail(err)
	}
	cfg.Header = true
	cfg.EvalAllMacros = true
	cfg.IncludePaths = append([]string{"", opts.IncludeDir}, cfg.IncludePaths...)
	cfg.SysIncludePaths = append([]string{opts.IncludeDir}, cfg.SysIncludePaths...)

	var src strings.Builder
	for _, h := range opts.Headers {
		fmt.Fprintf(&src, "#include \"%s\"\n", h)
	}

	// The translator panics on some malformed input instead of reporting it.
	defer func() {
		if r := recover(); r != nil {
			unit, err = nil, fail(fmt.Errorf("translator panic: %v", r))
		}
	}()

	ast, err := cc.Translate(cfg, []cc.Source{
		{Name: "<predefined>", Value: cfg.Predefined},
		{Name: "<builtin>", Value: cc.Builtin},
		{Name: "<bindings>", Value: src.String()},
	})
	if err != nil {
		return nil, fail(err)
	}

	unit = &translationUnit{ast: ast}
	unit.collect(opts.Allowlist)
	return unit, nil
}

func (u *translationUnit) collect(allow *Allowlist) {
	seen := map[string]bool{}
	add := func(d cdecl) {
		key := d.name
		if d.isTag {
			key = "tag " + key
		}
		if seen[key] {
			return
		}
		seen[key] = true
		u.decls = append(u.decls, d)
	}

	for name, nodes := range u.ast.Scope.Nodes {
		for _, n := range nodes {
			switch x := n.(type) {
			case *cc.Declarator:
				tok := x.NameTok()
				pos := x.Position()
				d := cdecl{name: name, seq: tok.Seq(), file: pos.Filename, line: pos.Line, typ: x.Type()}
				switch ft, isFunc := x.Type().(*cc.FunctionType); {
				case x.IsTypename():
					if !allow.Type(name) {
						continue
					}
					d.kind = typedefKind(d.typ)
				case isFunc:
					if !allow.Function(name) {
						continue
					}
					if x.IsStatic() || x.IsInline() || ft.IsVariadic() {
						u.skipped = append(u.skipped, name)
						continue
					}
					d.kind = declFunc
				default:
					if !allow.Var(name) || x.IsStatic() {
						continue
					}
					d.kind = declVar
				}
				add(d)

			case *cc.StructOrUnionSpecifier:
				if !allow.Type(name) {
					continue
				}
				pos := x.Position()
				add(cdecl{kind: declStruct, name: name, isTag: true, seq: x.Token.Seq(),
					file: pos.Filename, line: pos.Line, typ: x.Type()})

			case *cc.EnumSpecifier:
				if !allow.Type(name) {
					continue
				}
				pos := x.Position()
				add(cdecl{kind: declEnum, name: name, isTag: true, seq: x.Token.Seq(),
					file: pos.Filename, line: pos.Line, typ: x.Type()})

			case *cc.Enumerator:
				if !allow.Var(name) {
					continue
				}
				pos := x.Position()
				add(cdecl{kind: declEnumerator, name: name, seq: x.Token.Seq(),
					file: pos.Filename, line: pos.Line, enumerator: x})
			}
		}
	}

	sort.SliceStable(u.decls, func(i, j int) bool {
		if u.decls[i].seq != u.decls[j].seq {
			return u.decls[i].seq < u.decls[j].seq
		}
		return u.decls[i].name < u.decls[j].name
	})
	sort.Strings(u.skipped)

	pure := map[string]bool{}
	for name, m := range u.ast.Macros {
		if !allow.Var(name) || !u.constantMacro(name, pure, map[string]bool{}) {
			continue
		}
		u.macros = append(u.macros, m)
	}
	sort.Slice(u.macros, func(i, j int) bool {
		pi, pj := u.macros[i].Position(), u.macros[j].Position()
		if pi.Filename != pj.Filename {
			return pi.Filename < pj.Filename
		}
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		return u.macros[i].Name.SrcStr() < u.macros[j].Name.SrcStr()
	})
}

// castKeywords may appear in a constant macro as part of a cast.
var castKeywords = map[string]bool{
	"char": true, "short": true, "int": true, "long": true,
	"signed": true, "unsigned": true,
}

// constantMacro reports whether name is an object-like macro with an
// integer value whose replacement list is a constant expression. Identifiers
// in the list must name other constant macros or types used in a cast, so
// aliases such as "#define br_sha256_update br_sha224_update" are rejected.
func (u *translationUnit) constantMacro(name string, memo, visiting map[string]bool) bool {
	if ok, done := memo[name]; done {
		return ok
	}
	m := u.ast.Macros[name]
	if m == nil || m.IsFnLike || visiting[name] {
		return false
	}
	switch m.Value().(type) {
	case cc.Int64Value, cc.UInt64Value:
	default:
		memo[name] = false
		return false
	}

	visiting[name] = true
	ok := len(m.ReplacementList()) != 0
	for _, t := range m.ReplacementList() {
		if t.Ch != rune(cc.IDENTIFIER) {
			continue
		}
		id := t.SrcStr()
		if castKeywords[id] || u.isTypedef(id) {
			continue
		}
		if !u.constantMacro(id, memo, visiting) {
			ok = false
			break
		}
	}
	delete(visiting, name)
	memo[name] = ok
	return ok
}

func (u *translationUnit) isTypedef(name string) bool {
	for _, n := range u.ast.Scope.Nodes[name] {
		if d, ok := n.(*cc.Declarator); ok && d.IsTypename() {
			return true
		}
	}
	return false
}

func typedefKind(t cc.Type) declKind {
	switch t.Kind() {
	case cc.Struct, cc.Union:
		return declStruct
	case cc.Enum:
		return declEnum
	default:
		return declTypedef
	}
}

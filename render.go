package bearsslbuild

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/imports"
	"modernc.org/cc/v4"
)

// errUnspellable is returned for C types cgo offers no name for, such as a
// pointer to an untagged struct that has no typedef.
var errUnspellable = errors.New("type has no cgo spelling")

// fixedWidth maps typedefs from <stdint.h> and <stddef.h> to Go types.
var fixedWidth = map[string]string{
	"int8_t":    "int8",
	"int16_t":   "int16",
	"int32_t":   "int32",
	"int64_t":   "int64",
	"uint8_t":   "uint8",
	"uint16_t":  "uint16",
	"uint32_t":  "uint32",
	"uint64_t":  "uint64",
	"size_t":    "uintptr",
	"uintptr_t": "uintptr",
	"intptr_t":  "int",
	"ptrdiff_t": "int",
}

var cgoScalars = map[cc.Kind]string{
	cc.Bool:      "C._Bool",
	cc.Char:      "C.char",
	cc.SChar:     "C.schar",
	cc.UChar:     "C.uchar",
	cc.Short:     "C.short",
	cc.UShort:    "C.ushort",
	cc.Int:       "C.int",
	cc.UInt:      "C.uint",
	cc.Long:      "C.long",
	cc.ULong:     "C.ulong",
	cc.LongLong:  "C.longlong",
	cc.ULongLong: "C.ulonglong",
	cc.Float:     "C.float",
	cc.Double:    "C.double",
}

// Identifiers a parameter may not use as is.
var reservedParams = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true, "for": true,
	"func": true, "go": true, "goto": true, "if": true, "import": true,
	"interface": true, "map": true, "package": true, "range": true, "return": true,
	"select": true, "struct": true, "switch": true, "type": true, "var": true,
	"C": true, "unsafe": true, "r": true,
}

type layoutField struct {
	name   string
	offset int64
}

type layoutCheck struct {
	goName string
	sizeof string // cgo sizeof expression
	align  int
	fields []layoutField
}

type emitter struct {
	unit *translationUnit
	opts *BindgenOptions
	mod  *Module

	buf      bytes.Buffer
	declared map[string]bool

	structOwners map[any]string
	enumOwners   map[any]string
	ownedEnums   map[string]bool // enumerators emitted with their enum type

	layouts    []layoutCheck
	usesUnsafe bool
	comments   *commentIndex
}

// render produces the formatted Go source for unit.
func render(unit *translationUnit, opts *BindgenOptions) (mod *Module, err error) {
	defer func() {
		if r := recover(); r != nil {
			mod, err = nil, fmt.Errorf("unsupported declaration: %v", r)
		}
	}()

	e := &emitter{
		unit:         unit,
		opts:         opts,
		mod:          &Module{Package: opts.Package, LayoutTests: opts.LayoutTests},
		declared:     map[string]bool{},
		structOwners: map[any]string{},
		enumOwners:   map[any]string{},
		ownedEnums:   map[string]bool{},
		comments:     &commentIndex{files: map[string][]string{}},
	}
	e.assignOwners()
	e.emitMacros()
	for _, d := range unit.decls {
		switch d.kind {
		case declStruct:
			e.emitStruct(d)
		case declEnum:
			e.emitEnum(d)
		case declTypedef:
			e.emitTypedef(d)
		case declEnumerator:
			e.emitEnumerator(d)
		case declVar:
			e.emitVar(d)
		case declFunc:
			e.emitFunc(d)
		}
	}
	if opts.LayoutTests {
		e.emitVerifyLayout()
	}

	src := e.assemble()
	formatted, err := imports.Process("zbindings.go", src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, err
	}
	e.mod.Source = formatted
	e.mod.Skipped = unit.skipped
	return e.mod, nil
}

// assignOwners decides, in declaration order, which name declares each
// struct, union and enum. Later names for the same type become aliases.
func (e *emitter) assignOwners() {
	for _, d := range e.unit.decls {
		switch d.kind {
		case declStruct:
			key := structKey(d.typ)
			if key == nil {
				continue
			}
			if _, ok := e.structOwners[key]; !ok {
				e.structOwners[key] = exportName(d.name)
			}
		case declEnum:
			et, ok := d.typ.(*cc.EnumType)
			if !ok {
				continue
			}
			key := enumKey(et)
			if key == nil {
				continue
			}
			if _, ok := e.enumOwners[key]; !ok {
				e.enumOwners[key] = exportName(d.name)
				for _, en := range et.Enumerators() {
					e.ownedEnums[en.Token.SrcStr()] = true
				}
			}
		}
	}
}

// structKey identifies a struct or union across the typedef names that
// refer to it. Typedef names share their struct's fields, so the first
// field pointer is stable. Field-less types fall back to the tag.
func structKey(t cc.Type) any {
	switch x := t.(type) {
	case *cc.StructType:
		if x.NumFields() > 0 {
			return x.FieldByIndex(0)
		}
		tag := x.Tag()
		if s := tag.SrcStr(); s != "" {
			return "struct " + s
		}
	case *cc.UnionType:
		if x.NumFields() > 0 {
			return x.FieldByIndex(0)
		}
		tag := x.Tag()
		if s := tag.SrcStr(); s != "" {
			return "union " + s
		}
	}
	return nil
}

func enumKey(et *cc.EnumType) any {
	if ens := et.Enumerators(); len(ens) > 0 {
		return ens[0]
	}
	tag := et.Tag()
	if s := tag.SrcStr(); s != "" {
		return "enum " + s
	}
	return nil
}

// declare reserves a Go identifier. It reports false if the name is taken.
func (e *emitter) declare(name string) bool {
	if e.declared[name] {
		return false
	}
	e.declared[name] = true
	return true
}

// doc returns the C comment above file:line as Go comment lines.
func (e *emitter) doc(file string, line int) string {
	if !e.opts.Comments {
		return ""
	}
	var b strings.Builder
	for _, l := range e.comments.docFor(file, line) {
		if l == "" {
			b.WriteString("//\n")
			continue
		}
		fmt.Fprintf(&b, "// %s\n", l)
	}
	return b.String()
}

func (e *emitter) emitMacros() {
	var consts []string
	for _, m := range e.unit.macros {
		cname := m.Name.SrcStr()
		name := exportName(cname)
		if !e.declare(name) {
			continue
		}
		typ, lit := constantType(m.Value())
		pos := m.Position()
		consts = append(consts, fmt.Sprintf("%s%s %s = %s\n", e.doc(pos.Filename, pos.Line), name, typ, lit))
		e.mod.Constants = append(e.mod.Constants, name)
	}
	if len(consts) == 0 {
		return
	}
	e.buf.WriteString("const (\n")
	for _, c := range consts {
		e.buf.WriteString(c)
	}
	e.buf.WriteString(")\n\n")
}

// constantType picks the narrowest of int32, int64 and uint64 that holds v.
func constantType(v cc.Value) (typ, lit string) {
	switch x := v.(type) {
	case cc.Int64Value:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return "int32", fmt.Sprint(int64(x))
		}
		return "int64", fmt.Sprint(int64(x))
	case cc.UInt64Value:
		switch {
		case x <= math.MaxInt32:
			return "int32", fmt.Sprint(uint64(x))
		case x <= math.MaxInt64:
			return "int64", fmt.Sprint(uint64(x))
		default:
			return "uint64", fmt.Sprint(uint64(x))
		}
	}
	return "int32", "0"
}

func (e *emitter) emitStruct(d cdecl) {
	name := exportName(d.name)
	if e.declared[name] {
		return
	}
	owner := e.structOwners[structKey(d.typ)]
	if owner != "" && owner != name {
		e.declare(name)
		fmt.Fprintf(&e.buf, "type %s = %s\n\n", name, owner)
		e.mod.Types = append(e.mod.Types, name)
		return
	}
	e.declare(name)

	var (
		typ    string
		fields []layoutField
	)
	if d.typ.Kind() == cc.Union {
		typ = unionStorage(d.typ)
	} else {
		typ, fields = e.structBody(d.typ)
	}
	fmt.Fprintf(&e.buf, "type %s %s\n\n", name, typ)
	e.mod.Types = append(e.mod.Types, name)

	if size := d.typ.Size(); size > 0 {
		sizeof := "C.sizeof_" + d.name
		if d.isTag {
			kind := "struct"
			if d.typ.Kind() == cc.Union {
				kind = "union"
			}
			sizeof = "C.sizeof_" + kind + "_" + d.name
		}
		e.layouts = append(e.layouts, layoutCheck{
			goName: name,
			sizeof: sizeof,
			align:  d.typ.Align(),
			fields: fields,
		})
	}
}

// fielder is implemented by *cc.StructType and *cc.UnionType.
type fielder interface {
	NumFields() int
	FieldByIndex(int) *cc.Field
	Size() int64
}

// structBody renders a Go struct type with the C member offsets. Gaps
// left by bit-fields, flexible array members and alignment become blank
// byte arrays so each named member lands on its C offset.
func (e *emitter) structBody(t cc.Type) (string, []layoutField) {
	st, ok := t.(fielder)
	if !ok || t.Size() <= 0 {
		return "struct{}", nil
	}

	var (
		b      strings.Builder
		fields []layoutField
		goOff  int64
		used   = map[string]bool{}
	)
	b.WriteString("struct {\n")
	for i := 0; i < st.NumFields(); i++ {
		f := st.FieldByIndex(i)
		if f == nil || f.IsBitfield() || f.IsFlexibleArrayMember() {
			continue
		}
		ft := f.Type()
		size := ft.Size()
		off := f.Offset()
		if size <= 0 || off < goOff {
			continue
		}
		if off > goOff {
			fmt.Fprintf(&b, "\t_ [%d]byte\n", off-goOff)
		}

		name := exportName(f.Name())
		if f.Name() == "" {
			name = fmt.Sprintf("Anon%d", i)
		}
		for used[name] {
			name += "_"
		}
		used[name] = true

		fmt.Fprintf(&b, "\t%s %s\n", name, e.goType(ft))
		fields = append(fields, layoutField{name: name, offset: off})
		goOff = off + size
	}
	if size := st.Size(); size > goOff {
		fmt.Fprintf(&b, "\t_ [%d]byte\n", size-goOff)
	}
	b.WriteString("}")
	return b.String(), fields
}

// unionStorage renders a union as an array of its alignment-sized words.
func unionStorage(t cc.Type) string {
	size, align := t.Size(), int64(t.Align())
	if size <= 0 {
		return "struct{}"
	}
	var word string
	switch align {
	case 8:
		word = "uint64"
	case 4:
		word = "uint32"
	case 2:
		word = "uint16"
	default:
		word, align = "uint8", 1
	}
	return fmt.Sprintf("[%d]%s", (size+align-1)/align, word)
}

func (e *emitter) emitEnum(d cdecl) {
	name := exportName(d.name)
	if e.declared[name] {
		return
	}
	et, ok := d.typ.(*cc.EnumType)
	if !ok {
		return
	}
	e.declare(name)
	e.mod.Types = append(e.mod.Types, name)

	owner := e.enumOwners[enumKey(et)]
	if owner != "" && owner != name {
		fmt.Fprintf(&e.buf, "type %s = %s\n\n", name, owner)
		return
	}

	fmt.Fprintf(&e.buf, "type %s %s\n\n", name, scalarType(et.UnderlyingType()))
	if ens := et.Enumerators(); len(ens) > 0 {
		e.buf.WriteString("const (\n")
		for _, en := range ens {
			cname := en.Token.SrcStr()
			cst := name + "_" + cname
			if !e.declare(cst) {
				continue
			}
			_, lit := constantType(en.Value())
			fmt.Fprintf(&e.buf, "\t%s %s = %s\n", cst, name, lit)
			e.mod.Constants = append(e.mod.Constants, cst)
		}
		e.buf.WriteString(")\n\n")
	}
}

func (e *emitter) emitEnumerator(d cdecl) {
	if e.ownedEnums[d.name] {
		return
	}
	name := exportName(d.name)
	if !e.declare(name) {
		return
	}
	typ, lit := constantType(d.enumerator.Value())
	fmt.Fprintf(&e.buf, "const %s %s = %s\n\n", name, typ, lit)
	e.mod.Constants = append(e.mod.Constants, name)
}

func (e *emitter) emitTypedef(d cdecl) {
	name := exportName(d.name)
	if !e.declare(name) {
		return
	}
	fmt.Fprintf(&e.buf, "type %s = %s\n\n", name, e.goUnderlying(d.typ))
	e.mod.Types = append(e.mod.Types, name)
}

func (e *emitter) emitVar(d cdecl) {
	name := exportName(d.name)
	if !e.declare(name) {
		return
	}
	e.usesUnsafe = true
	e.buf.WriteString(e.doc(d.file, d.line))
	fmt.Fprintf(&e.buf, "var %s = (*%s)(unsafe.Pointer(&C.%s))\n\n", name, e.goType(d.typ), d.name)
	e.mod.Vars = append(e.mod.Vars, name)
}

func (e *emitter) emitFunc(d cdecl) {
	name := exportName(d.name)
	if e.declared[name] {
		return
	}
	ft, ok := d.typ.(*cc.FunctionType)
	if !ok {
		return
	}

	params := ft.Parameters()
	if len(params) == 1 && params[0].Type().Kind() == cc.Void {
		params = nil
	}

	var (
		sig  []string
		args []string
		used = map[string]bool{}
	)
	for i, p := range params {
		pname := paramName(p.Name(), i, used)
		pt := p.Type()
		gt := e.paramGoType(pt)
		arg, err := e.toC(pname, pt, gt)
		if err != nil {
			e.unit.skipped = append(e.unit.skipped, d.name)
			return
		}
		sig = append(sig, pname+" "+gt)
		args = append(args, arg)
	}

	call := fmt.Sprintf("C.%s(%s)", d.name, strings.Join(args, ", "))
	res := ft.Result()
	var result, body string
	switch res.Kind() {
	case cc.Void:
		body = call
	case cc.Ptr:
		result = e.goType(res)
		if result == "unsafe.Pointer" {
			body = fmt.Sprintf("return unsafe.Pointer(%s)", call)
		} else {
			body = fmt.Sprintf("return (%s)(unsafe.Pointer(%s))", result, call)
		}
		e.usesUnsafe = true
	case cc.Struct, cc.Union:
		result = e.goType(res)
		body = fmt.Sprintf("r := %s\n\treturn *(*%s)(unsafe.Pointer(&r))", call, result)
		e.usesUnsafe = true
	default:
		result = e.goType(res)
		body = fmt.Sprintf("return %s(%s)", result, call)
	}

	e.declare(name)
	e.buf.WriteString(e.doc(d.file, d.line))
	fmt.Fprintf(&e.buf, "func %s(%s) %s {\n\t%s\n}\n\n", name, strings.Join(sig, ", "), result, body)
	e.mod.Functions = append(e.mod.Functions, name)
}

func paramName(name string, i int, used map[string]bool) string {
	if name == "" {
		name = fmt.Sprintf("arg%d", i)
	}
	if reservedParams[name] {
		name += "_"
	}
	for used[name] {
		name += "_"
	}
	used[name] = true
	return name
}

// paramGoType renders a parameter type. Array parameters, which C passes as
// pointers to their first element, become pointers to Go arrays.
func (e *emitter) paramGoType(t cc.Type) string {
	if t.Kind() == cc.Ptr {
		if arr, ok := t.Undecay().(*cc.ArrayType); ok && arr.Len() > 0 {
			return fmt.Sprintf("*[%d]%s", arr.Len(), e.goType(arr.Elem()))
		}
	}
	return e.goType(t)
}

// toC renders the expression converting Go value name of Go type goT to
// the C type t.
func (e *emitter) toC(name string, t cc.Type, goT string) (string, error) {
	ct, err := e.cgoType(t)
	if err != nil {
		return "", err
	}
	switch t.Kind() {
	case cc.Ptr:
		if goT == "unsafe.Pointer" {
			if ct == "unsafe.Pointer" {
				return name, nil
			}
			return fmt.Sprintf("(%s)(%s)", ct, name), nil
		}
		e.usesUnsafe = true
		return fmt.Sprintf("(%s)(unsafe.Pointer(%s))", ct, name), nil
	case cc.Struct, cc.Union:
		e.usesUnsafe = true
		return fmt.Sprintf("*(*%s)(unsafe.Pointer(&%s))", ct, name), nil
	default:
		return fmt.Sprintf("%s(%s)", ct, name), nil
	}
}

// cgoType spells t the way cgo exposes it.
func (e *emitter) cgoType(t cc.Type) (string, error) {
	if td := t.Typedef(); td != nil {
		return "C." + td.Name(), nil
	}
	switch t.Kind() {
	case cc.Ptr:
		p, ok := t.(*cc.PointerType)
		if !ok {
			return "", errUnspellable
		}
		elem := p.Elem()
		switch elem.Kind() {
		case cc.Void:
			if elem.Typedef() == nil {
				return "unsafe.Pointer", nil
			}
		case cc.Function:
			return "*[0]byte", nil
		}
		inner, err := e.cgoType(elem)
		if err != nil {
			return "", err
		}
		return "*" + inner, nil
	case cc.Array:
		arr, ok := t.(*cc.ArrayType)
		if !ok || arr.Len() < 0 {
			return "", errUnspellable
		}
		inner, err := e.cgoType(arr.Elem())
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%d]%s", arr.Len(), inner), nil
	case cc.Struct:
		if st, ok := t.(*cc.StructType); ok {
			tag := st.Tag()
			if s := tag.SrcStr(); s != "" {
				return "C.struct_" + s, nil
			}
		}
	case cc.Union:
		if ut, ok := t.(*cc.UnionType); ok {
			tag := ut.Tag()
			if s := tag.SrcStr(); s != "" {
				return "C.union_" + s, nil
			}
		}
	case cc.Enum:
		if et, ok := t.(*cc.EnumType); ok {
			tag := et.Tag()
			if s := tag.SrcStr(); s != "" {
				return "C.enum_" + s, nil
			}
			return e.cgoType(et.UnderlyingType())
		}
	default:
		if s, ok := cgoScalars[t.Kind()]; ok {
			return s, nil
		}
	}
	return "", errUnspellable
}

// goType renders the Go type used for a C type, preferring the name it was
// declared with.
func (e *emitter) goType(t cc.Type) string {
	if td := t.Typedef(); td != nil {
		name := td.Name()
		if g, ok := fixedWidth[name]; ok {
			return g
		}
		if e.opts.Allowlist.Type(name) {
			switch t.Kind() {
			case cc.Struct, cc.Union:
				if owner := e.structOwners[structKey(t)]; owner != "" {
					return owner
				}
			}
			return exportName(name)
		}
	}
	return e.goUnderlying(t)
}

// goUnderlying renders t structurally, ignoring its own typedef name.
func (e *emitter) goUnderlying(t cc.Type) string {
	switch t.Kind() {
	case cc.Ptr:
		p, ok := t.(*cc.PointerType)
		if !ok {
			e.usesUnsafe = true
			return "unsafe.Pointer"
		}
		elem := p.Elem()
		switch elem.Kind() {
		case cc.Void, cc.Function:
			e.usesUnsafe = true
			return "unsafe.Pointer"
		}
		return "*" + e.goType(elem)
	case cc.Array:
		arr, ok := t.(*cc.ArrayType)
		if !ok {
			return fmt.Sprintf("[%d]byte", t.Size())
		}
		n := arr.Len()
		if n < 0 {
			n = 0
		}
		return fmt.Sprintf("[%d]%s", n, e.goType(arr.Elem()))
	case cc.Struct, cc.Union:
		if owner := e.structOwners[structKey(t)]; owner != "" {
			return owner
		}
		if t.Kind() == cc.Union {
			return unionStorage(t)
		}
		body, _ := e.structBody(t)
		return body
	case cc.Enum:
		if et, ok := t.(*cc.EnumType); ok {
			if owner := e.enumOwners[enumKey(et)]; owner != "" {
				return owner
			}
			return scalarType(et.UnderlyingType())
		}
		return scalarType(t)
	case cc.Function:
		e.usesUnsafe = true
		return "unsafe.Pointer"
	case cc.Void:
		return "byte"
	default:
		return scalarType(t)
	}
}

// scalarType maps an arithmetic C type to the Go type of the same size.
func scalarType(t cc.Type) string {
	switch t.Kind() {
	case cc.Bool:
		return "bool"
	case cc.Char:
		return "byte"
	case cc.SChar:
		return "int8"
	case cc.UChar:
		return "uint8"
	case cc.Short:
		return "int16"
	case cc.UShort:
		return "uint16"
	case cc.Int:
		return "int32"
	case cc.UInt:
		return "uint32"
	case cc.Long, cc.LongLong:
		return sizedInt(t.Size(), true)
	case cc.ULong, cc.ULongLong:
		return sizedInt(t.Size(), false)
	case cc.Float:
		return "float32"
	case cc.Double:
		return "float64"
	}
	return fmt.Sprintf("[%d]byte", max(t.Size(), 0))
}

func sizedInt(size int64, signed bool) string {
	prefix := "uint"
	if signed {
		prefix = "int"
	}
	switch size {
	case 1, 2, 4, 8:
		return fmt.Sprintf("%s%d", prefix, size*8)
	}
	return fmt.Sprintf("[%d]byte", size)
}

func (e *emitter) emitVerifyLayout() {
	e.buf.WriteString("// VerifyLayout compares the size, alignment and member offsets of every\n")
	e.buf.WriteString("// generated struct with the C layout. It returns nil when they all agree.\n")
	if len(e.layouts) == 0 {
		e.buf.WriteString("func VerifyLayout() error { return nil }\n")
		return
	}
	e.usesUnsafe = true
	e.buf.WriteString("func VerifyLayout() error {\n\tvar errs []error\n")
	e.buf.WriteString("\tcheck := func(what string, got, want uintptr) {\n")
	e.buf.WriteString("\t\tif got != want {\n")
	e.buf.WriteString("\t\t\terrs = append(errs, fmt.Errorf(\"%s: Go %d, C %d\", what, got, want))\n")
	e.buf.WriteString("\t\t}\n\t}\n")
	for _, l := range e.layouts {
		fmt.Fprintf(&e.buf, "\t{\n\t\tvar v %s\n", l.goName)
		fmt.Fprintf(&e.buf, "\t\tcheck(%q, unsafe.Sizeof(v), uintptr(%s))\n", "size of "+l.goName, l.sizeof)
		fmt.Fprintf(&e.buf, "\t\tcheck(%q, unsafe.Alignof(v), %d)\n", "alignment of "+l.goName, l.align)
		for _, f := range l.fields {
			fmt.Fprintf(&e.buf, "\t\tcheck(%q, unsafe.Offsetof(v.%s), %d)\n",
				"offset of "+l.goName+"."+f.name, f.name, f.offset)
		}
		e.buf.WriteString("\t}\n")
	}
	e.buf.WriteString("\treturn errors.Join(errs...)\n}\n")
}

func (e *emitter) assemble() []byte {
	var out bytes.Buffer
	fmt.Fprintf(&out, "// Code generated by bearssl-build from %s. DO NOT EDIT.\n\n", strings.Join(e.opts.Headers, ", "))
	if e.opts.BuildTags != "" {
		fmt.Fprintf(&out, "//go:build %s\n\n", e.opts.BuildTags)
	}
	fmt.Fprintf(&out, "package %s\n\n/*\n", e.opts.Package)
	for _, h := range e.opts.Headers {
		fmt.Fprintf(&out, "#include \"%s\"\n", h)
	}
	out.WriteString("*/\nimport \"C\"\n\n")

	var pkgs []string
	if e.opts.LayoutTests && len(e.layouts) > 0 {
		pkgs = append(pkgs, `"errors"`, `"fmt"`)
	}
	if e.usesUnsafe {
		pkgs = append(pkgs, `"unsafe"`)
	}
	if len(pkgs) > 0 {
		fmt.Fprintf(&out, "import (\n\t%s\n)\n\n", strings.Join(pkgs, "\n\t"))
	}
	out.Write(e.buf.Bytes())
	return out.Bytes()
}

// exportName makes a C identifier exported in Go by upper-casing its first
// letter: br_sha256_init becomes Br_sha256_init.
func exportName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return "X" + name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

// commentIndex extracts the comment block directly above a source line.
type commentIndex struct {
	files map[string][]string
}

func (c *commentIndex) lines(file string) []string {
	if l, ok := c.files[file]; ok {
		return l
	}
	var lines []string
	if f, err := os.Open(filepath.Clean(file)); err == nil {
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		f.Close()
	}
	c.files[file] = lines
	return lines
}

// docFor returns the cleaned text of the /* */ or // comment that ends on
// the line before line (1-based), or nil.
func (c *commentIndex) docFor(file string, line int) []string {
	lines := c.lines(file)
	end := line - 2
	if end < 0 || end >= len(lines) {
		return nil
	}

	var raw []string
	last := strings.TrimSpace(lines[end])
	switch {
	case strings.HasSuffix(last, "*/"):
		start := end
		for start >= 0 && !strings.Contains(lines[start], "/*") {
			start--
		}
		if start < 0 {
			return nil
		}
		raw = lines[start : end+1]
	case strings.HasPrefix(last, "//"):
		start := end
		for start > 0 && strings.HasPrefix(strings.TrimSpace(lines[start-1]), "//") {
			start--
		}
		raw = lines[start : end+1]
	default:
		return nil
	}

	var out []string
	for _, l := range raw {
		l = strings.TrimSpace(l)
		l = strings.TrimPrefix(l, "/**")
		l = strings.TrimPrefix(l, "/*")
		l = strings.TrimSuffix(l, "*/")
		l = strings.TrimPrefix(l, "//")
		l = strings.TrimPrefix(l, "*")
		l = strings.TrimSpace(strings.Replace(l, `\brief `, "", 1))
		out = append(out, l)
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}

package bytecode

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
)

// ErrDeserialize is returned when module bytes do not conform to the
// serialized Move format.
var ErrDeserialize = errors.New("malformed module bytecode")

const maxTypeDepth = 256

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrDeserialize)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrDeserialize)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// uleb reads a ULEB128-encoded unsigned integer.
func (r *reader) uleb() (uint64, error) {
	var v uint64
	var shift uint
	for {
		b, err := r.u8()
		if err != nil {
			return 0, err
		}
		v |= uint64(b&0x7F) << shift
		if b&0x80 == 0 {
			return v, nil
		}
		shift += 7
		if shift > maxULEBShift {
			return 0, fmt.Errorf("%w: ULEB128 value too large", ErrDeserialize)
		}
	}
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, fmt.Errorf("%w: unexpected end of input", ErrDeserialize)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) skip(n int) error {
	_, err := r.take(n)
	return err
}

// allocHint bounds a count-driven preallocation by the bytes left to
// decode; every element consumes at least one byte, so a count beyond
// that is already malformed and fails during the element reads.
func allocHint(n uint64, r *reader) int {
	if rem := uint64(r.remaining()); n > rem {
		return int(rem)
	}
	return int(n)
}

type tableHeader struct {
	kind   byte
	offset uint64
	length uint64
}

type moduleHandle struct {
	address int
	name    int
}

type datatypeHandle struct {
	module     int
	name       int
	abilities  []string
	typeParams int
}

type functionHandle struct {
	module     int
	name       int
	params     int
	returns    int
	typeParams int
}

type structDef struct {
	handle int
	native bool
	fields []rawField
}

type rawField struct {
	name int
	typ  Type
}

type functionDef struct {
	handle     int
	visibility Visibility
	isEntry    bool
	isNative   bool
	opcodes    []byte
}

// file holds the decoded table contents before index resolution.
type file struct {
	version     uint32
	identifiers []string
	addresses   []string
	modules     []moduleHandle
	datatypes   []datatypeHandle
	functions   []functionHandle
	signatures  [][]Type
	structDefs  []structDef
	funcDefs    []functionDef
	selfHandle  int
}

// Decode deserializes a single Move module.
func Decode(data []byte) (*Module, error) {
	f, err := decodeFile(data)
	if err != nil {
		return nil, err
	}
	return f.resolve()
}

func decodeFile(data []byte) (*file, error) {
	r := &reader{data: data}

	head, err := r.take(len(magic))
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(head, magic) {
		return nil, fmt.Errorf("%w: bad magic", ErrDeserialize)
	}

	raw, err := r.u32()
	if err != nil {
		return nil, err
	}
	f := &file{version: raw & versionMask}
	if f.version < minVersion || f.version > maxVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrDeserialize, f.version)
	}

	count, err := r.uleb()
	if err != nil {
		return nil, err
	}
	if count > tableCountMax {
		return nil, fmt.Errorf("%w: table count %d too large", ErrDeserialize, count)
	}

	headers := make(map[byte]tableHeader, count)
	for i := uint64(0); i < count; i++ {
		kind, err := r.u8()
		if err != nil {
			return nil, err
		}
		off, err := r.uleb()
		if err != nil {
			return nil, err
		}
		length, err := r.uleb()
		if err != nil {
			return nil, err
		}
		if _, dup := headers[kind]; dup {
			return nil, fmt.Errorf("%w: duplicate table kind %#x", ErrDeserialize, kind)
		}
		headers[kind] = tableHeader{kind: kind, offset: off, length: length}
	}

	base := r.pos
	avail := uint64(len(data) - base)
	var contentLen uint64
	for kind, h := range headers {
		// Checked piecewise; offset+length can wrap a uint64.
		if h.offset > avail || h.length > avail-h.offset {
			return nil, fmt.Errorf("%w: table %#x exceeds input bounds", ErrDeserialize, kind)
		}
		if end := h.offset + h.length; end > contentLen {
			contentLen = end
		}
	}

	table := func(kind byte) *reader {
		h, ok := headers[kind]
		if !ok {
			return nil
		}
		start := base + int(h.offset)
		return &reader{data: data[start : start+int(h.length)]}
	}

	if err := f.loadIdentifiers(table(tableIdentifiers)); err != nil {
		return nil, err
	}
	if err := f.loadAddresses(table(tableAddressIdentifiers)); err != nil {
		return nil, err
	}
	if err := f.loadModuleHandles(table(tableModuleHandles)); err != nil {
		return nil, err
	}
	if err := f.loadDatatypeHandles(table(tableDatatypeHandles)); err != nil {
		return nil, err
	}
	if err := f.loadFunctionHandles(table(tableFunctionHandles)); err != nil {
		return nil, err
	}
	if err := f.loadSignatures(table(tableSignatures)); err != nil {
		return nil, err
	}
	if err := f.loadStructDefs(table(tableStructDefs)); err != nil {
		return nil, err
	}
	if err := f.loadFunctionDefs(table(tableFunctionDefs)); err != nil {
		return nil, err
	}

	// The self module handle index trails the table contents.
	tail := &reader{data: data, pos: base + int(contentLen)}
	self, err := tail.uleb()
	if err != nil {
		return nil, err
	}
	f.selfHandle = int(self)
	return f, nil
}

func (f *file) loadIdentifiers(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		n, err := r.uleb()
		if err != nil {
			return err
		}
		if n > identifierMax {
			return fmt.Errorf("%w: identifier length %d too large", ErrDeserialize, n)
		}
		b, err := r.take(int(n))
		if err != nil {
			return err
		}
		f.identifiers = append(f.identifiers, string(b))
	}
	return nil
}

func (f *file) loadAddresses(r *reader) error {
	if r == nil {
		return nil
	}
	if r.remaining()%addressLen != 0 {
		return fmt.Errorf("%w: address table size %d not a multiple of %d", ErrDeserialize, r.remaining(), addressLen)
	}
	for r.remaining() > 0 {
		b, err := r.take(addressLen)
		if err != nil {
			return err
		}
		f.addresses = append(f.addresses, hex.EncodeToString(b))
	}
	return nil
}

func (f *file) loadModuleHandles(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		addr, err := r.uleb()
		if err != nil {
			return err
		}
		name, err := r.uleb()
		if err != nil {
			return err
		}
		f.modules = append(f.modules, moduleHandle{address: int(addr), name: int(name)})
	}
	return nil
}

func (f *file) loadDatatypeHandles(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		mod, err := r.uleb()
		if err != nil {
			return err
		}
		name, err := r.uleb()
		if err != nil {
			return err
		}
		abilities, err := r.uleb()
		if err != nil {
			return err
		}
		tpCount, err := r.uleb()
		if err != nil {
			return err
		}
		// Type parameters carry a constraint ability set, plus a
		// phantom flag from version 3 on; only the count matters for
		// inventories.
		for i := uint64(0); i < tpCount; i++ {
			if _, err := r.uleb(); err != nil {
				return err
			}
			if f.version >= phantomVersion {
				if _, err := r.u8(); err != nil {
					return err
				}
			}
		}
		f.datatypes = append(f.datatypes, datatypeHandle{
			module:     int(mod),
			name:       int(name),
			abilities:  abilityNames(abilities),
			typeParams: int(tpCount),
		})
	}
	return nil
}

func (f *file) loadFunctionHandles(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		mod, err := r.uleb()
		if err != nil {
			return err
		}
		name, err := r.uleb()
		if err != nil {
			return err
		}
		params, err := r.uleb()
		if err != nil {
			return err
		}
		returns, err := r.uleb()
		if err != nil {
			return err
		}
		tpCount, err := r.uleb()
		if err != nil {
			return err
		}
		for i := uint64(0); i < tpCount; i++ {
			if _, err := r.uleb(); err != nil {
				return err
			}
		}
		f.functions = append(f.functions, functionHandle{
			module:     int(mod),
			name:       int(name),
			params:     int(params),
			returns:    int(returns),
			typeParams: int(tpCount),
		})
	}
	return nil
}

func (f *file) loadSignatures(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		n, err := r.uleb()
		if err != nil {
			return err
		}
		sig := make([]Type, 0, allocHint(n, r))
		for i := uint64(0); i < n; i++ {
			t, err := parseType(r, 0)
			if err != nil {
				return err
			}
			sig = append(sig, t)
		}
		f.signatures = append(f.signatures, sig)
	}
	return nil
}

func parseType(r *reader, depth int) (Type, error) {
	if depth > maxTypeDepth {
		return Type{}, fmt.Errorf("%w: type nesting too deep", ErrDeserialize)
	}
	tag, err := r.u8()
	if err != nil {
		return Type{}, err
	}
	switch tag {
	case typeBool:
		return Type{Kind: KindBool}, nil
	case typeU8:
		return Type{Kind: KindU8}, nil
	case typeU16:
		return Type{Kind: KindU16}, nil
	case typeU32:
		return Type{Kind: KindU32}, nil
	case typeU64:
		return Type{Kind: KindU64}, nil
	case typeU128:
		return Type{Kind: KindU128}, nil
	case typeU256:
		return Type{Kind: KindU256}, nil
	case typeAddress:
		return Type{Kind: KindAddress}, nil
	case typeSigner:
		return Type{Kind: KindSigner}, nil
	case typeVector, typeReference, typeMutableReference:
		inner, err := parseType(r, depth+1)
		if err != nil {
			return Type{}, err
		}
		kind := KindVector
		switch tag {
		case typeReference:
			kind = KindReference
		case typeMutableReference:
			kind = KindMutableReference
		}
		return Type{Kind: kind, Elem: &inner}, nil
	case typeTypeParameter:
		idx, err := r.uleb()
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: KindTypeParameter, Index: int(idx)}, nil
	case typeDatatype:
		idx, err := r.uleb()
		if err != nil {
			return Type{}, err
		}
		// Index resolved against datatype handles later.
		return Type{Kind: KindDatatype, Index: int(idx)}, nil
	case typeDatatypeInst:
		idx, err := r.uleb()
		if err != nil {
			return Type{}, err
		}
		n, err := r.uleb()
		if err != nil {
			return Type{}, err
		}
		args := make([]Type, 0, allocHint(n, r))
		for i := uint64(0); i < n; i++ {
			arg, err := parseType(r, depth+1)
			if err != nil {
				return Type{}, err
			}
			args = append(args, arg)
		}
		return Type{Kind: KindDatatype, Index: int(idx), TypeArgs: args}, nil
	default:
		return Type{}, fmt.Errorf("%w: unknown type tag %#x", ErrDeserialize, tag)
	}
}

func (f *file) loadStructDefs(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		handle, err := r.uleb()
		if err != nil {
			return err
		}
		tag, err := r.u8()
		if err != nil {
			return err
		}
		def := structDef{handle: int(handle)}
		switch tag {
		case fieldInfoNative:
			def.native = true
		case fieldInfoDeclared:
			n, err := r.uleb()
			if err != nil {
				return err
			}
			for i := uint64(0); i < n; i++ {
				name, err := r.uleb()
				if err != nil {
					return err
				}
				t, err := parseType(r, 0)
				if err != nil {
					return err
				}
				def.fields = append(def.fields, rawField{name: int(name), typ: t})
			}
		default:
			return fmt.Errorf("%w: unknown field info tag %#x", ErrDeserialize, tag)
		}
		f.structDefs = append(f.structDefs, def)
	}
	return nil
}

func (f *file) loadFunctionDefs(r *reader) error {
	if r == nil {
		return nil
	}
	for r.remaining() > 0 {
		handle, err := r.uleb()
		if err != nil {
			return err
		}
		visByte, err := r.u8()
		if err != nil {
			return err
		}
		flags, err := r.u8()
		if err != nil {
			return err
		}

		def := functionDef{
			handle:   int(handle),
			isEntry:  flags&fnFlagEntry != 0,
			isNative: flags&fnFlagNative != 0,
		}
		switch visByte {
		case visPrivateByte:
			def.visibility = VisPrivate
		case visPublicByte:
			def.visibility = VisPublic
		case visDeprecatedScriptByte:
			// Pre-entry-flag bytecode marks entry points with script
			// visibility.
			def.visibility = VisPrivate
			def.isEntry = true
		case visFriendByte:
			def.visibility = VisFriend
		default:
			return fmt.Errorf("%w: unknown visibility %#x", ErrDeserialize, visByte)
		}

		// Acquires list.
		n, err := r.uleb()
		if err != nil {
			return err
		}
		for i := uint64(0); i < n; i++ {
			if _, err := r.uleb(); err != nil {
				return err
			}
		}

		if !def.isNative {
			ops, err := skipCodeUnit(r, f.version)
			if err != nil {
				return err
			}
			def.opcodes = ops
		}
		f.funcDefs = append(f.funcDefs, def)
	}
	return nil
}

// skipCodeUnit advances past a function body, returning the opcode
// byte per instruction (operands dropped) for statistics consumers.
func skipCodeUnit(r *reader, version uint32) ([]byte, error) {
	// Locals signature index.
	if _, err := r.uleb(); err != nil {
		return nil, err
	}
	n, err := r.uleb()
	if err != nil {
		return nil, err
	}
	ops := make([]byte, 0, allocHint(n, r))
	for i := uint64(0); i < n; i++ {
		op, err := r.u8()
		if err != nil {
			return nil, err
		}
		kind, ok := operands[op]
		if !ok {
			return nil, fmt.Errorf("%w: unknown opcode %#x", ErrDeserialize, op)
		}
		switch kind {
		case opNone:
		case opIndex:
			if _, err := r.uleb(); err != nil {
				return nil, err
			}
		case opImm8:
			if err := r.skip(1); err != nil {
				return nil, err
			}
		case opImm16:
			if err := r.skip(2); err != nil {
				return nil, err
			}
		case opImm32:
			if err := r.skip(4); err != nil {
				return nil, err
			}
		case opImm64:
			if err := r.skip(8); err != nil {
				return nil, err
			}
		case opImm128:
			if err := r.skip(16); err != nil {
				return nil, err
			}
		case opImm256:
			if err := r.skip(32); err != nil {
				return nil, err
			}
		case opIndexImm64:
			if _, err := r.uleb(); err != nil {
				return nil, err
			}
			if err := r.skip(8); err != nil {
				return nil, err
			}
		}
		ops = append(ops, op)
	}

	// Version 7 code units append variant jump tables.
	if version >= 7 {
		if err := skipJumpTables(r); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

func skipJumpTables(r *reader) error {
	n, err := r.uleb()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		// Head enum definition index.
		if _, err := r.uleb(); err != nil {
			return err
		}
		branches, err := r.uleb()
		if err != nil {
			return err
		}
		// Jump table kind tag; only the full representation exists.
		if _, err := r.u8(); err != nil {
			return err
		}
		for j := uint64(0); j < branches; j++ {
			if _, err := r.uleb(); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolve turns raw table data into a Module, checking every index.
func (f *file) resolve() (*Module, error) {
	self, err := f.moduleAt(f.selfHandle)
	if err != nil {
		return nil, err
	}
	addr, err := f.addressAt(self.address)
	if err != nil {
		return nil, err
	}
	name, err := f.identifierAt(self.name)
	if err != nil {
		return nil, err
	}
	m := &Module{Address: addr, Name: name}

	for _, def := range f.funcDefs {
		if def.handle < 0 || def.handle >= len(f.functions) {
			return nil, fmt.Errorf("%w: function handle index %d out of range", ErrDeserialize, def.handle)
		}
		h := f.functions[def.handle]
		fname, err := f.identifierAt(h.name)
		if err != nil {
			return nil, err
		}
		params, err := f.signatureAt(h.params)
		if err != nil {
			return nil, err
		}
		returns, err := f.signatureAt(h.returns)
		if err != nil {
			return nil, err
		}
		fn := Function{
			Name:       fname,
			Visibility: def.visibility,
			IsEntry:    def.isEntry,
			IsNative:   def.isNative,
			TypeParams: h.typeParams,
			Opcodes:    def.opcodes,
		}
		if fn.Params, err = f.resolveTypes(params); err != nil {
			return nil, err
		}
		if fn.Returns, err = f.resolveTypes(returns); err != nil {
			return nil, err
		}
		m.Functions = append(m.Functions, fn)
	}

	for _, def := range f.structDefs {
		if def.handle < 0 || def.handle >= len(f.datatypes) {
			return nil, fmt.Errorf("%w: datatype handle index %d out of range", ErrDeserialize, def.handle)
		}
		h := f.datatypes[def.handle]
		sname, err := f.identifierAt(h.name)
		if err != nil {
			return nil, err
		}
		s := Struct{
			Name:       sname,
			Abilities:  h.abilities,
			TypeParams: h.typeParams,
		}
		for _, rf := range def.fields {
			fname, err := f.identifierAt(rf.name)
			if err != nil {
				return nil, err
			}
			t, err := f.resolveType(rf.typ)
			if err != nil {
				return nil, err
			}
			s.Fields = append(s.Fields, Field{Name: fname, Type: t})
		}
		m.Structs = append(m.Structs, s)
	}

	return m, nil
}

// resolveType rewrites datatype handle indices into fully qualified
// address/module/name references.
func (f *file) resolveType(t Type) (Type, error) {
	switch t.Kind {
	case KindVector, KindReference, KindMutableReference:
		inner, err := f.resolveType(*t.Elem)
		if err != nil {
			return Type{}, err
		}
		t.Elem = &inner
		return t, nil
	case KindDatatype:
		if t.Index < 0 || t.Index >= len(f.datatypes) {
			return Type{}, fmt.Errorf("%w: datatype handle index %d out of range", ErrDeserialize, t.Index)
		}
		h := f.datatypes[t.Index]
		mh, err := f.moduleAt(h.module)
		if err != nil {
			return Type{}, err
		}
		addr, err := f.addressAt(mh.address)
		if err != nil {
			return Type{}, err
		}
		modName, err := f.identifierAt(mh.name)
		if err != nil {
			return Type{}, err
		}
		name, err := f.identifierAt(h.name)
		if err != nil {
			return Type{}, err
		}
		args, err := f.resolveTypes(t.TypeArgs)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: KindDatatype, Address: addr, Module: modName, Name: name, TypeArgs: args}, nil
	default:
		return t, nil
	}
}

func (f *file) resolveTypes(ts []Type) ([]Type, error) {
	if ts == nil {
		return nil, nil
	}
	out := make([]Type, 0, len(ts))
	for _, t := range ts {
		rt, err := f.resolveType(t)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

func (f *file) moduleAt(i int) (moduleHandle, error) {
	if i < 0 || i >= len(f.modules) {
		return moduleHandle{}, fmt.Errorf("%w: module handle index %d out of range", ErrDeserialize, i)
	}
	return f.modules[i], nil
}

func (f *file) identifierAt(i int) (string, error) {
	if i < 0 || i >= len(f.identifiers) {
		return "", fmt.Errorf("%w: identifier index %d out of range", ErrDeserialize, i)
	}
	return f.identifiers[i], nil
}

func (f *file) addressAt(i int) (string, error) {
	if i < 0 || i >= len(f.addresses) {
		return "", fmt.Errorf("%w: address index %d out of range", ErrDeserialize, i)
	}
	return f.addresses[i], nil
}

func (f *file) signatureAt(i int) ([]Type, error) {
	if i < 0 || i >= len(f.signatures) {
		return nil, fmt.Errorf("%w: signature index %d out of range", ErrDeserialize, i)
	}
	return f.signatures[i], nil
}

func abilityNames(bits uint64) []string {
	var out []string
	if bits&abilityCopy != 0 {
		out = append(out, "copy")
	}
	if bits&abilityDrop != 0 {
		out = append(out, "drop")
	}
	if bits&abilityKey != 0 {
		out = append(out, "key")
	}
	if bits&abilityStore != 0 {
		out = append(out, "store")
	}
	sort.Strings(out)
	return out
}

// Package bytecodetest builds small serialized Move modules for tests.
package bytecodetest

import "encoding/binary"

// Table kinds and tags used by the fixture builder.
const (
	kindModuleHandles      = 0x1
	kindDatatypeHandles    = 0x2
	kindFunctionHandles    = 0x3
	kindSignatures         = 0x5
	kindIdentifiers        = 0x7
	kindAddressIdentifiers = 0x8
	kindStructDefs         = 0xA
	kindFunctionDefs       = 0xC
)

// Table is one serialized table for Assemble.
type Table struct {
	Kind byte
	Data []byte
}

// Assemble serializes a module file with the given format version and
// tables, laying the contents out back to back and appending the
// trailing self-module-handle index 0.
func Assemble(version uint32, tables []Table) []byte {
	out := []byte{0xA1, 0x1C, 0xEB, 0x0B}
	out = binary.LittleEndian.AppendUint32(out, version)
	out = appendULEB(out, uint64(len(tables)))

	var offset uint64
	for _, t := range tables {
		out = append(out, t.Kind)
		out = appendULEB(out, offset)
		out = appendULEB(out, uint64(len(t.Data)))
		offset += uint64(len(t.Data))
	}
	for _, t := range tables {
		out = append(out, t.Data...)
	}
	return appendULEB(out, 0)
}

// ULEB appends the ULEB128 encoding of v to b.
func ULEB(b []byte, v uint64) []byte {
	return appendULEB(b, v)
}

// MinimalModule serializes a format-version-6 module named name,
// published at the 32-byte address whose last byte is addrTail. The
// module declares one public function "noop" with no parameters or
// returns, and one struct "Obj" with the key ability and a single u64
// field "id".
func MinimalModule(name string, addrTail byte) []byte {
	identifiers := identifierTable(name, "noop", "Obj", "id")

	address := make([]byte, 32)
	address[31] = addrTail

	moduleHandles := []byte{0x0, 0x0} // address 0, name 0

	datatypeHandles := []byte{
		0x0, // module handle 0
		0x2, // name "Obj"
		0x8, // key ability
		0x0, // no type parameters
	}

	functionHandles := []byte{
		0x0, // module handle 0
		0x1, // name "noop"
		0x0, // params: signature 0
		0x0, // returns: signature 0
		0x0, // no type parameters
	}

	signatures := []byte{0x0} // one empty signature

	structDefs := []byte{
		0x0, // datatype handle 0
		0x2, // declared fields
		0x1, // one field
		0x3, // name "id"
		0x3, // u64
	}

	functionDefs := []byte{
		0x0, // function handle 0
		0x1, // public
		0x0, // no flags
		0x0, // empty acquires list
		0x0, // locals: signature 0
		0x1, // one instruction
		0x2, // Ret
	}

	return Assemble(6, []Table{
		{kindIdentifiers, identifiers},
		{kindAddressIdentifiers, address},
		{kindModuleHandles, moduleHandles},
		{kindDatatypeHandles, datatypeHandles},
		{kindFunctionHandles, functionHandles},
		{kindSignatures, signatures},
		{kindStructDefs, structDefs},
		{kindFunctionDefs, functionDefs},
	})
}

func identifierTable(names ...string) []byte {
	var out []byte
	for _, n := range names {
		out = appendULEB(out, uint64(len(n)))
		out = append(out, n...)
	}
	return out
}

func appendULEB(b []byte, v uint64) []byte {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v == 0 {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

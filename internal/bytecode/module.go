// Package bytecode decodes serialized Move modules into an abstract
// representation suitable for inventory comparison.
package bytecode

// Visibility of a function definition.
type Visibility string

// Function visibilities as they appear in normalized module output.
const (
	VisPrivate Visibility = "Private"
	VisPublic  Visibility = "Public"
	VisFriend  Visibility = "Friend"
)

// Module is a decoded Move module. It is immutable once produced by
// the decoder.
type Module struct {
	// Address is the self-declared owning package address, normalized
	// to 64 lowercase hex digits without the 0x prefix.
	Address string
	// Name is the module's self-declared name.
	Name string

	Functions []Function
	Structs   []Struct
}

// Function is a decoded function definition together with its handle
// information.
type Function struct {
	Name       string
	Visibility Visibility
	IsEntry    bool
	IsNative   bool
	TypeParams int
	Params     []Type
	Returns    []Type

	// Opcodes holds one byte per body instruction with operands
	// dropped. Empty for native functions. Consumed by translation
	// statistics, never by inventory comparison.
	Opcodes []byte
}

// Struct is a decoded struct definition.
type Struct struct {
	Name string
	// Abilities is the sorted list of ability names (copy, drop, key,
	// store) declared on the struct.
	Abilities  []string
	TypeParams int
	// Fields preserves declared order; callers sort as needed.
	Fields []Field
}

// Field is a single struct field.
type Field struct {
	Name string
	Type Type
}

// TypeKind discriminates the Type variant.
type TypeKind int

// Type variants.
const (
	KindBool TypeKind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindU256
	KindAddress
	KindSigner
	KindVector
	KindReference
	KindMutableReference
	KindTypeParameter
	KindDatatype
)

// Type is a decoded type signature token. Exactly the fields relevant
// to the active Kind are populated.
type Type struct {
	Kind TypeKind

	// Elem is set for vector, reference, and mutable reference types.
	Elem *Type

	// Index is set for type parameters.
	Index int

	// Datatype fields. Address is 64 lowercase hex digits.
	Address  string
	Module   string
	Name     string
	TypeArgs []Type
}

package bytecode

// Binary layout constants for the serialized Move module format: a
// fixed magic, a little-endian u32 version (high byte carries the
// flavor from version 7 on), a table count, per-table headers of
// (kind, byte offset, byte length), the table contents, and a trailing
// self-module-handle index.

var magic = []byte{0xA1, 0x1C, 0xEB, 0x0B}

const (
	versionMask    = 0x00FFFFFF
	minVersion     = 1
	maxVersion     = 7
	phantomVersion = 3 // first version with a phantom flag on type parameters
	addressLen     = 32
	maxULEBShift   = 63
	identifierMax  = 65536
	tableCountMax  = 255
)

// Table kinds.
const (
	tableModuleHandles      = 0x1
	tableDatatypeHandles    = 0x2
	tableFunctionHandles    = 0x3
	tableFunctionInst       = 0x4
	tableSignatures         = 0x5
	tableConstantPool       = 0x6
	tableIdentifiers        = 0x7
	tableAddressIdentifiers = 0x8
	tableStructDefs         = 0xA
	tableStructDefInst      = 0xB
	tableFunctionDefs       = 0xC
	tableFieldHandles       = 0xD
	tableFieldInst          = 0xE
	tableFriendDecls        = 0xF
	tableMetadata           = 0x10
	tableEnumDefs           = 0x11
	tableEnumDefInst        = 0x12
	tableVariantHandles     = 0x13
	tableVariantInstHandles = 0x14
)

// Serialized type tags.
const (
	typeBool             = 0x1
	typeU8               = 0x2
	typeU64              = 0x3
	typeU128             = 0x4
	typeAddress          = 0x5
	typeReference        = 0x6
	typeMutableReference = 0x7
	typeDatatype         = 0x8
	typeTypeParameter    = 0x9
	typeVector           = 0xA
	typeDatatypeInst     = 0xB
	typeSigner           = 0xC
	typeU16              = 0xD
	typeU32              = 0xE
	typeU256             = 0xF
)

// Ability bits.
const (
	abilityCopy  = 0x1
	abilityDrop  = 0x2
	abilityStore = 0x4
	abilityKey   = 0x8
)

// Visibility bytes. 0x2 is the deprecated script visibility; modules
// published before entry flags existed use it to mark entry points.
const (
	visPrivateByte          = 0x0
	visPublicByte           = 0x1
	visDeprecatedScriptByte = 0x2
	visFriendByte           = 0x3
)

// Function definition flag bits.
const (
	fnFlagNative = 0x2
	fnFlagEntry  = 0x4
)

// Struct field information tags.
const (
	fieldInfoNative   = 0x1
	fieldInfoDeclared = 0x2
)

// Operand encodings for instruction skipping. The decoder does not
// interpret instructions; it only needs to advance past a code unit
// to reach the next function definition.
type operandKind int

const (
	opNone operandKind = iota
	opIndex            // one ULEB128 index or code offset
	opImm8
	opImm16
	opImm32
	opImm64
	opImm128
	opImm256
	opIndexImm64 // ULEB128 index followed by a u64 (VecPack/VecUnpack)
)

// operands maps opcode byte to its operand encoding. Opcodes absent
// from the map are invalid.
var operands = map[byte]operandKind{
	0x01: opNone,       // Pop
	0x02: opNone,       // Ret
	0x03: opIndex,      // BrTrue
	0x04: opIndex,      // BrFalse
	0x05: opIndex,      // Branch
	0x06: opImm64,      // LdU64
	0x07: opIndex,      // LdConst
	0x08: opNone,       // LdTrue
	0x09: opNone,       // LdFalse
	0x0A: opIndex,      // CopyLoc
	0x0B: opIndex,      // MoveLoc
	0x0C: opIndex,      // StLoc
	0x0D: opIndex,      // MutBorrowLoc
	0x0E: opIndex,      // ImmBorrowLoc
	0x0F: opIndex,      // MutBorrowField
	0x10: opIndex,      // ImmBorrowField
	0x11: opIndex,      // Call
	0x12: opIndex,      // Pack
	0x13: opIndex,      // Unpack
	0x14: opNone,       // ReadRef
	0x15: opNone,       // WriteRef
	0x16: opNone,       // Add
	0x17: opNone,       // Sub
	0x18: opNone,       // Mul
	0x19: opNone,       // Mod
	0x1A: opNone,       // Div
	0x1B: opNone,       // BitOr
	0x1C: opNone,       // BitAnd
	0x1D: opNone,       // Xor
	0x1E: opNone,       // Or
	0x1F: opNone,       // And
	0x20: opNone,       // Not
	0x21: opNone,       // Eq
	0x22: opNone,       // Neq
	0x23: opNone,       // Lt
	0x24: opNone,       // Gt
	0x25: opNone,       // Le
	0x26: opNone,       // Ge
	0x27: opNone,       // Abort
	0x28: opNone,       // Nop
	0x29: opIndex,      // Exists (deprecated)
	0x2A: opIndex,      // MutBorrowGlobal (deprecated)
	0x2B: opIndex,      // ImmBorrowGlobal (deprecated)
	0x2C: opIndex,      // MoveFrom (deprecated)
	0x2D: opIndex,      // MoveTo (deprecated)
	0x2E: opNone,       // FreezeRef
	0x2F: opNone,       // Shl
	0x30: opNone,       // Shr
	0x31: opImm8,       // LdU8
	0x32: opImm128,     // LdU128
	0x33: opNone,       // CastU8
	0x34: opNone,       // CastU64
	0x35: opNone,       // CastU128
	0x36: opIndex,      // MutBorrowFieldGeneric
	0x37: opIndex,      // ImmBorrowFieldGeneric
	0x38: opIndex,      // CallGeneric
	0x39: opIndex,      // PackGeneric
	0x3A: opIndex,      // UnpackGeneric
	0x3B: opIndex,      // ExistsGeneric (deprecated)
	0x3C: opIndex,      // MutBorrowGlobalGeneric (deprecated)
	0x3D: opIndex,      // ImmBorrowGlobalGeneric (deprecated)
	0x3E: opIndex,      // MoveFromGeneric (deprecated)
	0x3F: opIndex,      // MoveToGeneric (deprecated)
	0x40: opIndexImm64, // VecPack
	0x41: opIndex,      // VecLen
	0x42: opIndex,      // VecImmBorrow
	0x43: opIndex,      // VecMutBorrow
	0x44: opIndex,      // VecPushBack
	0x45: opIndex,      // VecPopBack
	0x46: opIndexImm64, // VecUnpack
	0x47: opIndex,      // VecSwap
	0x48: opImm16,      // LdU16
	0x49: opImm32,      // LdU32
	0x4A: opImm256,     // LdU256
	0x4B: opNone,       // CastU16
	0x4C: opNone,       // CastU32
	0x4D: opNone,       // CastU256
	0x4E: opIndex,      // PackVariant
	0x4F: opIndex,      // PackVariantGeneric
	0x50: opIndex,      // UnpackVariant
	0x51: opIndex,      // UnpackVariantImmRef
	0x52: opIndex,      // UnpackVariantMutRef
	0x53: opIndex,      // UnpackVariantGeneric
	0x54: opIndex,      // UnpackVariantGenericImmRef
	0x55: opIndex,      // UnpackVariantGenericMutRef
	0x56: opIndex,      // VariantSwitch
}

// Package stackless lifts decoded modules into per-run translation
// statistics: what was translated, which instructions the lifter does
// not model, and how often the abstract operand stack underflowed.
package stackless

import (
	"fmt"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
)

// Summary aggregates translation statistics over a set of modules.
type Summary struct {
	Packages           int `json:"packages"`
	Modules            int `json:"modules"`
	Functions          int `json:"functions"`
	Structs            int `json:"structs"`
	Instructions       int `json:"instructions"`
	NotImplemented     int `json:"not_implemented_instructions"`
	StackUnderflowPops int `json:"stack_underflow_pops"`
}

// TranslatorPanicError records an unexpected abort inside the
// translator. The abort is contained at the translation call and
// reported as an ordinary error; it never takes down the run.
type TranslatorPanicError struct {
	Value any
}

func (e *TranslatorPanicError) Error() string {
	return fmt.Sprintf("translator panicked: %v", e.Value)
}

// effect is the abstract stack effect of an opcode: how many operands
// it pops and how many results it pushes.
type effect struct {
	pops, pushes int
}

// effects covers the opcodes with a fixed stack effect. Opcodes whose
// effect depends on a handle (calls, pack/unpack, vector ops) reset
// the abstract stack instead; enum variant opcodes are counted as not
// implemented.
var effects = map[byte]effect{
	0x01: {1, 0}, // Pop
	0x02: {0, 0}, // Ret
	0x03: {1, 0}, // BrTrue
	0x04: {1, 0}, // BrFalse
	0x05: {0, 0}, // Branch
	0x06: {0, 1}, // LdU64
	0x07: {0, 1}, // LdConst
	0x08: {0, 1}, // LdTrue
	0x09: {0, 1}, // LdFalse
	0x0A: {0, 1}, // CopyLoc
	0x0B: {0, 1}, // MoveLoc
	0x0C: {1, 0}, // StLoc
	0x0D: {0, 1}, // MutBorrowLoc
	0x0E: {0, 1}, // ImmBorrowLoc
	0x0F: {1, 1}, // MutBorrowField
	0x10: {1, 1}, // ImmBorrowField
	0x14: {1, 1}, // ReadRef
	0x15: {2, 0}, // WriteRef
	0x16: {2, 1}, // Add
	0x17: {2, 1}, // Sub
	0x18: {2, 1}, // Mul
	0x19: {2, 1}, // Mod
	0x1A: {2, 1}, // Div
	0x1B: {2, 1}, // BitOr
	0x1C: {2, 1}, // BitAnd
	0x1D: {2, 1}, // Xor
	0x1E: {2, 1}, // Or
	0x1F: {2, 1}, // And
	0x20: {1, 1}, // Not
	0x21: {2, 1}, // Eq
	0x22: {2, 1}, // Neq
	0x23: {2, 1}, // Lt
	0x24: {2, 1}, // Gt
	0x25: {2, 1}, // Le
	0x26: {2, 1}, // Ge
	0x27: {1, 0}, // Abort
	0x28: {0, 0}, // Nop
	0x2E: {1, 1}, // FreezeRef
	0x2F: {2, 1}, // Shl
	0x30: {2, 1}, // Shr
	0x31: {0, 1}, // LdU8
	0x32: {0, 1}, // LdU128
	0x33: {1, 1}, // CastU8
	0x34: {1, 1}, // CastU64
	0x35: {1, 1}, // CastU128
	0x36: {1, 1}, // MutBorrowFieldGeneric
	0x37: {1, 1}, // ImmBorrowFieldGeneric
	0x48: {0, 1}, // LdU16
	0x49: {0, 1}, // LdU32
	0x4A: {0, 1}, // LdU256
	0x4B: {1, 1}, // CastU16
	0x4C: {1, 1}, // CastU32
	0x4D: {1, 1}, // CastU256
}

// notImplemented holds opcodes the lifter has no model for: the enum
// variant instructions introduced with format version 7.
var notImplemented = map[byte]bool{
	0x4E: true, // PackVariant
	0x4F: true, // PackVariantGeneric
	0x50: true, // UnpackVariant
	0x51: true, // UnpackVariantImmRef
	0x52: true, // UnpackVariantMutRef
	0x53: true, // UnpackVariantGeneric
	0x54: true, // UnpackVariantGenericImmRef
	0x55: true, // UnpackVariantGenericMutRef
	0x56: true, // VariantSwitch
}

// Translate runs the lifter over the modules and returns its summary.
// Panics inside the translation are recovered here and surfaced as a
// *TranslatorPanicError; no other call site recovers them.
func Translate(modules []*bytecode.Module) (s Summary, err error) {
	defer func() {
		if v := recover(); v != nil {
			s = Summary{}
			err = &TranslatorPanicError{Value: v}
		}
	}()
	return translate(modules), nil
}

func translate(modules []*bytecode.Module) Summary {
	var s Summary
	addresses := map[string]bool{}
	for _, m := range modules {
		addresses[m.Address] = true
		s.Modules++
		s.Structs += len(m.Structs)
		for _, fn := range m.Functions {
			s.Functions++
			s.liftFunction(fn.Opcodes)
		}
	}
	s.Packages = len(addresses)
	return s
}

// liftFunction walks one code unit with an abstract operand stack
// depth. Handle-dependent opcodes reset the depth because their effect
// is unknown to the lifter; a pop below zero is recorded as an
// underflow and clamped.
func (s *Summary) liftFunction(opcodes []byte) {
	depth := 0
	for _, op := range opcodes {
		s.Instructions++
		if notImplemented[op] {
			s.NotImplemented++
			depth = 0
			continue
		}
		e, ok := effects[op]
		if !ok {
			depth = 0
			continue
		}
		depth -= e.pops
		if depth < 0 {
			s.StackUnderflowPops += -depth
			depth = 0
		}
		depth += e.pushes
	}
}

package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/bytecode"
	"github.com/Evan-Kim2028/sui-move-interface-extractor2/internal/validation"
)

// ErrParse is returned for a malformed normalized module projection.
var ErrParse = errors.New("malformed normalized module")

// Both sources converge on bytecode.Type as the shared tagged-variant
// representation. SigFromType and parseJSONType are the two adapters;
// renderType is the single canonical renderer. The rendered form is
// compact JSON with every object's keys in sorted order, so signatures
// from the two sources are byte-for-byte comparable. Array order is
// preserved: it is semantically significant (parameter lists, type
// arguments).

// SigFromType renders a decoded bytecode type.
func SigFromType(t bytecode.Type) TypeSig {
	var b strings.Builder
	renderType(&b, t)
	return TypeSig(b.String())
}

// SigFromJSON parses a normalized-projection type description and
// renders it canonically.
func SigFromJSON(raw json.RawMessage) (TypeSig, error) {
	t, err := parseJSONType(raw)
	if err != nil {
		return "", err
	}
	return SigFromType(t), nil
}

var primitiveNames = map[bytecode.TypeKind]string{
	bytecode.KindBool:    "Bool",
	bytecode.KindU8:      "U8",
	bytecode.KindU16:     "U16",
	bytecode.KindU32:     "U32",
	bytecode.KindU64:     "U64",
	bytecode.KindU128:    "U128",
	bytecode.KindU256:    "U256",
	bytecode.KindAddress: "Address",
	bytecode.KindSigner:  "Signer",
}

var primitiveKinds = func() map[string]bytecode.TypeKind {
	m := make(map[string]bytecode.TypeKind, len(primitiveNames))
	for k, name := range primitiveNames {
		m[name] = k
	}
	return m
}()

func renderType(b *strings.Builder, t bytecode.Type) {
	switch t.Kind {
	case bytecode.KindVector:
		b.WriteString(`{"Vector":`)
		renderType(b, *t.Elem)
		b.WriteByte('}')
	case bytecode.KindReference:
		b.WriteString(`{"Reference":`)
		renderType(b, *t.Elem)
		b.WriteByte('}')
	case bytecode.KindMutableReference:
		b.WriteString(`{"MutableReference":`)
		renderType(b, *t.Elem)
		b.WriteByte('}')
	case bytecode.KindTypeParameter:
		b.WriteString(`{"TypeParameter":`)
		b.WriteString(strconv.Itoa(t.Index))
		b.WriteByte('}')
	case bytecode.KindDatatype:
		// Keys written in sorted order: address, module, name,
		// typeArguments. Addresses use short 0x literal form.
		b.WriteString(`{"Struct":{"address":`)
		writeJSONString(b, validation.HexLiteral(t.Address))
		b.WriteString(`,"module":`)
		writeJSONString(b, t.Module)
		b.WriteString(`,"name":`)
		writeJSONString(b, t.Name)
		b.WriteString(`,"typeArguments":[`)
		for i, arg := range t.TypeArgs {
			if i > 0 {
				b.WriteByte(',')
			}
			renderType(b, arg)
		}
		b.WriteString(`]}}`)
	default:
		writeJSONString(b, primitiveNames[t.Kind])
	}
}

func writeJSONString(b *strings.Builder, s string) {
	enc, _ := json.Marshal(s)
	b.Write(enc)
}

// parseJSONType maps the projection's type encoding onto the shared
// variant: a bare string for primitives, or a single-key object for
// Vector, Reference, MutableReference, TypeParameter, and Struct.
func parseJSONType(raw json.RawMessage) (bytecode.Type, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		kind, ok := primitiveKinds[s]
		if !ok {
			return bytecode.Type{}, fmt.Errorf("%w: unknown primitive type %q", ErrParse, s)
		}
		return bytecode.Type{Kind: kind}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return bytecode.Type{}, fmt.Errorf("%w: unrecognized type encoding: %v", ErrParse, err)
	}
	if len(obj) != 1 {
		return bytecode.Type{}, fmt.Errorf("%w: type object must have exactly one key", ErrParse)
	}

	for key, val := range obj {
		switch key {
		case "Vector", "Reference", "MutableReference":
			inner, err := parseJSONType(val)
			if err != nil {
				return bytecode.Type{}, err
			}
			kind := bytecode.KindVector
			switch key {
			case "Reference":
				kind = bytecode.KindReference
			case "MutableReference":
				kind = bytecode.KindMutableReference
			}
			return bytecode.Type{Kind: kind, Elem: &inner}, nil
		case "TypeParameter":
			var idx int
			if err := json.Unmarshal(val, &idx); err != nil {
				return bytecode.Type{}, fmt.Errorf("%w: bad type parameter index: %v", ErrParse, err)
			}
			return bytecode.Type{Kind: bytecode.KindTypeParameter, Index: idx}, nil
		case "Struct":
			var st struct {
				Address       string            `json:"address"`
				Module        string            `json:"module"`
				Name          string            `json:"name"`
				TypeArguments []json.RawMessage `json:"typeArguments"`
			}
			if err := json.Unmarshal(val, &st); err != nil {
				return bytecode.Type{}, fmt.Errorf("%w: bad struct type: %v", ErrParse, err)
			}
			addr, err := validation.NormalizePackageID(st.Address)
			if err != nil {
				return bytecode.Type{}, fmt.Errorf("%w: bad struct address %q", ErrParse, st.Address)
			}
			t := bytecode.Type{
				Kind:    bytecode.KindDatatype,
				Address: addr,
				Module:  st.Module,
				Name:    st.Name,
			}
			for _, argRaw := range st.TypeArguments {
				arg, err := parseJSONType(argRaw)
				if err != nil {
					return bytecode.Type{}, err
				}
				t.TypeArgs = append(t.TypeArgs, arg)
			}
			return t, nil
		default:
			return bytecode.Type{}, fmt.Errorf("%w: unknown type tag %q", ErrParse, key)
		}
	}
	return bytecode.Type{}, fmt.Errorf("%w: empty type object", ErrParse)
}

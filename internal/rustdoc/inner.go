package rustdoc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Inner is the kind-specific payload of an item. The set of implementations is
// closed: every variant is declared in this file and reports its own Kind.
type Inner interface {
	Kind() Kind
	isInner()
}

type Module struct {
	IsCrate    bool `json:"is_crate"`
	Items      []ID `json:"items"`
	IsStripped bool `json:"is_stripped"`
}

type ExternCrate struct {
	Name   string  `json:"name"`
	Rename *string `json:"rename"`
}

// Use is an import or re-export. ID is nil when the target was not documented
// (for example a glob of a private module).
type Use struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	ID     *ID    `json:"id"`
	IsGlob bool   `json:"is_glob"`
}

// UnmarshalJSON also accepts the older "glob" spelling of the glob flag.
func (u *Use) UnmarshalJSON(data []byte) error {
	type plain Use
	var raw struct {
		plain
		Glob bool `json:"glob"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = Use(raw.plain)
	u.IsGlob = u.IsGlob || raw.Glob
	return nil
}

type Union struct {
	Generics          json.RawMessage `json:"generics"`
	HasStrippedFields bool            `json:"has_stripped_fields"`
	Fields            []ID            `json:"fields"`
	Impls             []ID            `json:"impls"`
}

type Struct struct {
	Shape    StructKind      `json:"kind"`
	Generics json.RawMessage `json:"generics"`
	Impls    []ID            `json:"impls"`
}

// StructKind is one of unit, tuple or plain.
type StructKind struct {
	Unit   bool
	Tuple  bool
	Fields []ID
}

func (sk *StructKind) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte(`"unit"`)) {
		*sk = StructKind{Unit: true}
		return nil
	}
	var k struct {
		Tuple []*ID `json:"tuple"`
		Plain *struct {
			Fields []ID `json:"fields"`
		} `json:"plain"`
	}
	if err := json.Unmarshal(data, &k); err != nil {
		return fmt.Errorf("decoding struct kind: %w", err)
	}
	switch {
	case k.Plain != nil:
		*sk = StructKind{Fields: k.Plain.Fields}
	case k.Tuple != nil:
		*sk = StructKind{Tuple: true}
		for _, f := range k.Tuple {
			if f != nil {
				sk.Fields = append(sk.Fields, *f)
			}
		}
	default:
		*sk = StructKind{Unit: true}
	}
	return nil
}

type StructField struct {
	Type json.RawMessage
}

type Enum struct {
	Generics            json.RawMessage `json:"generics"`
	HasStrippedVariants bool            `json:"has_stripped_variants"`
	Variants            []ID            `json:"variants"`
	Impls               []ID            `json:"impls"`
}

type Variant struct {
	VariantKind  json.RawMessage `json:"kind"`
	Discriminant json.RawMessage `json:"discriminant"`
}

type Function struct {
	Sig      json.RawMessage `json:"sig"`
	Generics json.RawMessage `json:"generics"`
	Header   json.RawMessage `json:"header"`
	HasBody  bool            `json:"has_body"`
}

type Trait struct {
	IsAuto          bool            `json:"is_auto"`
	IsUnsafe        bool            `json:"is_unsafe"`
	Generics        json.RawMessage `json:"generics"`
	Items           []ID            `json:"items"`
	Implementations []ID            `json:"implementations"`
}

type TraitAlias struct {
	Generics json.RawMessage `json:"generics"`
	Params   json.RawMessage `json:"params"`
}

// Impl is an implementation block. Trait is nil for inherent impls.
type Impl struct {
	IsUnsafe    bool            `json:"is_unsafe"`
	Trait       *Path           `json:"trait"`
	For         Type            `json:"for"`
	Items       []ID            `json:"items"`
	IsNegative  bool            `json:"is_negative"`
	IsSynthetic bool            `json:"is_synthetic"`
	BlanketImpl json.RawMessage `json:"blanket_impl"`
}

type TypeAlias struct {
	Type     json.RawMessage `json:"type"`
	Generics json.RawMessage `json:"generics"`
}

type Constant struct {
	Type  json.RawMessage `json:"type"`
	Const json.RawMessage `json:"const"`
}

type Static struct {
	Type      json.RawMessage `json:"type"`
	IsMutable bool            `json:"is_mutable"`
	Expr      string          `json:"expr"`
}

type ExternType struct{}

type Macro struct {
	Source string
}

type ProcMacro struct {
	MacroKind string   `json:"kind"`
	Helpers   []string `json:"helpers"`
}

type Primitive struct {
	Name  string `json:"name"`
	Impls []ID   `json:"impls"`
}

type AssocConst struct {
	Type  json.RawMessage `json:"type"`
	Value *string         `json:"value"`
}

type AssocType struct {
	Generics json.RawMessage `json:"generics"`
	Bounds   json.RawMessage `json:"bounds"`
	Type     json.RawMessage `json:"type"`
}

// Unsupported carries a payload whose tag this package does not model.
type Unsupported struct {
	Tag string
	Raw json.RawMessage
}

func (*Module) Kind() Kind      { return KindModule }
func (*ExternCrate) Kind() Kind { return KindExternCrate }
func (*Use) Kind() Kind         { return KindUse }
func (*Union) Kind() Kind       { return KindUnion }
func (*Struct) Kind() Kind      { return KindStruct }
func (*StructField) Kind() Kind { return KindStructField }
func (*Enum) Kind() Kind        { return KindEnum }
func (*Variant) Kind() Kind     { return KindVariant }
func (*Function) Kind() Kind    { return KindFunction }
func (*Trait) Kind() Kind       { return KindTrait }
func (*TraitAlias) Kind() Kind  { return KindTraitAlias }
func (*Impl) Kind() Kind        { return KindImpl }
func (*TypeAlias) Kind() Kind   { return KindTypeAlias }
func (*Constant) Kind() Kind    { return KindConstant }
func (*Static) Kind() Kind      { return KindStatic }
func (*ExternType) Kind() Kind  { return KindExternType }
func (*Macro) Kind() Kind       { return KindMacro }
func (*Primitive) Kind() Kind   { return KindPrimitive }
func (*AssocConst) Kind() Kind  { return KindAssocConst }
func (*AssocType) Kind() Kind   { return KindAssocType }
func (*Unsupported) Kind() Kind { return KindUnknown }

func (p *ProcMacro) Kind() Kind {
	switch p.MacroKind {
	case "attr":
		return KindProcAttribute
	case "derive":
		return KindProcDerive
	}
	return KindMacro
}

func (*Module) isInner()      {}
func (*ExternCrate) isInner() {}
func (*Use) isInner()         {}
func (*Union) isInner()       {}
func (*Struct) isInner()      {}
func (*StructField) isInner() {}
func (*Enum) isInner()        {}
func (*Variant) isInner()     {}
func (*Function) isInner()    {}
func (*Trait) isInner()       {}
func (*TraitAlias) isInner()  {}
func (*Impl) isInner()        {}
func (*TypeAlias) isInner()   {}
func (*Constant) isInner()    {}
func (*Static) isInner()      {}
func (*ExternType) isInner()  {}
func (*Macro) isInner()       {}
func (*ProcMacro) isInner()   {}
func (*Primitive) isInner()   {}
func (*AssocConst) isInner()  {}
func (*AssocType) isInner()   {}
func (*Unsupported) isInner() {}

// DecodeInner decodes the externally tagged "inner" object of an item.
// Unit variants (e.g. "extern_type") arrive as a bare string.
func DecodeInner(raw json.RawMessage) (Inner, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var tag string
	var payload json.RawMessage
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &tag); err != nil {
			return nil, fmt.Errorf("decoding inner tag: %w", err)
		}
	} else {
		var outer map[string]json.RawMessage
		if err := json.Unmarshal(raw, &outer); err != nil {
			return nil, fmt.Errorf("decoding inner: %w", err)
		}
		if len(outer) != 1 {
			return nil, fmt.Errorf("inner has %d tags, want 1", len(outer))
		}
		for k, v := range outer {
			tag, payload = k, v
		}
	}

	var kind Kind
	kind.UnmarshalText([]byte(tag))

	var inner Inner
	switch kind {
	case KindModule:
		inner = &Module{}
	case KindExternCrate:
		inner = &ExternCrate{}
	case KindUse:
		inner = &Use{}
	case KindUnion:
		inner = &Union{}
	case KindStruct:
		inner = &Struct{}
	case KindStructField:
		return &StructField{Type: payload}, nil
	case KindEnum:
		inner = &Enum{}
	case KindVariant:
		inner = &Variant{}
	case KindFunction:
		inner = &Function{}
	case KindTrait:
		inner = &Trait{}
	case KindTraitAlias:
		inner = &TraitAlias{}
	case KindImpl:
		inner = &Impl{}
	case KindTypeAlias:
		inner = &TypeAlias{}
	case KindConstant:
		inner = &Constant{}
	case KindStatic:
		inner = &Static{}
	case KindExternType:
		return &ExternType{}, nil
	case KindMacro:
		var src string
		if err := json.Unmarshal(payload, &src); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", tag, err)
		}
		return &Macro{Source: src}, nil
	case "proc_macro":
		inner = &ProcMacro{}
	case KindPrimitive:
		inner = &Primitive{}
	case KindAssocConst:
		inner = &AssocConst{}
	case KindAssocType:
		inner = &AssocType{}
	default:
		return &Unsupported{Tag: tag, Raw: payload}, nil
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, inner); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", tag, err)
		}
	}
	return inner, nil
}

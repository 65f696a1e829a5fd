package rustdoc

import (
	"encoding/json"
	"strings"
)

// Signature renders a one-line Rust declaration for item, e.g.
// "pub fn open<P>(path: P) -> Result<File>". Items without a meaningful
// declaration (impls, modules without a name) render as "".
func Signature(c *Crate, item *Item) string {
	name := item.DeclaredName()
	vis := ""
	if item.Visibility.Kind == "public" {
		vis = "pub "
	}

	switch in := item.Inner.(type) {
	case *Function:
		return vis + fnSig(c, name, in)
	case *Struct:
		s := vis + "struct " + name + genericList(in.Generics)
		switch {
		case in.Shape.Unit:
			return s + ";"
		case in.Shape.Tuple:
			return s + "(..);"
		}
		return s + " { .. }"
	case *Union:
		return vis + "union " + name + genericList(in.Generics) + " { .. }"
	case *Enum:
		return vis + "enum " + name + genericList(in.Generics) + " { .. }"
	case *Trait:
		var b strings.Builder
		b.WriteString(vis)
		if in.IsUnsafe {
			b.WriteString("unsafe ")
		}
		if in.IsAuto {
			b.WriteString("auto ")
		}
		b.WriteString("trait " + name + genericList(in.Generics) + " { .. }")
		return b.String()
	case *TypeAlias:
		return vis + "type " + name + genericList(in.Generics) + " = " + TypeString(c, in.Type) + ";"
	case *Constant:
		s := vis + "const " + name + ": " + TypeString(c, in.Type)
		var k struct {
			Expr string `json:"expr"`
		}
		if json.Unmarshal(in.Const, &k) == nil && k.Expr != "" {
			s += " = " + k.Expr
		}
		return s + ";"
	case *Static:
		mut := ""
		if in.IsMutable {
			mut = "mut "
		}
		return vis + "static " + mut + name + ": " + TypeString(c, in.Type) + ";"
	case *AssocConst:
		return "const " + name + ": " + TypeString(c, in.Type) + ";"
	case *AssocType:
		s := "type " + name
		if len(in.Type) > 0 && string(in.Type) != "null" {
			s += " = " + TypeString(c, in.Type)
		}
		return s + ";"
	case *StructField:
		return vis + name + ": " + TypeString(c, in.Type)
	case *Variant:
		return name
	case *Use:
		s := vis + "use " + in.Source
		if in.Name != "" && in.Name != lastSegment(in.Source) {
			s += " as " + in.Name
		}
		if in.IsGlob {
			s += "::*"
		}
		return s + ";"
	case *Macro:
		return "macro_rules! " + name
	case *ProcMacro:
		switch in.Kind() {
		case KindProcDerive:
			return "#[derive(" + name + ")]"
		case KindProcAttribute:
			return "#[" + name + "]"
		}
		return name + "!()"
	case *Module:
		if name == "" {
			return ""
		}
		return vis + "mod " + name
	case *ExternCrate:
		if in.Rename != nil {
			return vis + "extern crate " + in.Name + " as " + *in.Rename + ";"
		}
		return vis + "extern crate " + in.Name + ";"
	case *ExternType:
		return vis + "type " + name + ";"
	case *Primitive:
		return in.Name
	}
	return ""
}

func fnSig(c *Crate, name string, fn *Function) string {
	var sig struct {
		Inputs []json.RawMessage `json:"inputs"`
		Output json.RawMessage   `json:"output"`
	}
	var header struct {
		IsConst  bool `json:"is_const"`
		IsUnsafe bool `json:"is_unsafe"`
		IsAsync  bool `json:"is_async"`
	}
	json.Unmarshal(fn.Sig, &sig)
	json.Unmarshal(fn.Header, &header)

	var b strings.Builder
	if header.IsConst {
		b.WriteString("const ")
	}
	if header.IsUnsafe {
		b.WriteString("unsafe ")
	}
	if header.IsAsync {
		b.WriteString("async ")
	}
	b.WriteString("fn ")
	b.WriteString(name)
	b.WriteString(genericList(fn.Generics))

	params := make([]string, 0, len(sig.Inputs))
	for _, input := range sig.Inputs {
		var pair []json.RawMessage
		if err := json.Unmarshal(input, &pair); err != nil || len(pair) < 2 {
			continue
		}
		var param string
		json.Unmarshal(pair[0], &param)
		if param == "self" {
			params = append(params, selfShorthand(pair[1]))
			continue
		}
		params = append(params, param+": "+TypeString(c, pair[1]))
	}
	b.WriteString("(" + strings.Join(params, ", ") + ")")

	if out := TypeString(c, sig.Output); len(sig.Output) > 0 && string(sig.Output) != "null" && out != "()" {
		b.WriteString(" -> " + out)
	}
	return b.String()
}

// genericList renders the declared generic parameter names, skipping the
// synthetic parameters rustdoc invents for argument-position impl Trait.
func genericList(raw json.RawMessage) string {
	var g struct {
		Params []struct {
			Name string `json:"name"`
			Kind struct {
				Type *struct {
					IsSynthetic bool `json:"is_synthetic"`
				} `json:"type"`
			} `json:"kind"`
		} `json:"params"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &g) != nil {
		return ""
	}
	var names []string
	for _, p := range g.Params {
		if p.Name == "" || (p.Kind.Type != nil && p.Kind.Type.IsSynthetic) {
			continue
		}
		names = append(names, p.Name)
	}
	if len(names) == 0 {
		return ""
	}
	return "<" + strings.Join(names, ", ") + ">"
}

// selfShorthand renders a self parameter the way it is written in source:
// self, &self, &mut self or &'a self.
func selfShorthand(raw json.RawMessage) string {
	var outer struct {
		BorrowedRef *struct {
			Lifetime  *string `json:"lifetime"`
			IsMutable bool    `json:"is_mutable"`
		} `json:"borrowed_ref"`
	}
	if json.Unmarshal(raw, &outer) != nil || outer.BorrowedRef == nil {
		return "self"
	}
	return refPrefix(outer.BorrowedRef.Lifetime, outer.BorrowedRef.IsMutable) + "self"
}

func refPrefix(lifetime *string, mutable bool) string {
	p := "&"
	if lifetime != nil && *lifetime != "" {
		p += *lifetime + " "
	}
	if mutable {
		p += "mut "
	}
	return p
}

// TypeString renders a rustdoc type expression as Rust source. Shapes it does
// not understand render as "_". c may be nil; it is only used to name
// resolved paths that omit their own name.
func TypeString(c *Crate, raw json.RawMessage) string {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		// "infer" and other unit variants arrive as bare strings.
		return "_"
	}

	for tag, v := range outer {
		switch tag {
		case "resolved_path":
			var p Path
			if json.Unmarshal(v, &p) != nil {
				return "_"
			}
			return pathString(c, &p)
		case "primitive", "generic":
			var s string
			json.Unmarshal(v, &s)
			return s
		case "borrowed_ref":
			var r struct {
				Lifetime  *string         `json:"lifetime"`
				IsMutable bool            `json:"is_mutable"`
				Type      json.RawMessage `json:"type"`
			}
			json.Unmarshal(v, &r)
			return refPrefix(r.Lifetime, r.IsMutable) + TypeString(c, r.Type)
		case "raw_pointer":
			var r struct {
				IsMutable bool            `json:"is_mutable"`
				Type      json.RawMessage `json:"type"`
			}
			json.Unmarshal(v, &r)
			if r.IsMutable {
				return "*mut " + TypeString(c, r.Type)
			}
			return "*const " + TypeString(c, r.Type)
		case "slice":
			return "[" + TypeString(c, v) + "]"
		case "array":
			var a struct {
				Type json.RawMessage `json:"type"`
				Len  string          `json:"len"`
			}
			json.Unmarshal(v, &a)
			return "[" + TypeString(c, a.Type) + "; " + a.Len + "]"
		case "tuple":
			var elems []json.RawMessage
			json.Unmarshal(v, &elems)
			parts := make([]string, len(elems))
			for i, e := range elems {
				parts[i] = TypeString(c, e)
			}
			return "(" + strings.Join(parts, ", ") + ")"
		case "dyn_trait":
			var d struct {
				Traits []struct {
					Trait Path `json:"trait"`
				} `json:"traits"`
				Lifetime *string `json:"lifetime"`
			}
			json.Unmarshal(v, &d)
			parts := make([]string, 0, len(d.Traits)+1)
			for _, t := range d.Traits {
				parts = append(parts, pathString(c, &t.Trait))
			}
			if d.Lifetime != nil && *d.Lifetime != "" {
				parts = append(parts, *d.Lifetime)
			}
			return "dyn " + strings.Join(parts, " + ")
		case "impl_trait":
			return "impl " + boundsString(c, v)
		case "qualified_path":
			var q struct {
				Name     string          `json:"name"`
				SelfType json.RawMessage `json:"self_type"`
				Trait    *Path           `json:"trait"`
			}
			json.Unmarshal(v, &q)
			self := TypeString(c, q.SelfType)
			if q.Trait != nil && q.Trait.Written() != "" {
				return "<" + self + " as " + pathString(c, q.Trait) + ">::" + q.Name
			}
			return self + "::" + q.Name
		case "function_pointer":
			var f struct {
				Sig struct {
					Inputs []json.RawMessage `json:"inputs"`
					Output json.RawMessage   `json:"output"`
				} `json:"sig"`
			}
			json.Unmarshal(v, &f)
			var params []string
			for _, input := range f.Sig.Inputs {
				var pair []json.RawMessage
				if json.Unmarshal(input, &pair) == nil && len(pair) == 2 {
					params = append(params, TypeString(c, pair[1]))
				}
			}
			s := "fn(" + strings.Join(params, ", ") + ")"
			if len(f.Sig.Output) > 0 && string(f.Sig.Output) != "null" {
				s += " -> " + TypeString(c, f.Sig.Output)
			}
			return s
		}
	}
	return "_"
}

func pathString(c *Crate, p *Path) string {
	name := p.LastSegment()
	if name == "" && c != nil {
		if s, ok := c.Paths[p.ID]; ok && len(s.Path) > 0 {
			name = s.Path[len(s.Path)-1]
		}
	}
	if name == "" {
		return "_"
	}
	return name + genericArgs(c, p.Args)
}

func genericArgs(c *Crate, raw json.RawMessage) string {
	var args struct {
		AngleBracketed *struct {
			Args []map[string]json.RawMessage `json:"args"`
		} `json:"angle_bracketed"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &args) != nil || args.AngleBracketed == nil {
		return ""
	}
	var parts []string
	for _, a := range args.AngleBracketed.Args {
		if t, ok := a["type"]; ok {
			parts = append(parts, TypeString(c, t))
		} else if lt, ok := a["lifetime"]; ok {
			var s string
			if json.Unmarshal(lt, &s) == nil {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func boundsString(c *Crate, raw json.RawMessage) string {
	var bounds []struct {
		TraitBound *struct {
			Trait Path `json:"trait"`
		} `json:"trait_bound"`
		Outlives *string `json:"outlives"`
	}
	json.Unmarshal(raw, &bounds)
	var parts []string
	for _, b := range bounds {
		switch {
		case b.TraitBound != nil:
			parts = append(parts, pathString(c, &b.TraitBound.Trait))
		case b.Outlives != nil:
			parts = append(parts, *b.Outlives)
		}
	}
	return strings.Join(parts, " + ")
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "::"); i >= 0 {
		return p[i+2:]
	}
	return p
}

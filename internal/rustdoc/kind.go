package rustdoc

// Kind is the item kind tag used by the summary path table.
type Kind string

const (
	KindUnknown       Kind = ""
	KindModule        Kind = "module"
	KindExternCrate   Kind = "extern_crate"
	KindUse           Kind = "use"
	KindStruct        Kind = "struct"
	KindStructField   Kind = "struct_field"
	KindUnion         Kind = "union"
	KindEnum          Kind = "enum"
	KindVariant       Kind = "variant"
	KindFunction      Kind = "function"
	KindTypeAlias     Kind = "type_alias"
	KindConstant      Kind = "constant"
	KindTrait         Kind = "trait"
	KindTraitAlias    Kind = "trait_alias"
	KindImpl          Kind = "impl"
	KindStatic        Kind = "static"
	KindExternType    Kind = "extern_type"
	KindMacro         Kind = "macro"
	KindProcAttribute Kind = "proc_attribute"
	KindProcDerive    Kind = "proc_derive"
	KindAssocConst    Kind = "assoc_const"
	KindAssocType     Kind = "assoc_type"
	KindPrimitive     Kind = "primitive"
	KindKeyword       Kind = "keyword"
)

// legacyKinds maps tags emitted by older rustdoc format versions.
var legacyKinds = map[Kind]Kind{
	"import":       KindUse,
	"typedef":      KindTypeAlias,
	"foreign_type": KindExternType,
	"method":       KindFunction,
}

func (k *Kind) UnmarshalText(text []byte) error {
	kind := Kind(text)
	if modern, ok := legacyKinds[kind]; ok {
		kind = modern
	}
	*k = kind
	return nil
}

func (k Kind) String() string {
	if k == KindUnknown {
		return "unknown"
	}
	return string(k)
}

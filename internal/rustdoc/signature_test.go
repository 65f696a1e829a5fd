package rustdoc

import (
	"encoding/json"
	"testing"
)

func fnItem(name, vis, data string) *Item {
	var fn Function
	if err := json.Unmarshal([]byte(data), &fn); err != nil {
		panic(err)
	}
	return &Item{Name: &name, Visibility: Visibility{Kind: vis}, Inner: &fn}
}

func TestSignature_Function(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item *Item
		want string
	}{
		{
			name: "simple_no_params",
			item: fnItem("foo", "default", `{"sig":{"inputs":[],"output":null},"generics":{"params":[]},"header":{}}`),
			want: "fn foo()",
		},
		{
			name: "public_with_return",
			item: fnItem("bar", "public", `{"sig":{"inputs":[],"output":{"primitive":"bool"}},"generics":{"params":[]},"header":{}}`),
			want: "pub fn bar() -> bool",
		},
		{
			name: "with_param",
			item: fnItem("greet", "default", `{"sig":{"inputs":[["name",{"borrowed_ref":{"lifetime":null,"is_mutable":false,"type":{"primitive":"str"}}}]],"output":null},"generics":{"params":[]},"header":{}}`),
			want: "fn greet(name: &str)",
		},
		{
			name: "with_generics",
			item: fnItem("identity", "default", `{"sig":{"inputs":[["val",{"generic":"T"}]],"output":{"generic":"T"}},"generics":{"params":[{"name":"T","kind":{"type":{"bounds":[],"default":null,"is_synthetic":false}}}]},"header":{}}`),
			want: "fn identity<T>(val: T) -> T",
		},
		{
			name: "synthetic_generic",
			item: fnItem("open", "default", `{"sig":{"inputs":[["path",{"impl_trait":[{"trait_bound":{"trait":{"path":"AsRef","id":5,"args":{"angle_bracketed":{"args":[{"type":{"resolved_path":{"path":"Path","id":6,"args":null}}}],"constraints":[]}}}}}]}]],"output":null},"generics":{"params":[{"name":"impl AsRef<Path>","kind":{"type":{"is_synthetic":true}}}]},"header":{}}`),
			want: "fn open(path: impl AsRef<Path>)",
		},
		{
			name: "const_unsafe_async",
			item: fnItem("danger", "default", `{"sig":{"inputs":[],"output":null},"generics":{"params":[]},"header":{"is_const":true,"is_unsafe":true,"is_async":true}}`),
			want: "const unsafe async fn danger()",
		},
		{
			name: "self_borrowed",
			item: fnItem("method", "default", `{"sig":{"inputs":[["self",{"borrowed_ref":{"lifetime":null,"is_mutable":false,"type":{"generic":"Self"}}}]],"output":null},"generics":{"params":[]},"header":{}}`),
			want: "fn method(&self)",
		},
		{
			name: "self_mut",
			item: fnItem("mutate", "default", `{"sig":{"inputs":[["self",{"borrowed_ref":{"lifetime":null,"is_mutable":true,"type":{"generic":"Self"}}}]],"output":null},"generics":{"params":[]},"header":{}}`),
			want: "fn mutate(&mut self)",
		},
		{
			name: "unit_return_elided",
			item: fnItem("nothing", "default", `{"sig":{"inputs":[],"output":{"tuple":[]}},"generics":{},"header":{}}`),
			want: "fn nothing()",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Signature(nil, tt.item); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSignature_Declarations(t *testing.T) {
	t.Parallel()

	var crate Crate
	if err := json.Unmarshal([]byte(sampleCrate), &crate); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	point := crate.Index["1"]
	if got, want := Signature(&crate, &point), "pub struct Point { .. }"; got != want {
		t.Errorf("struct: got %q, want %q", got, want)
	}
	alias := crate.Index["2"]
	if got, want := Signature(&crate, &alias), "pub use inner::Thing as Alias;"; got != want {
		t.Errorf("use: got %q, want %q", got, want)
	}
	if got := Signature(&crate, &Item{Inner: &Impl{}}); got != "" {
		t.Errorf("impl: got %q, want empty", got)
	}

	name := "MAX"
	konst := &Item{Name: &name, Visibility: Visibility{Kind: "public"}, Inner: &Constant{
		Type:  json.RawMessage(`{"primitive":"u32"}`),
		Const: json.RawMessage(`{"expr":"4_294_967_295u32","value":null,"is_literal":true}`),
	}}
	if got, want := Signature(&crate, konst), "pub const MAX: u32 = 4_294_967_295u32;"; got != want {
		t.Errorf("const: got %q, want %q", got, want)
	}
}

func TestSelfShorthand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		json string
		want string
	}{
		{"owned_self", `{"generic":"Self"}`, "self"},
		{"borrowed", `{"borrowed_ref":{"is_mutable":false,"type":{"generic":"Self"}}}`, "&self"},
		{"borrowed_mut", `{"borrowed_ref":{"is_mutable":true,"type":{"generic":"Self"}}}`, "&mut self"},
		{"with_lifetime", `{"borrowed_ref":{"lifetime":"'a","is_mutable":false,"type":{"generic":"Self"}}}`, "&'a self"},
		{"with_lifetime_mut", `{"borrowed_ref":{"lifetime":"'a","is_mutable":true,"type":{"generic":"Self"}}}`, "&'a mut self"},
		{"invalid_json", `not valid`, "self"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selfShorthand(json.RawMessage(tt.json)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	t.Parallel()

	crate := &Crate{Paths: map[ID]Summary{
		"10": {Path: []string{"mycrate", "MyType"}, Kind: KindStruct},
	}}

	tests := []struct {
		name string
		json string
		want string
	}{
		{"resolved_path", `{"resolved_path":{"path":"MyType","id":10,"args":null}}`, "MyType"},
		{"resolved_path_from_summary", `{"resolved_path":{"path":"","id":10,"args":null}}`, "MyType"},
		{"resolved_path_args", `{"resolved_path":{"path":"Vec","id":3,"args":{"angle_bracketed":{"args":[{"type":{"primitive":"u8"}}]}}}}`, "Vec<u8>"},
		{"lifetime_arg", `{"resolved_path":{"path":"Cow","id":3,"args":{"angle_bracketed":{"args":[{"lifetime":"'a"},{"type":{"primitive":"str"}}]}}}}`, "Cow<'a, str>"},
		{"primitive", `{"primitive":"u32"}`, "u32"},
		{"generic", `{"generic":"T"}`, "T"},
		{"borrowed_ref_immutable", `{"borrowed_ref":{"lifetime":null,"is_mutable":false,"type":{"primitive":"str"}}}`, "&str"},
		{"borrowed_ref_mutable", `{"borrowed_ref":{"lifetime":null,"is_mutable":true,"type":{"primitive":"str"}}}`, "&mut str"},
		{"borrowed_ref_with_lifetime", `{"borrowed_ref":{"lifetime":"'a","is_mutable":false,"type":{"primitive":"str"}}}`, "&'a str"},
		{"raw_pointer", `{"raw_pointer":{"is_mutable":false,"type":{"primitive":"u8"}}}`, "*const u8"},
		{"slice", `{"slice":{"primitive":"u8"}}`, "[u8]"},
		{"array", `{"array":{"type":{"primitive":"u8"},"len":"32"}}`, "[u8; 32]"},
		{"tuple", `{"tuple":[{"primitive":"u32"},{"primitive":"bool"}]}`, "(u32, bool)"},
		{"empty_tuple", `{"tuple":[]}`, "()"},
		{"qualified_path_with_trait", `{"qualified_path":{"name":"Item","self_type":{"generic":"I"},"trait":{"path":"Iterator","id":99}}}`, "<I as Iterator>::Item"},
		{"qualified_path_without_trait", `{"qualified_path":{"name":"Output","self_type":{"primitive":"u32"},"trait":null}}`, "u32::Output"},
		{"dyn_trait", `{"dyn_trait":{"traits":[{"trait":{"path":"Debug","id":99}}],"lifetime":null}}`, "dyn Debug"},
		{"dyn_trait_multi", `{"dyn_trait":{"traits":[{"trait":{"path":"Debug","id":99}},{"trait":{"path":"Send","id":98}}],"lifetime":"'static"}}`, "dyn Debug + Send + 'static"},
		{"impl_trait", `{"impl_trait":[{"trait_bound":{"trait":{"path":"Fn","id":1}}},{"outlives":"'a"}]}`, "impl Fn + 'a"},
		{"fn_pointer", `{"function_pointer":{"sig":{"inputs":[["_",{"primitive":"i32"}]],"output":{"primitive":"bool"}}}}`, "fn(i32) -> bool"},
		{"infer", `"infer"`, "_"},
		{"invalid_json", `not json`, "_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TypeString(crate, json.RawMessage(tt.json)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

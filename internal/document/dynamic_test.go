package document

import (
	"encoding/json"
	"testing"
)

func TestIsDynamicKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"domicilio_0", true},
		{"tipo_de_persona_juridica_0", true},
		{"_3", true},
		{"field_12", true},
		{"_id", false},
		{"__v", false},
		{"_v", false},
		{"_master", false},
		{"_masterType", false},
		{"documentName", false},
		{"field_", false},
		{"field_1a", false},
		{"_", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsDynamicKey(tt.key); got != tt.want {
				t.Errorf("IsDynamicKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestCollectDynamic(t *testing.T) {
	d := Doc{
		"_id":         "abc",
		"__v":         2,
		"name":        "x",
		"domicilio_0": "Calle 1",
		"piso_1":      "",
		"depto_2":     nil,
		"tags_3":      []any{},
		"items_4":     []any{"a"},
		"flag_5":      false,
		"_6":          0,
	}

	got := CollectDynamic(d)
	s, ok := got.(string)
	if !ok {
		t.Fatalf("CollectDynamic = %T, want string", got)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, k := range []string{"domicilio_0", "items_4", "flag_5", "_6"} {
		if _, ok := m[k]; !ok {
			t.Errorf("expected key %q in %s", k, s)
		}
	}
	for _, k := range []string{"_id", "__v", "name", "piso_1", "depto_2", "tags_3"} {
		if _, ok := m[k]; ok {
			t.Errorf("unexpected key %q in %s", k, s)
		}
	}
}

func TestCollectDynamic_AllEmpty(t *testing.T) {
	d := Doc{
		"_id":     "abc",
		"piso_1":  "",
		"depto_2": nil,
		"tags_3":  []any{},
	}
	if got := CollectDynamic(d); got != nil {
		t.Errorf("CollectDynamic = %v, want nil", got)
	}
	if got := CollectDynamic(Doc{}); got != nil {
		t.Errorf("CollectDynamic(empty) = %v, want nil", got)
	}
}

func TestCollectKeys(t *testing.T) {
	d := Doc{"_3": "a", "_4": "", "_5": nil, "_9": "ignored"}
	got, ok := CollectKeys(d, "_3", "_4", "_5", "_6", "_7").(string)
	if !ok {
		t.Fatal("expected JSON string")
	}
	if got != `{"_3":"a"}` {
		t.Errorf("CollectKeys = %s", got)
	}
	if v := CollectKeys(Doc{"_4": ""}, "_3", "_4"); v != nil {
		t.Errorf("expected nil, got %v", v)
	}
}

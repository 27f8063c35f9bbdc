package document

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestPrimaryKey(t *testing.T) {
	oid := bson.NewObjectID()

	tests := []struct {
		name string
		doc  Doc
		want string
	}{
		{"bare string", Doc{"_id": "X"}, "X"},
		{"oid envelope", Doc{"_id": map[string]any{"$oid": "X"}}, "X"},
		{"oid envelope doc", Doc{"_id": Doc{"$oid": "X"}}, "X"},
		{"object id", Doc{"_id": oid}, oid.Hex()},
		{"integer", Doc{"_id": int32(42)}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrimaryKey(tt.doc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PrimaryKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrimaryKey_Missing(t *testing.T) {
	for _, d := range []Doc{{}, {"_id": nil}, {"_id": ""}, {"_id": Doc{"$oid": ""}}, {"_id": Doc{"x": 1}}} {
		if _, err := PrimaryKey(d); !errors.Is(err, ErrMissingID) {
			t.Errorf("PrimaryKey(%v) error = %v, want ErrMissingID", d, err)
		}
	}
}

func TestFromBSON(t *testing.T) {
	in := bson.D{
		{Key: "a", Value: bson.D{{Key: "b", Value: bson.A{int32(1), bson.D{{Key: "c", Value: "x"}}}}}},
		{Key: "n", Value: bson.Null{}},
	}
	d, ok := FromBSON(in).(Doc)
	if !ok {
		t.Fatalf("FromBSON returned %T", FromBSON(in))
	}
	if got := d.Doc("a").Slice("b"); len(got) != 2 {
		t.Fatalf("nested array length = %d, want 2", len(got))
	}
	if got := d.Doc("a").Docs("b"); len(got) != 1 || got[0].Str("c") != "x" {
		t.Errorf("nested docs = %v", got)
	}
	if d["n"] != nil {
		t.Errorf("null should decode to nil, got %v", d["n"])
	}
}

func TestGet_Path(t *testing.T) {
	d := Doc{"updatedBy": Doc{"user": map[string]any{"id": "U1"}}, "s": "x"}
	if got := d.Str("updatedBy", "user", "id"); got != "U1" {
		t.Errorf("path lookup = %v, want U1", got)
	}
	if got := d.Get("s", "deeper"); got != nil {
		t.Errorf("lookup through scalar = %v, want nil", got)
	}
	if got := d.Get("missing", "x"); got != nil {
		t.Errorf("missing path = %v, want nil", got)
	}
	var nilDoc Doc
	if got := nilDoc.Get("x"); got != nil {
		t.Errorf("nil doc lookup = %v, want nil", got)
	}
}

func TestScalarConversions(t *testing.T) {
	if got := Int("12"); got != int64(12) {
		t.Errorf("Int(\"12\") = %v", got)
	}
	if got := Int(int32(7)); got != int64(7) {
		t.Errorf("Int(int32) = %v", got)
	}
	if got := Int(Doc{"$numberLong": "99"}); got != int64(99) {
		t.Errorf("Int($numberLong) = %v", got)
	}
	if got := Int("abc"); got != nil {
		t.Errorf("Int(\"abc\") = %v, want nil", got)
	}
	if got := Bool("true"); got != true {
		t.Errorf("Bool(\"true\") = %v", got)
	}
	if got := Bool(1); got != nil {
		t.Errorf("Bool(1) = %v, want nil", got)
	}
	if got := BoolOr(nil, true); !got {
		t.Error("BoolOr default not applied")
	}
	if got := Str(Doc{"name": "x"}); got != nil {
		t.Errorf("Str(object) = %v, want nil", got)
	}
	if got := Str(float64(3)); got != "3" {
		t.Errorf("Str(3.0) = %v", got)
	}
}

func TestJSON(t *testing.T) {
	if got := JSON("scalar"); got != nil {
		t.Errorf("JSON(scalar) = %v, want nil", got)
	}
	if got := JSON(nil); got != nil {
		t.Errorf("JSON(nil) = %v, want nil", got)
	}
	if got := JSON([]any{"a", 1}); got != `["a",1]` {
		t.Errorf("JSON(array) = %v", got)
	}
	if got := JSON(Doc{"k": "v"}); got != `{"k":"v"}` {
		t.Errorf("JSON(object) = %v", got)
	}
}

func TestFirst(t *testing.T) {
	if got := First(nil, "", "b", "c"); got != "b" {
		t.Errorf("First = %v, want b", got)
	}
	if got := First(nil, ""); got != nil {
		t.Errorf("First = %v, want nil", got)
	}
	if got := FirstPresent(nil, false, true); got != false {
		t.Errorf("FirstPresent = %v, want false", got)
	}
}

func TestRefID(t *testing.T) {
	if got := RefID(Doc{"id": "A1"}); got != "A1" {
		t.Errorf("RefID(id) = %v", got)
	}
	if got := RefID(Doc{"_id": Doc{"$oid": "A2"}}); got != "A2" {
		t.Errorf("RefID(_id.$oid) = %v", got)
	}
	if got := RefID("A3"); got != nil {
		t.Errorf("RefID(scalar) = %v, want nil", got)
	}
}

package store

import "testing"

func TestMarshalDims_Canonical(t *testing.T) {
	got, err := marshalDims(map[string]int{"n": 3, "m": 10})
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"m":10,"n":3}`; got != want {
		t.Errorf("marshalDims() = %s, want %s", got, want)
	}

	empty, err := marshalDims(nil)
	if err != nil {
		t.Fatal(err)
	}
	if empty != "{}" {
		t.Errorf("marshalDims(nil) = %s, want {}", empty)
	}
}

func TestUnmarshalDims(t *testing.T) {
	dims, err := unmarshalDims(`{"m":10,"n":3}`)
	if err != nil {
		t.Fatal(err)
	}
	if dims["m"] != 10 || dims["n"] != 3 {
		t.Errorf("unmarshalDims() = %v", dims)
	}

	empty, err := unmarshalDims("")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("unmarshalDims(\"\") = %v, %v", empty, err)
	}

	if _, err := unmarshalDims("{"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

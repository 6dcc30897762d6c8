package types

import "testing"

func TestValueCanonical(t *testing.T) {
	str := func(v Value) string {
		c := v.Canonical()
		if c == nil {
			t.Fatal("unexpected nil canonical")
		}
		return *c
	}

	if got := NullValue().Canonical(); got != nil {
		t.Errorf("NULL canonical should be nil, got %q", *got)
	}
	if got := str(IntValue(-42)); got != "-42" {
		t.Errorf("int canonical mismatch: got %s", got)
	}
	if got := str(RealValue(3.5)); got != "3.5" {
		t.Errorf("real canonical mismatch: got %s", got)
	}
	if got := str(TextValue("")); got != "" {
		t.Errorf("empty text canonical mismatch: got %q", got)
	}
	if got := str(BlobValue([]byte{0xde, 0xad})); got != "dead" {
		t.Errorf("blob canonical mismatch: got %s", got)
	}
}

func TestCanonicalEqual(t *testing.T) {
	empty := ""
	a := "x"
	b := "x"
	c := "y"

	if !CanonicalEqual(nil, nil) {
		t.Error("nil should equal nil")
	}
	if CanonicalEqual(nil, &empty) {
		t.Error("NULL must differ from the empty string")
	}
	if !CanonicalEqual(&a, &b) {
		t.Error("equal strings should compare equal")
	}
	if CanonicalEqual(&a, &c) {
		t.Error("different strings should compare unequal")
	}
}

func TestFromDriver(t *testing.T) {
	v, err := FromDriver(nil)
	if err != nil || !v.IsNull() {
		t.Errorf("nil should map to NULL, got %v, %v", v, err)
	}

	v, err = FromDriver(int64(7))
	if err != nil || v.Int() != 7 {
		t.Errorf("int64 mismatch: %v, %v", v, err)
	}

	v, err = FromDriver([]byte{1, 2})
	if err != nil {
		t.Fatalf("blob failed: %v", err)
	}
	if c := v.Canonical(); c == nil || *c != "0102" {
		t.Errorf("blob canonical mismatch: %v", c)
	}

	v, err = FromDriver(true)
	if err != nil || v.Int() != 1 {
		t.Errorf("bool should map to integer 1, got %v, %v", v, err)
	}

	if _, err := FromDriver(struct{}{}); err == nil {
		t.Error("unsupported driver type should fail")
	}
}

func TestFromDriverCopiesBlob(t *testing.T) {
	raw := []byte{1, 2, 3}
	v, err := FromDriver(raw)
	if err != nil {
		t.Fatalf("blob failed: %v", err)
	}
	raw[0] = 9
	if c := v.Canonical(); c == nil || *c != "010203" {
		t.Errorf("blob should be copied, got %v", c)
	}
}

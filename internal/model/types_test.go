package model

import "testing"

func TestParseAddressRoundTrip(t *testing.T) {
	in := "0x7ceb23fd6bc0add59e62ac25578270cff1b9f619"
	a, err := ParseAddress(in)
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	if a.String() != in {
		t.Errorf("round trip mismatch: got %s, want %s", a.String(), in)
	}
	if a.IsZero() {
		t.Error("parsed address reported as zero")
	}
}

func TestParseAddressRejectsBadInput(t *testing.T) {
	cases := []string{
		"",
		"0x",
		"0x1234",
		"0x7ceb23fd6bc0add59e62ac25578270cff1b9f6",     // too short
		"0x7ceb23fd6bc0add59e62ac25578270cff1b9f61900", // too long
		"0xZZeb23fd6bc0add59e62ac25578270cff1b9f619",   // non-hex
	}
	for _, in := range cases {
		if _, err := ParseAddress(in); err == nil {
			t.Errorf("ParseAddress(%q): expected error", in)
		}
	}
}

func TestParseSelector(t *testing.T) {
	sel, err := ParseSelector("0xa9059cbb")
	if err != nil {
		t.Fatalf("ParseSelector: %v", err)
	}
	if sel.String() != "0xa9059cbb" {
		t.Errorf("round trip mismatch: got %s", sel.String())
	}
	if _, err := ParseSelector("0xa9059c"); err == nil {
		t.Error("expected error for short selector")
	}
}

func TestDeniedCarriesKindAndReason(t *testing.T) {
	r := Denied(KindAssetNotPermitted, "asset %s not whitelisted", "0xabc")
	if r.Ok() {
		t.Fatal("deny result reported Ok")
	}
	if r.Kind != KindAssetNotPermitted {
		t.Errorf("kind = %s", r.Kind)
	}
	if r.Reason != "asset 0xabc not whitelisted" {
		t.Errorf("reason = %q", r.Reason)
	}
	if !Admitted().Ok() {
		t.Error("admit result not Ok")
	}
}

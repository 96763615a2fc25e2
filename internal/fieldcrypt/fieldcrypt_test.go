package fieldcrypt

import (
	"strings"
	"testing"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestSealOpenRoundTrip(t *testing.T) {
	cipher, err := NewAEAD(testKey)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}

	sealed, err := cipher.Seal("12345678Z")
	if err != nil {
		t.Fatalf("seal failed: %v", err)
	}
	if sealed == "12345678Z" {
		t.Fatalf("seal returned plaintext")
	}

	opened, err := cipher.Open(sealed)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if opened != "12345678Z" {
		t.Fatalf("round trip mismatch: %q", opened)
	}
}

func TestSealIsRandomized(t *testing.T) {
	cipher, err := NewAEAD(testKey)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}

	a, _ := cipher.Seal("ana@example.com")
	b, _ := cipher.Seal("ana@example.com")
	if a == b {
		t.Fatalf("expected distinct ciphertexts for repeated seals")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	cipher, err := NewAEAD(testKey)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}

	sealed, _ := cipher.Seal("ana@example.com")
	tampered := strings.Replace(sealed, sealed[:1], "A", 1)
	if tampered == sealed {
		tampered = "B" + sealed[1:]
	}
	if _, err := cipher.Open(tampered); err == nil {
		t.Fatalf("expected tampered ciphertext to fail")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	first, _ := NewAEAD(testKey)
	second, err := NewAEAD("000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}

	sealed, _ := first.Seal("12345678Z")
	if _, err := second.Open(sealed); err == nil {
		t.Fatalf("expected decryption with wrong key to fail")
	}
}

func TestEmptyValuesPassThrough(t *testing.T) {
	cipher, err := NewAEAD(testKey)
	if err != nil {
		t.Fatalf("new cipher failed: %v", err)
	}

	sealed, err := cipher.Seal("")
	if err != nil || sealed != "" {
		t.Fatalf("expected empty passthrough, got %q, %v", sealed, err)
	}
	opened, err := cipher.Open("")
	if err != nil || opened != "" {
		t.Fatalf("expected empty passthrough, got %q, %v", opened, err)
	}
}

func TestNewAEADRejectsBadKeys(t *testing.T) {
	if _, err := NewAEAD("not-hex"); err == nil {
		t.Fatalf("expected error for non-hex key")
	}
	if _, err := NewAEAD("abcd"); err == nil {
		t.Fatalf("expected error for short key")
	}
}

func TestNoopPassesThrough(t *testing.T) {
	var cipher Cipher = Noop{}
	sealed, _ := cipher.Seal("12345678Z")
	if sealed != "12345678Z" {
		t.Fatalf("noop changed the value: %q", sealed)
	}
}

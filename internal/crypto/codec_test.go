package crypto

import (
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestAESGCMRoundTrip(t *testing.T) {
	codec, err := NewAESGCM(testKeyHex)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	for _, plaintext := range []string{"15.99", "Spotify Premium", "", "crème brûlée 12,50"} {
		sealed, err := codec.Encrypt(plaintext)
		if err != nil {
			t.Fatalf("encrypt %q: %v", plaintext, err)
		}
		if sealed == plaintext && plaintext != "" {
			t.Fatalf("ciphertext equals plaintext for %q", plaintext)
		}
		opened, err := codec.Decrypt(sealed)
		if err != nil {
			t.Fatalf("decrypt %q: %v", plaintext, err)
		}
		if opened != plaintext {
			t.Fatalf("roundtrip mismatch: %q != %q", opened, plaintext)
		}
	}
}

func TestAESGCMRandomNonce(t *testing.T) {
	codec, err := NewAESGCM(testKeyHex)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	a, _ := codec.Encrypt("same input")
	b, _ := codec.Encrypt("same input")
	if a == b {
		t.Fatal("two encryptions of the same input must differ")
	}
}

func TestAESGCMRejectsGarbage(t *testing.T) {
	codec, err := NewAESGCM(testKeyHex)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	cases := []string{
		"not base64 !!!",
		"YWJj", // valid base64, too short for a nonce
	}
	for _, in := range cases {
		if _, err := codec.Decrypt(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}

	// Valid ciphertext under a different key must not open.
	other, err := NewAESGCM(strings.Repeat("ff", 32))
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	sealed, _ := other.Encrypt("secret")
	if _, err := codec.Decrypt(sealed); err == nil {
		t.Fatal("expected error decrypting with the wrong key")
	}
}

func TestNewAESGCMKeyValidation(t *testing.T) {
	cases := []string{
		"",
		"zz",
		"abcd", // too short
	}
	for _, key := range cases {
		if _, err := NewAESGCM(key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestPlaintextPassthrough(t *testing.T) {
	var codec Codec = Plaintext{}
	sealed, err := codec.Encrypt("15.99")
	if err != nil || sealed != "15.99" {
		t.Fatalf("unexpected encrypt result %q, %v", sealed, err)
	}
	opened, err := codec.Decrypt("15.99")
	if err != nil || opened != "15.99" {
		t.Fatalf("unexpected decrypt result %q, %v", opened, err)
	}
}

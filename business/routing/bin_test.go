//go:build !integration

package routing

import "testing"

func TestBINEncryptionRoundTrip(t *testing.T) {
	t.Parallel()

	keys := []string{
		"0123456789abcdef",                 // 16 bytes
		"0123456789abcdef01234567",         // 24 bytes
		"0123456789abcdef0123456789abcdef", // 32 bytes
	}

	for _, key := range keys {
		cipher, err := encryptBIN("411111", key)
		if err != nil {
			t.Fatalf("Failed to encrypt with %d-byte key: %v", len(key), err)
		}
		if cipher == "" || cipher == "411111" {
			t.Fatalf("expected an opaque ciphertext, got %q", cipher)
		}

		plain, err := decryptBIN(cipher, key)
		if err != nil {
			t.Fatalf("Failed to decrypt with %d-byte key: %v", len(key), err)
		}
		if plain != "411111" {
			t.Fatalf("expected the original BIN back, got %q", plain)
		}
	}
}

func TestBINEncryptionDistinctPerBIN(t *testing.T) {
	t.Parallel()

	key := "0123456789abcdef"

	a, err := encryptBIN("411111", key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}
	b, err := encryptBIN("550000", key)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	aPlain, _ := decryptBIN(a, key)
	bPlain, _ := decryptBIN(b, key)
	if aPlain == bPlain {
		t.Fatal("expected distinct BINs to stay distinct")
	}
}

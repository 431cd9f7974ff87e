package database

import "testing"

func TestEncryptRoundTrip(t *testing.T) {
	key := DeriveEncryptionKey("test-secret")
	if len(key) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(key))
	}

	sealed, err := encrypt("sk_live_supplier", key)
	if err != nil {
		t.Fatalf("encrypt() error = %v", err)
	}
	if sealed == "sk_live_supplier" {
		t.Fatal("ciphertext equals plaintext")
	}

	plain, err := decrypt(sealed, key)
	if err != nil {
		t.Fatalf("decrypt() error = %v", err)
	}
	if plain != "sk_live_supplier" {
		t.Errorf("decrypt() = %q", plain)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	sealed, err := encrypt("secret", DeriveEncryptionKey("one"))
	if err != nil {
		t.Fatalf("encrypt() error = %v", err)
	}
	if _, err := decrypt(sealed, DeriveEncryptionKey("two")); err == nil {
		t.Error("expected error decrypting with the wrong key")
	}
	if _, err := decrypt("c2hvcnQ=", DeriveEncryptionKey("one")); err == nil {
		t.Error("expected error for short ciphertext")
	}
}

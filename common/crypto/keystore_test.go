package crypto

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncryptDecrypt(t *testing.T) {
	plain := []byte(`{"network":"preprod","wallets":[]}`)

	c, err := Encrypt(plain, "preprodProjectKey", LightScrypt)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if c.Cipher != CipherAES128CTR || c.KDF != KDFScrypt {
		t.Fatalf("unexpected envelope %s/%s", c.Cipher, c.KDF)
	}

	out, err := Decrypt(c, "preprodProjectKey")
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if !bytes.Equal(out, plain) {
		t.Fatalf("round trip mismatch: %s", out)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	c, err := Encrypt([]byte("secret"), "right", LightScrypt)
	if err != nil {
		t.Fatalf("Error: %v", err)
	}
	if _, err := Decrypt(c, "wrong"); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}

func TestEncryptUsesFreshSalt(t *testing.T) {
	a, _ := Encrypt([]byte("same"), "key", LightScrypt)
	b, _ := Encrypt([]byte("same"), "key", LightScrypt)
	if a.KDFParams.Salt == b.KDFParams.Salt || a.CipherText == b.CipherText {
		t.Fatalf("two encryptions produced identical output")
	}
}

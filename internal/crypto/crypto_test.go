package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"
)

func TestL2HeadersDeterministic(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("test-secret"))
	auth := &HMACAuth{
		Key:        "test-key",
		Secret:     secret,
		Passphrase: "test-pass",
	}

	headers := auth.L2HeadersAt("0xabc", "POST", "/orders", `{"a":1}`, 1756400400)

	if headers["POLY_ADDRESS"] != "0xabc" {
		t.Errorf("POLY_ADDRESS = %q", headers["POLY_ADDRESS"])
	}
	if headers["POLY_API_KEY"] != "test-key" {
		t.Errorf("POLY_API_KEY = %q", headers["POLY_API_KEY"])
	}
	if headers["POLY_TIMESTAMP"] != "1756400400" {
		t.Errorf("POLY_TIMESTAMP = %q", headers["POLY_TIMESTAMP"])
	}

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(`1756400400POST/orders{"a":1}`))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if headers["POLY_SIGNATURE"] != want {
		t.Errorf("POLY_SIGNATURE = %q, want %q", headers["POLY_SIGNATURE"], want)
	}
}

func TestL2HeadersBodyChangesSignature(t *testing.T) {
	auth := &HMACAuth{Key: "k", Secret: base64.StdEncoding.EncodeToString([]byte("s"))}

	a := auth.L2HeadersAt("0xabc", "POST", "/orders", "body1", 100)
	b := auth.L2HeadersAt("0xabc", "POST", "/orders", "body2", 100)
	if a["POLY_SIGNATURE"] == b["POLY_SIGNATURE"] {
		t.Fatal("different bodies produced identical signatures")
	}
}

func TestHMACAuthStringRedacts(t *testing.T) {
	auth := &HMACAuth{Key: "supersecretkey", Secret: "supersecretvalue"}
	s := auth.String()
	if strings.Contains(s, "supersecretkey") || strings.Contains(s, "supersecretvalue") {
		t.Fatalf("String leaked credentials: %s", s)
	}
}

func TestEncryptDecryptCredentialsRoundTrip(t *testing.T) {
	creds := HMACAuth{Key: "api-key", Secret: "api-secret", Passphrase: "phrase"}

	blob, err := EncryptCredentials(creds, "hunter2")
	if err != nil {
		t.Fatalf("EncryptCredentials: %v", err)
	}

	got, err := DecryptCredentials(blob, "hunter2")
	if err != nil {
		t.Fatalf("DecryptCredentials: %v", err)
	}
	if got != creds {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, creds)
	}
}

func TestDecryptCredentialsWrongPassword(t *testing.T) {
	blob, err := EncryptCredentials(HMACAuth{Key: "k"}, "right")
	if err != nil {
		t.Fatalf("EncryptCredentials: %v", err)
	}
	if _, err := DecryptCredentials(blob, "wrong"); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestLoadCredentialsDirect(t *testing.T) {
	got, err := LoadCredentials(CredentialsConfig{Key: "k", Secret: "s", Passphrase: "p"})
	if err != nil {
		t.Fatalf("LoadCredentials: %v", err)
	}
	if got.Key != "k" || got.Secret != "s" || got.Passphrase != "p" {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadCredentialsNoSource(t *testing.T) {
	if _, err := LoadCredentials(CredentialsConfig{}); err == nil {
		t.Fatal("expected error when no source configured")
	}
}

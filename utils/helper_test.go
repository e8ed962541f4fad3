package utils

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateOtpCode_SixDigits(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateOtpCode()
		if err != nil {
			t.Fatalf("GenerateOtpCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("code %q is not 6 characters", code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("code %q contains a non-digit", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes do not vary")
	}
}

func TestGeneratePassword_ContainsAllClasses(t *testing.T) {
	for i := 0; i < 20; i++ {
		pw, err := GeneratePassword(12)
		if err != nil {
			t.Fatalf("GeneratePassword failed: %v", err)
		}
		if len(pw) != 12 {
			t.Fatalf("password length %d, want 12", len(pw))
		}
		if !strings.ContainsAny(pw, passwordLetters) {
			t.Fatalf("password %q has no letter", pw)
		}
		if !strings.ContainsAny(pw, passwordDigits) {
			t.Fatalf("password %q has no digit", pw)
		}
		if !strings.ContainsAny(pw, passwordSymbols) {
			t.Fatalf("password %q has no symbol", pw)
		}
	}
}

func TestGeneratePassword_ShortLengthRaisedToMinimum(t *testing.T) {
	pw, err := GeneratePassword(4)
	if err != nil {
		t.Fatalf("GeneratePassword failed: %v", err)
	}
	if len(pw) != 12 {
		t.Fatalf("password length %d, want the 12 minimum", len(pw))
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "jane.doe+tag@example.com"}
	invalid := []string{"", "no-at-sign", "a@b", "a b@c.com"}
	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

func TestHashAndCompareSecret(t *testing.T) {
	hash, err := HashSecret("123456")
	if err != nil {
		t.Fatalf("HashSecret failed: %v", err)
	}
	if string(hash) == "123456" {
		t.Fatal("secret stored in the clear")
	}
	if err := CompareSecret(string(hash), "123456"); err != nil {
		t.Fatalf("CompareSecret rejected the right secret: %v", err)
	}
	if err := CompareSecret(string(hash), "654321"); err == nil {
		t.Fatal("CompareSecret accepted the wrong secret")
	}
}

func TestJwtGenerateAndValidate(t *testing.T) {
	token, err := JwtGenerate("test-secret", 17, "jane@example.com", time.Hour)
	if err != nil {
		t.Fatalf("JwtGenerate failed: %v", err)
	}

	parsed, err := JwtValidate("test-secret", token)
	if err != nil || !parsed.Valid {
		t.Fatalf("JwtValidate failed: %v", err)
	}
	claims, ok := parsed.Claims.(*JwtCustomClaim)
	if !ok {
		t.Fatal("unexpected claims type")
	}
	if claims.ID != 17 || claims.Email != "jane@example.com" {
		t.Fatalf("claims %+v", claims)
	}

	if _, err := JwtValidate("other-secret", token); err == nil {
		t.Fatal("token validated with the wrong secret")
	}
}

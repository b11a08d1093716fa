package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// fastPasswords uses bcrypt.MinCost (4) so each hash takes milliseconds.
func fastPasswords() *PasswordService {
	return NewPasswordService(bcrypt.MinCost)
}

func TestNewPasswordService_CostFallback(t *testing.T) {
	for _, cost := range []int{0, 3, 32} {
		if got := NewPasswordService(cost).cost; got != DefaultCost {
			t.Errorf("NewPasswordService(%d).cost = %d, want %d", cost, got, DefaultCost)
		}
	}
	if got := NewPasswordService(12).cost; got != 12 {
		t.Errorf("NewPasswordService(12).cost = %d, want 12", got)
	}
}

// =========================================================================
// Hash
// =========================================================================

func TestHash_StoresSaltedBcrypt(t *testing.T) {
	ps := fastPasswords()

	first, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	second, err := ps.Hash("hunter22")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if !strings.HasPrefix(first, "$2") {
		t.Errorf("Hash() = %q, want a bcrypt hash", first)
	}
	if first == "hunter22" {
		t.Error("Hash() returned the plaintext")
	}
	// A random salt per call means equal passwords never share a hash.
	if first == second {
		t.Error("two hashes of the same password are identical")
	}
	if cost, _ := bcrypt.Cost([]byte(first)); cost != bcrypt.MinCost {
		t.Errorf("hash cost = %d, want %d", cost, bcrypt.MinCost)
	}
}

func TestHash_ByteLimit(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "72 ascii bytes", password: strings.Repeat("a", 72)},
		{name: "73 ascii bytes", password: strings.Repeat("a", 73), wantErr: true},
		// 25 runes, 75 bytes: under a rune limit, over bcrypt's byte limit.
		{name: "multi-byte over limit", password: strings.Repeat("密", 25), wantErr: true},
		{name: "multi-byte at limit", password: strings.Repeat("密", 24)},
	}

	ps := fastPasswords()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ps.Hash(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("Hash() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// =========================================================================
// Verify
// =========================================================================

func TestVerify(t *testing.T) {
	ps := fastPasswords()
	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name         string
		hash         string
		password     string
		wantErr      bool
		wantMismatch bool
	}{
		{name: "correct password", hash: hash, password: "correct-horse-battery-staple"},
		{name: "wrong password", hash: hash, password: "Correct-horse-battery-staple", wantErr: true, wantMismatch: true},
		{name: "empty password", hash: hash, password: "", wantErr: true, wantMismatch: true},
		// A corrupt hash must not look like a wrong password.
		{name: "garbage hash", hash: "not-a-bcrypt-hash", password: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrPasswordMismatch); got != tt.wantMismatch {
				t.Errorf("errors.Is(err, ErrPasswordMismatch) = %v, want %v", got, tt.wantMismatch)
			}
		})
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := fastPasswords()

	for _, password := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  padded  "} {
		t.Run(password, func(t *testing.T) {
			hash, err := ps.Hash(password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", password, err)
			}
			if err := ps.Verify(hash, password); err != nil {
				t.Errorf("Verify() failed for %q: %v", password, err)
			}
		})
	}
}

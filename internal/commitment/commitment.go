// Package commitment implements the hiding, binding move commitment used by
// both players: keccak256(uint8(move) || salt), the tightly packed encoding
// that EVM clients produce with solidityPackedKeccak256(["uint8","bytes32"]).
package commitment

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/sha3"

	"onchainrps/internal/rps"
)

const (
	HashSize = 32
	SaltSize = 32
)

// Hash is a published commitment.
type Hash [HashSize]byte

// Salt is the secret blinding value disclosed at reveal time.
type Salt [SaltSize]byte

func (h Hash) IsZero() bool { return h == Hash{} }

func (h Hash) String() string { return bytesToHex(h[:]) }

func (h Hash) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

func (h *Hash) UnmarshalText(b []byte) error {
	v, err := decodeHex32(string(b))
	if err != nil {
		return fmt.Errorf("commitment hash: %w", err)
	}
	*h = v
	return nil
}

// ParseHash decodes a 0x-prefixed (or bare) 64 character hex string.
func ParseHash(s string) (Hash, error) {
	var h Hash
	err := h.UnmarshalText([]byte(s))
	return h, err
}

func (s Salt) String() string { return bytesToHex(s[:]) }

func (s Salt) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Salt) UnmarshalText(b []byte) error {
	v, err := decodeHex32(string(b))
	if err != nil {
		return fmt.Errorf("salt: %w", err)
	}
	*s = v
	return nil
}

func keccak256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Commit binds move to salt.
func Commit(move rps.Move, salt Salt) Hash {
	return Hash(keccak256([]byte{byte(move)}, salt[:]))
}

// Verify reports whether (move, salt) opens h. Out-of-range moves never verify.
func Verify(move rps.Move, salt Salt, h Hash) bool {
	if !move.Valid() {
		return false
	}
	got := Commit(move, salt)
	return subtle.ConstantTimeCompare(got[:], h[:]) == 1
}

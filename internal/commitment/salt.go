package commitment

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// NewSalt returns a fresh uniformly random salt.
func NewSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return Salt{}, fmt.Errorf("read random salt: %w", err)
	}
	return s, nil
}

// SaltFromInput turns user input into a salt the way the web client does:
//   - empty input yields a fresh random salt;
//   - 0x-prefixed hex of at most 32 bytes is left-padded with zeros;
//   - any other text is hashed with keccak256.
func SaltFromInput(in string) (Salt, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return NewSalt()
	}
	if strings.HasPrefix(in, "0x") || strings.HasPrefix(in, "0X") {
		b, err := hexToBytes(in)
		if err != nil {
			return Salt{}, err
		}
		if len(b) > SaltSize {
			return Salt{}, fmt.Errorf("salt longer than %d bytes", SaltSize)
		}
		var s Salt
		copy(s[SaltSize-len(b):], b)
		return s, nil
	}
	return Salt(keccak256([]byte(in))), nil
}

package state

import "encoding/binary"

var (
	// HeightKey stores the last committed block height as big-endian i64.
	HeightKey = []byte{0x00}

	// NextGameIDKey stores the next game id as big-endian u64.
	NextGameIDKey = []byte{0x01}

	// GameKeyPrefix stores Game by id: GameKeyPrefix || u64be(gameID).
	GameKeyPrefix = []byte{0x02}

	// EscrowKeyPrefix stores Escrow by game id: EscrowKeyPrefix || u64be(gameID).
	EscrowKeyPrefix = []byte{0x03}

	// AccountKeyPrefix stores balances: AccountKeyPrefix || addr.
	AccountKeyPrefix = []byte{0x04}

	// AccountPubKeyPrefix stores ed25519 pubkeys: AccountPubKeyPrefix || addr.
	AccountPubKeyPrefix = []byte{0x05}

	// NonceKeyPrefix stores the last accepted tx nonce: NonceKeyPrefix || signer.
	NonceKeyPrefix = []byte{0x06}
)

// FirstGameID is the id assigned to the first game ever created.
const FirstGameID uint64 = 1

func u64be(x uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, x)
	return b
}

func idKey(prefix []byte, id uint64) []byte {
	bz := make([]byte, 1+8)
	bz[0] = prefix[0]
	binary.BigEndian.PutUint64(bz[1:], id)
	return bz
}

func GameKey(gameID uint64) []byte { return idKey(GameKeyPrefix, gameID) }

func EscrowKey(gameID uint64) []byte { return idKey(EscrowKeyPrefix, gameID) }

func strKey(prefix []byte, s string) []byte {
	return append([]byte{prefix[0]}, s...)
}

func AccountKey(addr string) []byte { return strKey(AccountKeyPrefix, addr) }

func AccountPubKeyKey(addr string) []byte { return strKey(AccountPubKeyPrefix, addr) }

func NonceKey(signer string) []byte { return strKey(NonceKeyPrefix, signer) }

// prefixEnd returns the exclusive upper bound for iterating prefix.
func prefixEnd(prefix []byte) []byte {
	if len(prefix) == 0 {
		return nil
	}
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

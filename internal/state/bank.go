package state

import (
	"bytes"

	"onchainrps/internal/types"
)

// ---- Bank ----

func (tx *Txn) Balance(addr string) (uint64, error) {
	bal, _, err := tx.getU64(AccountKey(addr))
	return bal, err
}

func (tx *Txn) Credit(addr string, amount uint64) error {
	if addr == "" {
		return types.ErrInvalidRequest.Wrap("credit: missing account")
	}
	bal, err := tx.Balance(addr)
	if err != nil {
		return err
	}
	if bal > ^uint64(0)-amount {
		return types.ErrOverflow.Wrapf("balance overflow: have=%d add=%d", bal, amount)
	}
	tx.setU64(AccountKey(addr), bal+amount)
	return nil
}

func (tx *Txn) Debit(addr string, amount uint64) error {
	bal, err := tx.Balance(addr)
	if err != nil {
		return err
	}
	if bal < amount {
		return types.ErrInsufficientFunds.Wrapf("%s: have=%d need=%d", addr, bal, amount)
	}
	tx.setU64(AccountKey(addr), bal-amount)
	return nil
}

// ---- Auth ----

func (tx *Txn) AccountPubKey(addr string) ([]byte, error) {
	return tx.get(AccountPubKeyKey(addr))
}

// SetAccountPubKey binds addr to pub. Re-registering the same key is a no-op;
// a different key is refused.
func (tx *Txn) SetAccountPubKey(addr string, pub []byte) (existing bool, err error) {
	cur, err := tx.AccountPubKey(addr)
	if err != nil {
		return false, err
	}
	if cur != nil {
		if !bytes.Equal(cur, pub) {
			return true, types.ErrUnauthorized.Wrapf("account %q already registered with a different pubKey", addr)
		}
		return true, nil
	}
	tx.set(AccountPubKeyKey(addr), append([]byte(nil), pub...))
	return false, nil
}

// NonceMax returns the last accepted nonce for signer.
func (tx *Txn) NonceMax(signer string) (uint64, bool, error) {
	return tx.getU64(NonceKey(signer))
}

func (tx *Txn) SetNonceMax(signer string, nonce uint64) {
	tx.setU64(NonceKey(signer), nonce)
}

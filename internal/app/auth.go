package app

import (
	"crypto/ed25519"
	"crypto/sha256"
	"strconv"

	"onchainrps/internal/codec"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

const txAuthDomainV0 = "rps/tx/v0"

func txAuthSignBytesV0(typ string, value []byte, nonce string, signer string) []byte {
	// signBytes = DOMAIN || 0x00 || type || 0x00 || nonce || 0x00 || signer || 0x00 || sha256(value)
	sum := sha256.Sum256(value)
	out := make([]byte, 0, len(txAuthDomainV0)+1+len(typ)+1+len(nonce)+1+len(signer)+1+sha256.Size)
	out = append(out, []byte(txAuthDomainV0)...)
	out = append(out, 0)
	out = append(out, []byte(typ)...)
	out = append(out, 0)
	out = append(out, []byte(nonce)...)
	out = append(out, 0)
	out = append(out, []byte(signer)...)
	out = append(out, 0)
	out = append(out, sum[:]...)
	return out
}

func requireSignedEnvelope(env codec.TxEnvelope) error {
	if env.Nonce == "" {
		return types.ErrUnauthorized.Wrap("missing tx.nonce")
	}
	if _, err := parseNonce(env.Nonce); err != nil {
		return err
	}
	if env.Signer == "" {
		return types.ErrUnauthorized.Wrap("missing tx.signer")
	}
	if len(env.Sig) == 0 {
		return types.ErrUnauthorized.Wrap("missing tx.sig")
	}
	if len(env.Sig) != ed25519.SignatureSize {
		return types.ErrUnauthorized.Wrapf("invalid tx.sig length: got %d want %d", len(env.Sig), ed25519.SignatureSize)
	}
	return nil
}

func parseNonce(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, types.ErrUnauthorized.Wrapf("invalid tx.nonce %q", s)
	}
	return n, nil
}

func verifyEnvelopeSig(pub []byte, env codec.TxEnvelope) error {
	if len(pub) != ed25519.PublicKeySize {
		return types.ErrUnauthorized.Wrapf("account %q missing pubKey (auth/register_account required)", env.Signer)
	}
	msg := txAuthSignBytesV0(env.Type, env.Value, env.Nonce, env.Signer)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, env.Sig) {
		return types.ErrUnauthorized.Wrap("invalid signature")
	}
	return nil
}

func requireRegisterAccountAuth(env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) error {
	if msg.Account == "" {
		return types.ErrInvalidRequest.Wrap("missing account")
	}
	if len(msg.PubKey) != ed25519.PublicKeySize {
		return types.ErrInvalidRequest.Wrapf("pubKey must be %d bytes", ed25519.PublicKeySize)
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != msg.Account {
		return types.ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, msg.Account)
	}
	return verifyEnvelopeSig(msg.PubKey, env)
}

// requireAccountAuth checks that env is signed by account's registered key.
func requireAccountAuth(st *state.Store, env codec.TxEnvelope, account string) error {
	if account == "" {
		return types.ErrInvalidRequest.Wrap("missing account")
	}
	if err := requireSignedEnvelope(env); err != nil {
		return err
	}
	if env.Signer != account {
		return types.ErrUnauthorized.Wrapf("tx signer mismatch: signer=%q want=%q", env.Signer, account)
	}
	pub, err := st.AccountPubKey(account)
	if err != nil {
		return err
	}
	return verifyEnvelopeSig(pub, env)
}

// consumeNonce records env.Nonce as the signer's latest. Nonces must strictly
// increase per signer; the nonce stays consumed even if the message it
// authorized fails afterwards.
func consumeNonce(st *state.Store, env codec.TxEnvelope) error {
	n, err := parseNonce(env.Nonce)
	if err != nil {
		return err
	}
	return st.Update(func(tx *state.Txn) error {
		last, ok, err := tx.NonceMax(env.Signer)
		if err != nil {
			return err
		}
		if ok && n <= last {
			return types.ErrUnauthorized.Wrapf("replayed tx.nonce: signer=%q nonce=%d last=%d", env.Signer, n, last)
		}
		tx.SetNonceMax(env.Signer, n)
		return nil
	})
}

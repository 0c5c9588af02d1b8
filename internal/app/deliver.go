package app

import (
	"encoding/json"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/codec"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

func knownTxType(typ string) bool {
	switch typ {
	case codec.TypeBankMint, codec.TypeBankSend, codec.TypeAuthRegisterAccount,
		codec.TypeCreateGame, codec.TypeJoinGame, codec.TypeReveal, codec.TypeClaimTimeout:
		return true
	default:
		return false
	}
}

func decodeValue(env codec.TxEnvelope, v any) error {
	if err := json.Unmarshal(env.Value, v); err != nil {
		return types.ErrInvalidRequest.Wrapf("bad %s value: %v", env.Type, err)
	}
	return nil
}

// deliverTx applies one transaction at block time nowUnix. Authentication
// and nonce consumption happen before the message runs, in their own store
// transition.
func (a *RPSApp) deliverTx(txBytes []byte, height int64, nowUnix int64) *abci.ExecTxResult {
	env, err := codec.DecodeTxEnvelope(txBytes)
	if err != nil {
		return errResult(types.ErrInvalidRequest.Wrap(err.Error()))
	}
	res := a.route(env, nowUnix)
	if res.Code != 0 {
		a.logger.Debug("tx failed", "height", height, "type", env.Type, "signer", env.Signer, "code", res.Code, "log", res.Log)
	}
	return res
}

// authorize verifies env for account and consumes its nonce.
func (a *RPSApp) authorize(env codec.TxEnvelope, account string) error {
	if err := requireAccountAuth(a.st, env, account); err != nil {
		return err
	}
	return consumeNonce(a.st, env)
}

func (a *RPSApp) route(env codec.TxEnvelope, nowUnix int64) *abci.ExecTxResult {
	switch env.Type {
	case codec.TypeBankMint:
		var msg codec.BankMintTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		return a.bankMint(msg)

	case codec.TypeBankSend:
		var msg codec.BankSendTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		if err := a.authorize(env, msg.From); err != nil {
			return errResult(err)
		}
		return a.bankSend(msg)

	case codec.TypeAuthRegisterAccount:
		var msg codec.AuthRegisterAccountTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		if err := requireRegisterAccountAuth(env, msg); err != nil {
			return errResult(err)
		}
		return a.registerAccount(env, msg)

	case codec.TypeCreateGame:
		var msg codec.CreateGameTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		if err := a.authorize(env, msg.Player1); err != nil {
			return errResult(err)
		}
		id, events, err := a.eng.CreateGame(msg, nowUnix)
		if err != nil {
			return errResult(err)
		}
		res := okResult(events)
		res.Data = []byte(fmt.Sprintf("%d", id))
		return res

	case codec.TypeJoinGame:
		var msg codec.JoinGameTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		if err := a.authorize(env, msg.Player); err != nil {
			return errResult(err)
		}
		events, err := a.eng.JoinAndCommit(msg, nowUnix)
		if err != nil {
			return errResult(err)
		}
		return okResult(events)

	case codec.TypeReveal:
		var msg codec.RevealTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		if err := a.authorize(env, msg.Player); err != nil {
			return errResult(err)
		}
		events, err := a.eng.Reveal(msg, nowUnix)
		if err != nil {
			return errResult(err)
		}
		return okResult(events)

	case codec.TypeClaimTimeout:
		var msg codec.ClaimTimeoutTx
		if err := decodeValue(env, &msg); err != nil {
			return errResult(err)
		}
		// Anyone may claim. A signed claim attributes the caller.
		if env.Signer != "" || len(env.Sig) != 0 {
			if msg.Caller == "" {
				msg.Caller = env.Signer
			}
			if err := a.authorize(env, msg.Caller); err != nil {
				return errResult(err)
			}
		}
		events, err := a.eng.ClaimTimeout(msg, nowUnix)
		if err != nil {
			return errResult(err)
		}
		return okResult(events)

	default:
		return errResult(types.ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type))
	}
}

// ---- Bank ----

func (a *RPSApp) bankMint(msg codec.BankMintTx) *abci.ExecTxResult {
	if msg.To == "" || msg.Amount == 0 {
		return errResult(types.ErrInvalidRequest.Wrap("missing to/amount"))
	}
	if err := a.st.Update(func(tx *state.Txn) error {
		return tx.Credit(msg.To, msg.Amount)
	}); err != nil {
		return errResult(err)
	}
	return okResult([]abci.Event{types.NewEvent(types.EventTypeBankMinted, map[string]string{
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	})})
}

func (a *RPSApp) bankSend(msg codec.BankSendTx) *abci.ExecTxResult {
	if msg.From == "" || msg.To == "" || msg.Amount == 0 {
		return errResult(types.ErrInvalidRequest.Wrap("missing from/to/amount"))
	}
	if err := a.st.Update(func(tx *state.Txn) error {
		if err := tx.Debit(msg.From, msg.Amount); err != nil {
			return err
		}
		return tx.Credit(msg.To, msg.Amount)
	}); err != nil {
		return errResult(err)
	}
	return okResult([]abci.Event{types.NewEvent(types.EventTypeBankSent, map[string]string{
		"from":   msg.From,
		"to":     msg.To,
		"amount": fmt.Sprintf("%d", msg.Amount),
	})})
}

// registerAccount binds the key and consumes the nonce in one transition, so a
// registration signed by a foreign key cannot burn the account's nonces.
func (a *RPSApp) registerAccount(env codec.TxEnvelope, msg codec.AuthRegisterAccountTx) *abci.ExecTxResult {
	n, err := parseNonce(env.Nonce)
	if err != nil {
		return errResult(err)
	}
	var existing bool
	err = a.st.Update(func(tx *state.Txn) error {
		last, ok, err := tx.NonceMax(env.Signer)
		if err != nil {
			return err
		}
		if ok && n <= last {
			return types.ErrUnauthorized.Wrapf("replayed tx.nonce: signer=%q nonce=%d last=%d", env.Signer, n, last)
		}
		if existing, err = tx.SetAccountPubKey(msg.Account, msg.PubKey); err != nil {
			return err
		}
		tx.SetNonceMax(env.Signer, n)
		return nil
	})
	if err != nil {
		return errResult(err)
	}
	return okResult([]abci.Event{types.NewEvent(types.EventTypeAccountRegistered, map[string]string{
		"account":  msg.Account,
		"existing": fmt.Sprintf("%t", existing),
	})})
}

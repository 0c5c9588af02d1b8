package codec

import (
	"encoding/json"
	"fmt"

	"onchainrps/internal/commitment"
	"onchainrps/internal/rps"
)

// TxEnvelope is the v0 transaction container.
//
// CometBFT transactions are opaque bytes; rpsd uses JSON-encoded txs.
type TxEnvelope struct {
	// Basic routing.
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`

	// Tx auth:
	// - Nonce: decimal u64, must strictly increase per signer.
	// - Signer: account the tx acts for.
	// - Sig: Ed25519 signature over (type, nonce, signer, sha256(value)).
	Nonce  string `json:"nonce,omitempty"`
	Signer string `json:"signer,omitempty"`
	Sig    []byte `json:"sig,omitempty"`
}

func DecodeTxEnvelope(txBytes []byte) (TxEnvelope, error) {
	var env TxEnvelope
	if err := json.Unmarshal(txBytes, &env); err != nil {
		return TxEnvelope{}, fmt.Errorf("invalid tx json: %w", err)
	}
	if env.Type == "" {
		return TxEnvelope{}, fmt.Errorf("missing tx.type")
	}
	return env, nil
}

// Tx types.
const (
	TypeBankMint            = "bank/mint"
	TypeBankSend            = "bank/send"
	TypeAuthRegisterAccount = "auth/register_account"
	TypeCreateGame          = "rps/create_game"
	TypeJoinGame            = "rps/join"
	TypeReveal              = "rps/reveal"
	TypeClaimTimeout        = "rps/claim_timeout"
)

// ---- Bank ----

type BankMintTx struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BankSendTx struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// ---- Auth ----

type AuthRegisterAccountTx struct {
	Account string `json:"account"`
	PubKey  []byte `json:"pubKey"` // base64 (32 bytes)
}

// ---- RPS ----

// CreateGameTx opens a game against a chosen opponent. Deposit is the amount
// the creator attaches and must equal Stake.
type CreateGameTx struct {
	Player1    string          `json:"player1"`
	Opponent   string          `json:"opponent"`
	Stake      uint64          `json:"stake"`
	Deposit    uint64          `json:"deposit"`
	Commitment commitment.Hash `json:"commitment"` // 0x-hex keccak256(move || salt)
}

type JoinGameTx struct {
	GameID     uint64          `json:"gameId"`
	Player     string          `json:"player"`
	Deposit    uint64          `json:"deposit"`
	Commitment commitment.Hash `json:"commitment"`
}

type RevealTx struct {
	GameID uint64          `json:"gameId"`
	Player string          `json:"player"`
	Move   rps.Move        `json:"move"` // 0=rock 1=paper 2=scissors
	Salt   commitment.Salt `json:"salt"`
}

// ClaimTimeoutTx may be sent by anyone; Caller is informational.
type ClaimTimeoutTx struct {
	GameID uint64 `json:"gameId"`
	Caller string `json:"caller,omitempty"`
}

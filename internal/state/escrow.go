package state

import (
	"encoding/json"
	"fmt"

	"onchainrps/internal/types"
)

// Escrow is the per-game ledger entry holding the players' stakes until the
// game's single resolving transition releases them.
type Escrow struct {
	GameID   uint64    `json:"gameId"`
	Deposits []Deposit `json:"deposits"`
	Balance  uint64    `json:"balance"`
	Payouts  []Share   `json:"payouts,omitempty"`
	Released bool      `json:"released"`
}

type Deposit struct {
	Player string `json:"player"`
	Amount uint64 `json:"amount"`
}

// Share is one recipient's part of a payout.
type Share struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

func (e *Escrow) Deposited() uint64 {
	var sum uint64
	for _, d := range e.Deposits {
		sum += d.Amount
	}
	return sum
}

func (e *Escrow) PaidOut() uint64 {
	var sum uint64
	for _, s := range e.Payouts {
		sum += s.Amount
	}
	return sum
}

func (tx *Txn) GetEscrow(gameID uint64) (*Escrow, error) {
	bz, err := tx.get(EscrowKey(gameID))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return &Escrow{GameID: gameID}, nil
	}
	var e Escrow
	if err := json.Unmarshal(bz, &e); err != nil {
		return nil, fmt.Errorf("decode escrow %d: %w", gameID, err)
	}
	return &e, nil
}

// Deposit moves exactly g.Stake from player's balance into the game's escrow.
func (tx *Txn) Deposit(g *Game, player string, amount uint64) (*Escrow, error) {
	if g == nil {
		return nil, fmt.Errorf("game is nil")
	}
	if amount == 0 || amount != g.Stake {
		return nil, types.ErrStakeMismatch.Wrapf("game %d: deposit=%d stake=%d", g.ID, amount, g.Stake)
	}
	e, err := tx.GetEscrow(g.ID)
	if err != nil {
		return nil, err
	}
	if e.Released {
		return nil, types.ErrEscrowViolation.Wrapf("game %d: deposit into released escrow", g.ID)
	}
	if e.Balance > ^uint64(0)-amount {
		return nil, types.ErrOverflow.Wrapf("game %d: escrow balance overflow", g.ID)
	}
	if err := tx.Debit(player, amount); err != nil {
		return nil, err
	}
	e.Deposits = append(e.Deposits, Deposit{Player: player, Amount: amount})
	e.Balance += amount
	if err := tx.setJSON(EscrowKey(g.ID), e); err != nil {
		return nil, err
	}
	return e, nil
}

// Payout releases the full escrowed balance of gameID split per shares and
// zeroes it. Shares must add up to the balance exactly, and an escrow pays
// out at most once.
func (tx *Txn) Payout(gameID uint64, shares []Share) (*Escrow, error) {
	e, err := tx.GetEscrow(gameID)
	if err != nil {
		return nil, err
	}
	if e.Released {
		return nil, types.ErrEscrowViolation.Wrapf("game %d: escrow already released", gameID)
	}

	var sum uint64
	for _, s := range shares {
		if s.Recipient == "" {
			return nil, types.ErrEscrowViolation.Wrapf("game %d: share without recipient", gameID)
		}
		if sum > ^uint64(0)-s.Amount {
			return nil, types.ErrOverflow.Wrapf("game %d: payout sum overflow", gameID)
		}
		sum += s.Amount
	}
	if sum != e.Balance {
		return nil, types.ErrEscrowViolation.Wrapf("game %d: payout=%d escrowed=%d", gameID, sum, e.Balance)
	}

	for _, s := range shares {
		if s.Amount == 0 {
			continue
		}
		if err := tx.Credit(s.Recipient, s.Amount); err != nil {
			return nil, err
		}
	}
	e.Payouts = append([]Share(nil), shares...)
	e.Balance = 0
	e.Released = true
	if err := tx.setJSON(EscrowKey(gameID), e); err != nil {
		return nil, err
	}
	return e, nil
}

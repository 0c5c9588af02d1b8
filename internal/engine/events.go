package engine

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

func depositEvent(e *state.Escrow, player string, amount uint64) abci.Event {
	return types.NewEvent(types.EventTypeEscrowDeposited, map[string]string{
		"gameId":  fmt.Sprintf("%d", e.GameID),
		"player":  player,
		"amount":  fmt.Sprintf("%d", amount),
		"balance": fmt.Sprintf("%d", e.Balance),
	})
}

func payoutEvents(gameID uint64, shares []state.Share) []abci.Event {
	events := make([]abci.Event, 0, len(shares))
	for _, s := range shares {
		events = append(events, types.NewEvent(types.EventTypeEscrowPaidOut, map[string]string{
			"gameId":    fmt.Sprintf("%d", gameID),
			"recipient": s.Recipient,
			"amount":    fmt.Sprintf("%d", s.Amount),
		}))
	}
	return events
}

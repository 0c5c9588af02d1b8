package engine

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/rps"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

func payoffResolution(o rps.Outcome) state.Resolution {
	switch o {
	case rps.Player1Wins:
		return state.ResolutionPlayer1Won
	case rps.Player2Wins:
		return state.ResolutionPlayer2Won
	default:
		return state.ResolutionTie
	}
}

// finish is the only place a game enters StageFinished.
func finish(g *state.Game, r state.Resolution, nowUnix int64) error {
	if err := g.Advance(state.StageFinished); err != nil {
		return types.ErrWrongStage.Wrapf("game %d: %v", g.ID, err)
	}
	g.Resolution = r
	g.FinishedAt = nowUnix
	return nil
}

// payoutShares splits the escrow according to how the game was resolved.
func payoutShares(g *state.Game) ([]state.Share, error) {
	pot, err := mulUint64Checked(g.Stake, 2, "pot")
	if err != nil {
		return nil, err
	}
	switch g.Resolution {
	case state.ResolutionPlayer1Won, state.ResolutionPlayer1ByForfeit:
		return []state.Share{{Recipient: g.Player1, Amount: pot}}, nil
	case state.ResolutionPlayer2Won, state.ResolutionPlayer2ByForfeit:
		return []state.Share{{Recipient: g.Player2, Amount: pot}}, nil
	case state.ResolutionTie, state.ResolutionNoRevealRefund:
		return []state.Share{
			{Recipient: g.Player1, Amount: g.Stake},
			{Recipient: g.Player2, Amount: g.Stake},
		}, nil
	case state.ResolutionUnjoinedRefund:
		return []state.Share{{Recipient: g.Player1, Amount: g.Stake}}, nil
	default:
		return nil, types.ErrEscrowViolation.Wrapf("game %d: no payout rule for resolution %q", g.ID, g.Resolution)
	}
}

// settle releases a finished game's escrow. It runs in the same transition
// that moved the game to StageFinished, which can happen only once per game.
func settle(tx *state.Txn, g *state.Game) ([]abci.Event, error) {
	if g.Stage != state.StageFinished {
		return nil, types.ErrWrongStage.Wrapf("game %d: settle while %s", g.ID, g.Stage)
	}
	shares, err := payoutShares(g)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Payout(g.ID, shares); err != nil {
		return nil, err
	}

	attrs := map[string]string{
		"gameId":     fmt.Sprintf("%d", g.ID),
		"resolution": string(g.Resolution),
		"player1":    g.Player1,
		"player2":    g.Player2,
	}
	if g.Move1 != nil {
		attrs["move1"] = g.Move1.String()
	}
	if g.Move2 != nil {
		attrs["move2"] = g.Move2.String()
	}
	events := []abci.Event{types.NewEvent(types.EventTypeGameFinished, attrs)}
	return append(events, payoutEvents(g.ID, shares)...), nil
}

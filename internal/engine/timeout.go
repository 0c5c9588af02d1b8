package engine

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/codec"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

// timeoutResolution decides who gets the escrow when the deadline of stage
// expires:
//   - nobody joined: the creator is refunded;
//   - nobody revealed: both are refunded;
//   - one player revealed: the revealer takes the pot.
func timeoutResolution(g *state.Game) (state.Resolution, error) {
	switch g.Stage {
	case state.StageAwaitingOpponent:
		return state.ResolutionUnjoinedRefund, nil
	case state.StageAwaitingReveal:
		return state.ResolutionNoRevealRefund, nil
	case state.StageOneRevealed:
		switch {
		case g.Move1 != nil && g.Move2 == nil:
			return state.ResolutionPlayer1ByForfeit, nil
		case g.Move2 != nil && g.Move1 == nil:
			return state.ResolutionPlayer2ByForfeit, nil
		default:
			return "", fmt.Errorf("game %d: oneRevealed with move1=%v move2=%v", g.ID, g.Move1 != nil, g.Move2 != nil)
		}
	default:
		return "", types.ErrWrongStage.Wrapf("game %d is %s", g.ID, g.Stage)
	}
}

// ClaimTimeout force-resolves a game whose deadline has passed. Anyone may
// call it.
func (e *Engine) ClaimTimeout(msg codec.ClaimTimeoutTx, nowUnix int64) ([]abci.Event, error) {
	var (
		events  []abci.Event
		expired state.Stage
		game    *state.Game
	)
	err := e.store.Update(func(tx *state.Txn) error {
		g, err := tx.MutateGame(msg.GameID, func(g *state.Game) error {
			if g.Stage == state.StageFinished {
				return types.ErrWrongStage.Wrapf("game %d is already finished", g.ID)
			}
			if nowUnix <= g.Deadline {
				return types.ErrDeadlineNotReached.Wrapf("game %d: now=%d deadline=%d", g.ID, nowUnix, g.Deadline)
			}
			r, err := timeoutResolution(g)
			if err != nil {
				return err
			}
			expired = g.Stage
			return finish(g, r, nowUnix)
		})
		if err != nil {
			return err
		}

		events = append(events, types.NewEvent(types.EventTypeTimeoutClaimed, map[string]string{
			"gameId":       fmt.Sprintf("%d", g.ID),
			"caller":       msg.Caller,
			"expiredStage": expired.String(),
			"deadline":     fmt.Sprintf("%d", g.Deadline),
		}))
		settleEvents, err := settle(tx, g)
		if err != nil {
			return err
		}
		events = append(events, settleEvents...)
		game = g
		return nil
	})
	if err != nil {
		e.rejected("claim_timeout", msg.GameID, err)
		return nil, err
	}
	e.logger.Info("timeout claimed", "gameId", game.ID, "expiredStage", expired, "resolution", game.Resolution, "caller", msg.Caller)
	return events, nil
}

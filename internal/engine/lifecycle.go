package engine

import (
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/codec"
	"onchainrps/internal/commitment"
	"onchainrps/internal/rps"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

// CreateGame opens a game for msg.Player1 against msg.Opponent and escrows
// the creator's stake.
func (e *Engine) CreateGame(msg codec.CreateGameTx, nowUnix int64) (uint64, []abci.Event, error) {
	if msg.Player1 == "" {
		return 0, nil, types.ErrInvalidRequest.Wrap("missing player1")
	}
	if msg.Opponent == "" || msg.Opponent == msg.Player1 {
		return 0, nil, types.ErrInvalidOpponent.Wrapf("opponent=%q player1=%q", msg.Opponent, msg.Player1)
	}
	if msg.Stake == 0 {
		return 0, nil, types.ErrInvalidRequest.Wrap("stake must be > 0")
	}
	if msg.Deposit != msg.Stake {
		return 0, nil, types.ErrStakeMismatch.Wrapf("deposit=%d stake=%d", msg.Deposit, msg.Stake)
	}
	if msg.Commitment.IsZero() {
		return 0, nil, types.ErrInvalidRequest.Wrap("missing commitment")
	}
	// Both stakes must fit in one escrow balance.
	if _, err := mulUint64Checked(msg.Stake, 2, "pot"); err != nil {
		return 0, nil, err
	}
	deadline, err := joinDeadline(e.params, nowUnix)
	if err != nil {
		return 0, nil, err
	}

	var (
		id     uint64
		events []abci.Event
	)
	err = e.store.Update(func(tx *state.Txn) error {
		g := &state.Game{
			Player1:   msg.Player1,
			Player2:   msg.Opponent,
			Stake:     msg.Stake,
			Commit1:   msg.Commitment,
			Stage:     state.StageAwaitingOpponent,
			Deadline:  deadline,
			CreatedAt: nowUnix,
		}
		var err error
		if id, err = tx.CreateGame(g); err != nil {
			return err
		}
		esc, err := tx.Deposit(g, msg.Player1, msg.Deposit)
		if err != nil {
			return err
		}
		events = []abci.Event{
			types.NewEvent(types.EventTypeGameCreated, map[string]string{
				"gameId":   fmt.Sprintf("%d", id),
				"player1":  g.Player1,
				"player2":  g.Player2,
				"stake":    fmt.Sprintf("%d", g.Stake),
				"commit1":  g.Commit1.String(),
				"deadline": fmt.Sprintf("%d", g.Deadline),
			}),
			depositEvent(esc, msg.Player1, msg.Deposit),
		}
		return nil
	})
	if err != nil {
		e.rejected("create", 0, err)
		return 0, nil, err
	}
	e.logger.Info("game created", "gameId", id, "player1", msg.Player1, "player2", msg.Opponent, "stake", msg.Stake)
	return id, events, nil
}

// JoinAndCommit records the opponent's commitment and escrows their stake.
func (e *Engine) JoinAndCommit(msg codec.JoinGameTx, nowUnix int64) ([]abci.Event, error) {
	if msg.Player == "" {
		return nil, types.ErrInvalidRequest.Wrap("missing player")
	}
	if msg.Commitment.IsZero() {
		return nil, types.ErrInvalidRequest.Wrap("missing commitment")
	}

	var events []abci.Event
	err := e.store.Update(func(tx *state.Txn) error {
		g, err := tx.MutateGame(msg.GameID, func(g *state.Game) error {
			if g.Stage != state.StageAwaitingOpponent {
				return types.ErrWrongStage.Wrapf("game %d is %s", g.ID, g.Stage)
			}
			if msg.Player != g.Player2 {
				return types.ErrNotParticipant.Wrapf("game %d: %q is not the invited opponent", g.ID, msg.Player)
			}
			if msg.Deposit != g.Stake {
				return types.ErrStakeMismatch.Wrapf("game %d: deposit=%d stake=%d", g.ID, msg.Deposit, g.Stake)
			}
			if nowUnix > g.Deadline {
				return types.ErrDeadlinePassed.Wrapf("game %d: now=%d deadline=%d", g.ID, nowUnix, g.Deadline)
			}
			deadline, err := revealDeadline(e.params, nowUnix)
			if err != nil {
				return err
			}
			c := msg.Commitment
			g.Commit2 = &c
			if err := g.Advance(state.StageAwaitingReveal); err != nil {
				return err
			}
			g.Deadline = deadline
			return nil
		})
		if err != nil {
			return err
		}
		esc, err := tx.Deposit(g, msg.Player, msg.Deposit)
		if err != nil {
			return err
		}
		events = []abci.Event{
			types.NewEvent(types.EventTypeGameJoined, map[string]string{
				"gameId":   fmt.Sprintf("%d", g.ID),
				"player2":  g.Player2,
				"commit2":  msg.Commitment.String(),
				"deadline": fmt.Sprintf("%d", g.Deadline),
			}),
			depositEvent(esc, msg.Player, msg.Deposit),
		}
		return nil
	})
	if err != nil {
		e.rejected("join", msg.GameID, err)
		return nil, err
	}
	e.logger.Info("game joined", "gameId", msg.GameID, "player2", msg.Player)
	return events, nil
}

// Reveal opens the caller's commitment. A reveal that does not match leaves
// the game untouched, so the player can retry until the deadline. The second
// valid reveal settles the game.
func (e *Engine) Reveal(msg codec.RevealTx, nowUnix int64) ([]abci.Event, error) {
	if msg.Player == "" {
		return nil, types.ErrInvalidRequest.Wrap("missing player")
	}
	if !msg.Move.Valid() {
		return nil, types.ErrInvalidMove.Wrapf("move=%d", uint8(msg.Move))
	}

	var (
		events   []abci.Event
		finished *state.Game
	)
	err := e.store.Update(func(tx *state.Txn) error {
		g, err := tx.MutateGame(msg.GameID, func(g *state.Game) error {
			if g.Stage != state.StageAwaitingReveal && g.Stage != state.StageOneRevealed {
				return types.ErrWrongStage.Wrapf("game %d is %s", g.ID, g.Stage)
			}
			seat := g.Seat(msg.Player)
			if seat == 0 {
				return types.ErrNotParticipant.Wrapf("game %d: %q", g.ID, msg.Player)
			}
			if g.Move(seat) != nil {
				return types.ErrAlreadyRevealed.Wrapf("game %d: player%d", g.ID, seat)
			}
			if nowUnix > g.Deadline {
				return types.ErrDeadlinePassed.Wrapf("game %d: now=%d deadline=%d", g.ID, nowUnix, g.Deadline)
			}
			c := g.Commitment(seat)
			if c == nil || !commitment.Verify(msg.Move, msg.Salt, *c) {
				return types.ErrInvalidReveal.Wrapf("game %d: move=%s does not open commit%d", g.ID, msg.Move, seat)
			}
			g.SetMove(seat, msg.Move)

			if g.Move1 == nil || g.Move2 == nil {
				deadline, err := revealDeadline(e.params, nowUnix)
				if err != nil {
					return err
				}
				if err := g.Advance(state.StageOneRevealed); err != nil {
					return err
				}
				g.Deadline = deadline
				return nil
			}
			return finish(g, payoffResolution(rps.Payoff(*g.Move1, *g.Move2)), nowUnix)
		})
		if err != nil {
			return err
		}

		seat := g.Seat(msg.Player)
		events = append(events, types.NewEvent(types.EventTypeMoveRevealed, map[string]string{
			"gameId": fmt.Sprintf("%d", g.ID),
			"player": msg.Player,
			"seat":   fmt.Sprintf("%d", seat),
			"move":   msg.Move.String(),
			"stage":  g.Stage.String(),
		}))
		if g.Stage != state.StageFinished {
			return nil
		}
		settleEvents, err := settle(tx, g)
		if err != nil {
			return err
		}
		events = append(events, settleEvents...)
		finished = g
		return nil
	})
	if err != nil {
		e.rejected("reveal", msg.GameID, err)
		return nil, err
	}
	if finished != nil {
		e.logger.Info("game finished", "gameId", finished.ID, "resolution", finished.Resolution)
	}
	return events, nil
}

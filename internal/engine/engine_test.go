package engine

import (
	"math/rand"
	"testing"
	"time"

	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/stretchr/testify/require"

	"onchainrps/internal/codec"
	"onchainrps/internal/commitment"
	"onchainrps/internal/rps"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

const (
	alice = "alice"
	bob   = "bob"
	carol = "carol"

	t0 int64 = 1_700_000_000
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(state.NewMemStore(), DefaultParams(), log.NewNopLogger())
	require.NoError(t, err)
	fund(t, e, alice, 1_000)
	fund(t, e, bob, 1_000)
	return e
}

func fund(t *testing.T, e *Engine, addr string, amount uint64) {
	t.Helper()
	require.NoError(t, e.store.Update(func(tx *state.Txn) error {
		return tx.Credit(addr, amount)
	}))
}

func balance(t *testing.T, e *Engine, addr string) uint64 {
	t.Helper()
	bal, err := e.store.Balance(addr)
	require.NoError(t, err)
	return bal
}

func saltOf(b byte) commitment.Salt {
	var s commitment.Salt
	for i := range s {
		s[i] = b
	}
	return s
}

func findEvent(events []abci.Event, typ string) *abci.Event {
	for i := range events {
		if events[i].Type == typ {
			return &events[i]
		}
	}
	return nil
}

func attr(ev *abci.Event, key string) string {
	if ev == nil {
		return ""
	}
	for _, a := range ev.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

func createGame(t *testing.T, e *Engine, m rps.Move, salt commitment.Salt, stake uint64, now int64) uint64 {
	t.Helper()
	id, _, err := e.CreateGame(codec.CreateGameTx{
		Player1:    alice,
		Opponent:   bob,
		Stake:      stake,
		Deposit:    stake,
		Commitment: commitment.Commit(m, salt),
	}, now)
	require.NoError(t, err)
	return id
}

func joinGame(t *testing.T, e *Engine, id uint64, m rps.Move, salt commitment.Salt, now int64) {
	t.Helper()
	g, err := e.GetGame(id)
	require.NoError(t, err)
	_, err = e.JoinAndCommit(codec.JoinGameTx{
		GameID:     id,
		Player:     bob,
		Deposit:    g.Stake,
		Commitment: commitment.Commit(m, salt),
	}, now)
	require.NoError(t, err)
}

func reveal(e *Engine, id uint64, player string, m rps.Move, salt commitment.Salt, now int64) ([]abci.Event, error) {
	return e.Reveal(codec.RevealTx{GameID: id, Player: player, Move: m, Salt: salt}, now)
}

func escrowBalance(t *testing.T, e *Engine, id uint64) uint64 {
	t.Helper()
	esc, err := e.store.GetEscrow(id)
	require.NoError(t, err)
	return esc.Balance
}

func TestNew_RejectsBadParams(t *testing.T) {
	_, err := New(state.NewMemStore(), Params{JoinWindow: 0, RevealWindow: time.Hour}, nil)
	require.Error(t, err)

	_, err = New(nil, DefaultParams(), nil)
	require.Error(t, err)
}

func TestFullGame_Player1Wins(t *testing.T) {
	e := newTestEngine(t)
	s1, s2 := saltOf(0xaa), saltOf(0xbb)

	id := createGame(t, e, rps.Rock, s1, 100, t0)
	require.Equal(t, uint64(900), balance(t, e, alice))
	require.Equal(t, uint64(100), escrowBalance(t, e, id))

	joinGame(t, e, id, rps.Scissors, s2, t0+10)
	require.Equal(t, uint64(900), balance(t, e, bob))
	require.Equal(t, uint64(200), escrowBalance(t, e, id))

	g, err := e.GetGame(id)
	require.NoError(t, err)
	require.Equal(t, state.StageAwaitingReveal, g.Stage)
	require.Equal(t, t0+10+3600, g.Deadline)

	_, err = reveal(e, id, alice, rps.Rock, s1, t0+20)
	require.NoError(t, err)
	g, _ = e.GetGame(id)
	require.Equal(t, state.StageOneRevealed, g.Stage)
	require.Equal(t, t0+20+3600, g.Deadline)

	events, err := reveal(e, id, bob, rps.Scissors, s2, t0+30)
	require.NoError(t, err)

	g, _ = e.GetGame(id)
	require.Equal(t, state.StageFinished, g.Stage)
	require.Equal(t, state.ResolutionPlayer1Won, g.Resolution)
	require.Equal(t, t0+30, g.FinishedAt)
	require.Equal(t, uint64(1_100), balance(t, e, alice))
	require.Equal(t, uint64(900), balance(t, e, bob))
	require.Equal(t, uint64(0), escrowBalance(t, e, id))

	fin := findEvent(events, types.EventTypeGameFinished)
	require.NotNil(t, fin)
	require.Equal(t, "player1Won", attr(fin, "resolution"))
	require.Equal(t, "rock", attr(fin, "move1"))
	require.Equal(t, "scissors", attr(fin, "move2"))
	paid := findEvent(events, types.EventTypeEscrowPaidOut)
	require.Equal(t, alice, attr(paid, "recipient"))
	require.Equal(t, "200", attr(paid, "amount"))
}

func TestFullGame_Outcomes(t *testing.T) {
	cases := []struct {
		name       string
		m1, m2     rps.Move
		resolution state.Resolution
		alice, bob uint64
	}{
		{"paper beats rock", rps.Rock, rps.Paper, state.ResolutionPlayer2Won, 950, 1_050},
		{"scissors beats paper", rps.Scissors, rps.Paper, state.ResolutionPlayer1Won, 1_050, 950},
		{"tie refunds both", rps.Paper, rps.Paper, state.ResolutionTie, 1_000, 1_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEngine(t)
			id := createGame(t, e, tc.m1, saltOf(1), 50, t0)
			joinGame(t, e, id, tc.m2, saltOf(2), t0+1)

			// Reveal order does not matter.
			_, err := reveal(e, id, bob, tc.m2, saltOf(2), t0+2)
			require.NoError(t, err)
			_, err = reveal(e, id, alice, tc.m1, saltOf(1), t0+3)
			require.NoError(t, err)

			g, err := e.GetGame(id)
			require.NoError(t, err)
			require.Equal(t, tc.resolution, g.Resolution)
			require.Equal(t, tc.alice, balance(t, e, alice))
			require.Equal(t, tc.bob, balance(t, e, bob))
		})
	}
}

func TestCreateGame_Validation(t *testing.T) {
	e := newTestEngine(t)
	c := commitment.Commit(rps.Rock, saltOf(1))

	cases := []struct {
		name string
		msg  codec.CreateGameTx
		want error
	}{
		{"self opponent", codec.CreateGameTx{Player1: alice, Opponent: alice, Stake: 1, Deposit: 1, Commitment: c}, types.ErrInvalidOpponent},
		{"missing opponent", codec.CreateGameTx{Player1: alice, Stake: 1, Deposit: 1, Commitment: c}, types.ErrInvalidOpponent},
		{"zero stake", codec.CreateGameTx{Player1: alice, Opponent: bob, Commitment: c}, types.ErrInvalidRequest},
		{"deposit below stake", codec.CreateGameTx{Player1: alice, Opponent: bob, Stake: 10, Deposit: 9, Commitment: c}, types.ErrStakeMismatch},
		{"deposit above stake", codec.CreateGameTx{Player1: alice, Opponent: bob, Stake: 10, Deposit: 11, Commitment: c}, types.ErrStakeMismatch},
		{"zero commitment", codec.CreateGameTx{Player1: alice, Opponent: bob, Stake: 10, Deposit: 10}, types.ErrInvalidRequest},
		{"pot overflow", codec.CreateGameTx{Player1: alice, Opponent: bob, Stake: ^uint64(0), Deposit: ^uint64(0), Commitment: c}, types.ErrOverflow},
		{"insufficient funds", codec.CreateGameTx{Player1: alice, Opponent: bob, Stake: 5_000, Deposit: 5_000, Commitment: c}, types.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := e.CreateGame(tc.msg, t0)
			require.ErrorIs(t, err, tc.want)
		})
	}

	// None of the rejected creates left a trace.
	next, err := e.NextGameID()
	require.NoError(t, err)
	require.Equal(t, state.FirstGameID, next)
	require.Equal(t, uint64(1_000), balance(t, e, alice))
}

func TestCreateGame_Events(t *testing.T) {
	e := newTestEngine(t)
	id, events, err := e.CreateGame(codec.CreateGameTx{
		Player1:    alice,
		Opponent:   bob,
		Stake:      7,
		Deposit:    7,
		Commitment: commitment.Commit(rps.Paper, saltOf(3)),
	}, t0)
	require.NoError(t, err)
	require.Equal(t, state.FirstGameID, id)

	created := findEvent(events, types.EventTypeGameCreated)
	require.NotNil(t, created)
	require.Equal(t, "1", attr(created, "gameId"))
	require.Equal(t, bob, attr(created, "player2"))
	require.Equal(t, "7", attr(created, "stake"))

	dep := findEvent(events, types.EventTypeEscrowDeposited)
	require.Equal(t, alice, attr(dep, "player"))
	require.Equal(t, "7", attr(dep, "balance"))
}

func TestJoin_Rejections(t *testing.T) {
	e := newTestEngine(t)
	fund(t, e, carol, 1_000)
	id := createGame(t, e, rps.Rock, saltOf(1), 100, t0)
	c2 := commitment.Commit(rps.Paper, saltOf(2))

	_, err := e.JoinAndCommit(codec.JoinGameTx{GameID: id, Player: carol, Deposit: 100, Commitment: c2}, t0+1)
	require.ErrorIs(t, err, types.ErrNotParticipant)

	_, err = e.JoinAndCommit(codec.JoinGameTx{GameID: id, Player: bob, Deposit: 99, Commitment: c2}, t0+1)
	require.ErrorIs(t, err, types.ErrStakeMismatch)

	_, err = e.JoinAndCommit(codec.JoinGameTx{GameID: id, Player: bob, Deposit: 100}, t0+1)
	require.ErrorIs(t, err, types.ErrInvalidRequest)

	_, err = e.JoinAndCommit(codec.JoinGameTx{GameID: 99, Player: bob, Deposit: 100, Commitment: c2}, t0+1)
	require.ErrorIs(t, err, types.ErrGameNotFound)

	_, err = e.JoinAndCommit(codec.JoinGameTx{GameID: id, Player: bob, Deposit: 100, Commitment: c2}, t0+3601)
	require.ErrorIs(t, err, types.ErrDeadlinePassed)

	require.Equal(t, uint64(1_000), balance(t, e, bob))
	g, _ := e.GetGame(id)
	require.Equal(t, state.StageAwaitingOpponent, g.Stage)
	require.Nil(t, g.Commit2)

	// Exactly at the deadline is still in time.
	joinGame(t, e, id, rps.Paper, saltOf(2), t0+3600)

	_, err = e.JoinAndCommit(codec.JoinGameTx{GameID: id, Player: bob, Deposit: 100, Commitment: c2}, t0+3601)
	require.ErrorIs(t, err, types.ErrWrongStage)
}

func TestReveal_Rejections(t *testing.T) {
	e := newTestEngine(t)
	id := createGame(t, e, rps.Rock, saltOf(1), 100, t0)

	_, err := reveal(e, id, alice, rps.Rock, saltOf(1), t0+1)
	require.ErrorIs(t, err, types.ErrWrongStage)

	joinGame(t, e, id, rps.Paper, saltOf(2), t0+1)

	_, err = reveal(e, id, carol, rps.Rock, saltOf(1), t0+2)
	require.ErrorIs(t, err, types.ErrNotParticipant)

	_, err = reveal(e, id, alice, rps.Move(3), saltOf(1), t0+2)
	require.ErrorIs(t, err, types.ErrInvalidMove)

	_, err = reveal(e, id, alice, rps.Rock, saltOf(1), t0+2)
	require.NoError(t, err)
	_, err = reveal(e, id, alice, rps.Rock, saltOf(1), t0+3)
	require.ErrorIs(t, err, types.ErrAlreadyRevealed)

	_, err = reveal(e, id, bob, rps.Paper, saltOf(2), t0+2+3601)
	require.ErrorIs(t, err, types.ErrDeadlinePassed)
}

func TestReveal_InvalidOpeningCanBeRetried(t *testing.T) {
	e := newTestEngine(t)
	id := createGame(t, e, rps.Rock, saltOf(1), 100, t0)
	joinGame(t, e, id, rps.Scissors, saltOf(2), t0+1)

	before, err := e.GetGame(id)
	require.NoError(t, err)

	// Wrong salt, then wrong move.
	_, err = reveal(e, id, alice, rps.Rock, saltOf(9), t0+2)
	require.ErrorIs(t, err, types.ErrInvalidReveal)
	_, err = reveal(e, id, alice, rps.Paper, saltOf(1), t0+3)
	require.ErrorIs(t, err, types.ErrInvalidReveal)

	after, err := e.GetGame(id)
	require.NoError(t, err)
	require.Equal(t, before, after)

	_, err = reveal(e, id, alice, rps.Rock, saltOf(1), t0+4)
	require.NoError(t, err)
}

func TestClaimTimeout_Unjoined(t *testing.T) {
	e := newTestEngine(t)
	id := createGame(t, e, rps.Rock, saltOf(1), 100, t0)

	_, err := e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id, Caller: carol}, t0+3600)
	require.ErrorIs(t, err, types.ErrDeadlineNotReached)

	events, err := e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id, Caller: carol}, t0+3601)
	require.NoError(t, err)

	g, _ := e.GetGame(id)
	require.Equal(t, state.StageFinished, g.Stage)
	require.Equal(t, state.ResolutionUnjoinedRefund, g.Resolution)
	require.Equal(t, uint64(1_000), balance(t, e, alice))
	require.Equal(t, uint64(0), balance(t, e, carol))

	claimed := findEvent(events, types.EventTypeTimeoutClaimed)
	require.Equal(t, "awaitingOpponent", attr(claimed, "expiredStage"))
	require.Equal(t, carol, attr(claimed, "caller"))
}

func TestClaimTimeout_NoReveals(t *testing.T) {
	e := newTestEngine(t)
	id := createGame(t, e, rps.Rock, saltOf(1), 100, t0)
	joinGame(t, e, id, rps.Paper, saltOf(2), t0+100)

	_, err := e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id}, t0+3601)
	require.ErrorIs(t, err, types.ErrDeadlineNotReached)

	_, err = e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id}, t0+100+3601)
	require.NoError(t, err)

	g, _ := e.GetGame(id)
	require.Equal(t, state.ResolutionNoRevealRefund, g.Resolution)
	require.Equal(t, uint64(1_000), balance(t, e, alice))
	require.Equal(t, uint64(1_000), balance(t, e, bob))
	require.Equal(t, uint64(0), escrowBalance(t, e, id))
}

func TestClaimTimeout_ForfeitToRevealer(t *testing.T) {
	for _, revealer := range []string{alice, bob} {
		t.Run(revealer, func(t *testing.T) {
			e := newTestEngine(t)
			// The revealer's move would lose; forfeiture ignores the moves.
			id := createGame(t, e, rps.Scissors, saltOf(1), 100, t0)
			joinGame(t, e, id, rps.Paper, saltOf(2), t0+1)

			if revealer == alice {
				_, err := reveal(e, id, alice, rps.Scissors, saltOf(1), t0+2)
				require.NoError(t, err)
			} else {
				_, err := reveal(e, id, bob, rps.Paper, saltOf(2), t0+2)
				require.NoError(t, err)
			}

			_, err := e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id}, t0+2+3601)
			require.NoError(t, err)

			g, _ := e.GetGame(id)
			loser := bob
			want := state.ResolutionPlayer1ByForfeit
			if revealer == bob {
				loser = alice
				want = state.ResolutionPlayer2ByForfeit
			}
			require.Equal(t, want, g.Resolution)
			require.Equal(t, uint64(1_100), balance(t, e, revealer))
			require.Equal(t, uint64(900), balance(t, e, loser))
		})
	}
}

func TestFinishedGame_IsTerminal(t *testing.T) {
	e := newTestEngine(t)
	id := createGame(t, e, rps.Rock, saltOf(1), 100, t0)
	joinGame(t, e, id, rps.Rock, saltOf(2), t0+1)
	_, err := reveal(e, id, alice, rps.Rock, saltOf(1), t0+2)
	require.NoError(t, err)
	_, err = reveal(e, id, bob, rps.Rock, saltOf(2), t0+3)
	require.NoError(t, err)

	snapshot, _ := e.GetGame(id)
	aliceBal, bobBal := balance(t, e, alice), balance(t, e, bob)

	far := t0 + 365*24*3600
	_, err = e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id}, far)
	require.ErrorIs(t, err, types.ErrWrongStage)
	_, err = reveal(e, id, bob, rps.Rock, saltOf(2), t0+4)
	require.ErrorIs(t, err, types.ErrWrongStage)
	_, err = e.JoinAndCommit(codec.JoinGameTx{GameID: id, Player: bob, Deposit: 100, Commitment: commitment.Commit(rps.Rock, saltOf(2))}, t0+4)
	require.ErrorIs(t, err, types.ErrWrongStage)

	after, _ := e.GetGame(id)
	require.Equal(t, snapshot, after)
	require.Equal(t, aliceBal, balance(t, e, alice))
	require.Equal(t, bobBal, balance(t, e, bob))
}

func TestGamesAreIndependent(t *testing.T) {
	e := newTestEngine(t)
	a := createGame(t, e, rps.Rock, saltOf(1), 10, t0)
	b := createGame(t, e, rps.Paper, saltOf(3), 20, t0)
	require.Equal(t, a+1, b)

	joinGame(t, e, b, rps.Rock, saltOf(4), t0+1)
	_, err := e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: a}, t0+3601)
	require.NoError(t, err)

	gb, _ := e.GetGame(b)
	require.Equal(t, state.StageAwaitingReveal, gb.Stage)
	require.Equal(t, uint64(40), escrowBalance(t, e, b))
}

// Random operation sequences never create or destroy funds, and every
// escrow ends either holding both stakes or fully released.
func TestConservation_RandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	players := []string{alice, bob, carol}
	moves := []rps.Move{rps.Rock, rps.Paper, rps.Scissors}

	e := newTestEngine(t)
	fund(t, e, carol, 1_000)
	const supply = 3_000

	type secret struct {
		move rps.Move
		salt commitment.Salt
	}
	secrets := map[uint64]map[string]secret{}

	now := t0
	for i := 0; i < 500; i++ {
		now += int64(rng.Intn(1200))
		switch rng.Intn(4) {
		case 0:
			p1 := players[rng.Intn(len(players))]
			p2 := players[rng.Intn(len(players))]
			sec := secret{moves[rng.Intn(3)], saltOf(byte(rng.Intn(256)))}
			stake := uint64(1 + rng.Intn(300))
			id, _, err := e.CreateGame(codec.CreateGameTx{
				Player1: p1, Opponent: p2, Stake: stake, Deposit: stake,
				Commitment: commitment.Commit(sec.move, sec.salt),
			}, now)
			if err == nil {
				secrets[id] = map[string]secret{p1: sec}
			}
		case 1:
			id := uint64(1 + rng.Intn(len(secrets)+1))
			g, err := e.GetGame(id)
			if err != nil {
				continue
			}
			sec := secret{moves[rng.Intn(3)], saltOf(byte(rng.Intn(256)))}
			if _, err := e.JoinAndCommit(codec.JoinGameTx{
				GameID: id, Player: g.Player2, Deposit: g.Stake,
				Commitment: commitment.Commit(sec.move, sec.salt),
			}, now); err == nil {
				secrets[id][g.Player2] = sec
			}
		case 2:
			id := uint64(1 + rng.Intn(len(secrets)+1))
			p := players[rng.Intn(len(players))]
			sec, ok := secrets[id][p]
			if !ok || rng.Intn(5) == 0 {
				sec = secret{moves[rng.Intn(3)], saltOf(byte(rng.Intn(256)))}
			}
			_, _ = reveal(e, id, p, sec.move, sec.salt, now)
		case 3:
			id := uint64(1 + rng.Intn(len(secrets)+1))
			_, _ = e.ClaimTimeout(codec.ClaimTimeoutTx{GameID: id}, now)
		}

		var total uint64
		for _, p := range players {
			total += balance(t, e, p)
		}
		ids, err := e.store.GameIDs()
		require.NoError(t, err)
		for _, id := range ids {
			g, err := e.GetGame(id)
			require.NoError(t, err)
			esc, err := e.store.GetEscrow(id)
			require.NoError(t, err)
			total += esc.Balance

			switch g.Stage {
			case state.StageAwaitingOpponent:
				require.Equal(t, g.Stake, esc.Balance)
			case state.StageAwaitingReveal, state.StageOneRevealed:
				require.Equal(t, 2*g.Stake, esc.Balance)
			case state.StageFinished:
				require.True(t, esc.Released)
				require.Zero(t, esc.Balance)
				require.Equal(t, esc.Deposited(), esc.PaidOut())
			}
		}
		require.Equal(t, uint64(supply), total, "step %d", i)
	}
}

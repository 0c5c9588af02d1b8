package state

import (
	"fmt"

	"onchainrps/internal/commitment"
	"onchainrps/internal/rps"
)

// Stage is a game's position in its forward-only lifecycle. The zero value is
// not a valid stage.
type Stage uint8

const (
	StageUnspecified Stage = iota
	StageAwaitingOpponent
	StageAwaitingReveal
	StageOneRevealed
	StageFinished
)

var stageNames = map[Stage]string{
	StageAwaitingOpponent: "awaitingOpponent",
	StageAwaitingReveal:   "awaitingReveal",
	StageOneRevealed:      "oneRevealed",
	StageFinished:         "finished",
}

func (s Stage) Valid() bool {
	_, ok := stageNames[s]
	return ok
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid stage %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for st, n := range stageNames {
		if n == string(b) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}

// Resolution records how a finished game was settled.
type Resolution string

const (
	ResolutionNone             Resolution = ""
	ResolutionPlayer1Won       Resolution = "player1Won"
	ResolutionPlayer2Won       Resolution = "player2Won"
	ResolutionTie              Resolution = "tie"
	ResolutionUnjoinedRefund   Resolution = "unjoinedRefund"
	ResolutionNoRevealRefund   Resolution = "noRevealRefund"
	ResolutionPlayer1ByForfeit Resolution = "player1ByForfeit"
	ResolutionPlayer2ByForfeit Resolution = "player2ByForfeit"
)

type Game struct {
	ID      uint64 `json:"id"`
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
	Stake   uint64 `json:"stake"`

	Commit1 commitment.Hash  `json:"commit1"`
	Commit2 *commitment.Hash `json:"commit2,omitempty"`

	// Unset until the owner passes a verified reveal.
	Move1 *rps.Move `json:"move1,omitempty"`
	Move2 *rps.Move `json:"move2,omitempty"`

	Stage Stage `json:"stage"`
	// Deadline is the unix second after which claim-timeout may force a resolution.
	Deadline int64 `json:"deadline"`

	CreatedAt  int64      `json:"createdAt"`
	FinishedAt int64      `json:"finishedAt,omitempty"`
	Resolution Resolution `json:"resolution,omitempty"`
}

// Seat returns 1 or 2 for the game's players and 0 for anyone else.
func (g *Game) Seat(addr string) int {
	switch {
	case addr == "":
		return 0
	case addr == g.Player1:
		return 1
	case addr == g.Player2:
		return 2
	default:
		return 0
	}
}

func (g *Game) Commitment(seat int) *commitment.Hash {
	switch seat {
	case 1:
		return &g.Commit1
	case 2:
		return g.Commit2
	default:
		return nil
	}
}

func (g *Game) Move(seat int) *rps.Move {
	switch seat {
	case 1:
		return g.Move1
	case 2:
		return g.Move2
	default:
		return nil
	}
}

func (g *Game) SetMove(seat int, m rps.Move) {
	mv := m
	switch seat {
	case 1:
		g.Move1 = &mv
	case 2:
		g.Move2 = &mv
	}
}

// Player returns the address seated at seat (1 or 2).
func (g *Game) Player(seat int) string {
	if seat == 1 {
		return g.Player1
	}
	if seat == 2 {
		return g.Player2
	}
	return ""
}

// Advance moves the game to next, refusing to regress or stand still.
func (g *Game) Advance(next Stage) error {
	if !next.Valid() {
		return fmt.Errorf("invalid stage %d", uint8(next))
	}
	if next <= g.Stage {
		return fmt.Errorf("stage regression: %s -> %s", g.Stage, next)
	}
	g.Stage = next
	return nil
}

func (g *Game) clone() Game {
	out := *g
	if g.Commit2 != nil {
		c := *g.Commit2
		out.Commit2 = &c
	}
	if g.Move1 != nil {
		m := *g.Move1
		out.Move1 = &m
	}
	if g.Move2 != nil {
		m := *g.Move2
		out.Move2 = &m
	}
	return out
}

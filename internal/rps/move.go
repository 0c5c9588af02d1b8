package rps

import (
	"fmt"
	"strconv"
	"strings"
)

// Move is a hand shape. The numeric values are part of the commitment
// encoding and of the payoff rule, so they must never change.
type Move uint8

const (
	Rock     Move = 0
	Paper    Move = 1
	Scissors Move = 2
)

// NumMoves is the size of the move alphabet.
const NumMoves = 3

func (m Move) Valid() bool {
	return m < NumMoves
}

func (m Move) String() string {
	switch m {
	case Rock:
		return "rock"
	case Paper:
		return "paper"
	case Scissors:
		return "scissors"
	default:
		return fmt.Sprintf("move(%d)", uint8(m))
	}
}

// ParseMove accepts a move name ("rock", "Paper", ...) or its numeric value.
func ParseMove(s string) (Move, error) {
	ss := strings.ToLower(strings.TrimSpace(s))
	switch ss {
	case "rock", "r":
		return Rock, nil
	case "paper", "p":
		return Paper, nil
	case "scissors", "s":
		return Scissors, nil
	}
	n, err := strconv.ParseUint(ss, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid move %q", s)
	}
	m := Move(n)
	if !m.Valid() {
		return 0, fmt.Errorf("move out of range: %d", n)
	}
	return m, nil
}

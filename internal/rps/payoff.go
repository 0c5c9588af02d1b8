package rps

// Outcome of a fully revealed game.
type Outcome uint8

const (
	Tie Outcome = iota
	Player1Wins
	Player2Wins
)

func (o Outcome) String() string {
	switch o {
	case Tie:
		return "tie"
	case Player1Wins:
		return "player1"
	case Player2Wins:
		return "player2"
	default:
		return "unknown"
	}
}

// Payoff maps two revealed moves to an outcome using the cyclic dominance
// Rock > Scissors > Paper > Rock: d = (move1 - move2 + 3) mod 3.
// Both moves must be valid.
func Payoff(move1, move2 Move) Outcome {
	d := (int(move1) - int(move2) + NumMoves) % NumMoves
	switch d {
	case 1:
		return Player1Wins
	case 2:
		return Player2Wins
	default:
		return Tie
	}
}

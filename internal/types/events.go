package types

import (
	"sort"

	abci "github.com/cometbft/cometbft/abci/types"
)

const (
	EventTypeGameCreated     = "GameCreated"
	EventTypeGameJoined      = "GameJoined"
	EventTypeMoveRevealed    = "MoveRevealed"
	EventTypeGameFinished    = "GameFinished"
	EventTypeTimeoutClaimed  = "TimeoutClaimed"
	EventTypeEscrowDeposited = "EscrowDeposited"
	EventTypeEscrowPaidOut   = "EscrowPaidOut"

	EventTypeBankMinted        = "BankMinted"
	EventTypeBankSent          = "BankSent"
	EventTypeAccountRegistered = "AccountRegistered"
)

// NewEvent builds an ABCI event with every attribute indexed, in key order so
// results are deterministic across nodes.
func NewEvent(typ string, attrs map[string]string) abci.Event {
	ev := abci.Event{Type: typ}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{Key: k, Value: attrs[k], Index: true})
	}
	return ev
}

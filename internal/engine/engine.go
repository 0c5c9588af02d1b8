// Package engine implements the game lifecycle: create, join+commit, reveal
// and claim-timeout. Every operation is applied as one store transition, so a
// rejected operation changes neither the game nor any balance.
package engine

import (
	"fmt"

	"cosmossdk.io/log"

	"onchainrps/internal/state"
)

type Engine struct {
	store  *state.Store
	params Params
	logger log.Logger
}

func New(store *state.Store, params Params, logger log.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("engine: store is nil")
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Engine{
		store:  store,
		params: params,
		logger: logger.With("module", "engine"),
	}, nil
}

func (e *Engine) Params() Params { return e.params }

func (e *Engine) Store() *state.Store { return e.store }

// GetGame returns a snapshot of game id.
func (e *Engine) GetGame(id uint64) (state.Game, error) {
	return e.store.GetGame(id)
}

// NextGameID is the id the next CreateGame will assign.
func (e *Engine) NextGameID() (uint64, error) {
	return e.store.NextGameID()
}

func (e *Engine) rejected(op string, gameID uint64, err error) {
	e.logger.Debug("transition rejected", "op", op, "gameId", gameID, "err", err)
}

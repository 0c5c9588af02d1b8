package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"onchainrps/internal/types"
)

// Txn buffers the writes of one transition. It is only valid inside the
// Update callback that created it.
type Txn struct {
	store   *Store
	pending map[string][]byte
	games   map[uint64]*Game
}

func (tx *Txn) get(key []byte) ([]byte, error) {
	if v, ok := tx.pending[string(key)]; ok {
		return v, nil
	}
	return tx.store.get(key)
}

func (tx *Txn) set(key, value []byte) {
	tx.pending[string(key)] = value
}

func (tx *Txn) setJSON(key []byte, v any) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %x: %w", key, err)
	}
	tx.set(key, bz)
	return nil
}

func (tx *Txn) setU64(key []byte, v uint64) {
	tx.set(key, u64be(v))
}

func (tx *Txn) getU64(key []byte) (uint64, bool, error) {
	bz, err := tx.get(key)
	if err != nil {
		return 0, false, err
	}
	if bz == nil {
		return 0, false, nil
	}
	if len(bz) != 8 {
		return 0, false, fmt.Errorf("invalid u64 encoding at %x", key)
	}
	return binary.BigEndian.Uint64(bz), true, nil
}

func (tx *Txn) SetHeight(h int64) {
	tx.setU64(HeightKey, uint64(h))
}

// ---- Games ----

func (tx *Txn) NextGameID() (uint64, error) {
	next, ok, err := tx.getU64(NextGameIDKey)
	if err != nil {
		return 0, err
	}
	if !ok {
		return FirstGameID, nil
	}
	return next, nil
}

// CreateGame assigns the next id to g and stores it.
func (tx *Txn) CreateGame(g *Game) (uint64, error) {
	if g == nil {
		return 0, fmt.Errorf("game is nil")
	}
	id, err := tx.NextGameID()
	if err != nil {
		return 0, err
	}
	if id == ^uint64(0) {
		return 0, types.ErrOverflow.Wrap("game id space exhausted")
	}
	g.ID = id
	if err := tx.SetGame(g); err != nil {
		return 0, err
	}
	tx.setU64(NextGameIDKey, id+1)
	return id, nil
}

func (tx *Txn) GetGame(id uint64) (*Game, error) {
	if g, ok := tx.games[id]; ok {
		return g, nil
	}
	bz, err := tx.get(GameKey(id))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, types.ErrGameNotFound.Wrapf("game %d", id)
	}
	var g Game
	if err := json.Unmarshal(bz, &g); err != nil {
		return nil, fmt.Errorf("decode game %d: %w", id, err)
	}
	tx.games[id] = &g
	return &g, nil
}

func (tx *Txn) SetGame(g *Game) error {
	if g == nil {
		return fmt.Errorf("game is nil")
	}
	if !g.Stage.Valid() {
		return fmt.Errorf("game %d: invalid stage %d", g.ID, uint8(g.Stage))
	}
	if err := tx.setJSON(GameKey(g.ID), g); err != nil {
		return err
	}
	tx.games[g.ID] = g
	return nil
}

// MutateGame loads game id, applies fn and stores the result. If fn fails the
// game is left untouched.
func (tx *Txn) MutateGame(id uint64, fn func(g *Game) error) (*Game, error) {
	cur, err := tx.GetGame(id)
	if err != nil {
		return nil, err
	}
	next := cur.clone()
	if err := fn(&next); err != nil {
		return nil, err
	}
	if next.ID != id {
		return nil, fmt.Errorf("game id changed during mutation: %d -> %d", id, next.ID)
	}
	if next.Stage < cur.Stage {
		return nil, fmt.Errorf("game %d: stage regression %s -> %s", id, cur.Stage, next.Stage)
	}
	if err := tx.SetGame(&next); err != nil {
		return nil, err
	}
	return &next, nil
}

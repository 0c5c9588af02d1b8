package state

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	dbm "github.com/cosmos/cosmos-db"
	lru "github.com/hashicorp/golang-lru/v2"

	"onchainrps/internal/types"
)

const defaultGameCacheSize = 4096

// Store owns every game record, escrow entry and account balance.
//
// Writes happen through Update, which applies a transition atomically to an
// in-memory working set. Commit flushes the working set to the database in a
// single batch; until then a crash loses the uncommitted block, which the
// consensus engine replays.
type Store struct {
	db dbm.DB

	mu    sync.RWMutex
	dirty map[string][]byte

	games *lru.Cache[uint64, Game]
}

// Open opens (or creates) the store under <home>/data.
func Open(home string, backend dbm.BackendType) (*Store, error) {
	db, err := dbm.NewDB("rps", backend, filepath.Join(home, "data"))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return NewStore(db)
}

// NewMemStore returns a store backed by an in-memory database.
func NewMemStore() *Store {
	s, err := NewStore(dbm.NewMemDB())
	if err != nil {
		panic(err)
	}
	return s
}

func NewStore(db dbm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	cache, err := lru.New[uint64, Game](defaultGameCacheSize)
	if err != nil {
		return nil, fmt.Errorf("game cache: %w", err)
	}
	return &Store{
		db:    db,
		dirty: map[string][]byte{},
		games: cache,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// get reads through the working set. Callers hold s.mu.
func (s *Store) get(key []byte) ([]byte, error) {
	if v, ok := s.dirty[string(key)]; ok {
		return v, nil
	}
	v, err := s.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("db get: %w", err)
	}
	return v, nil
}

// Update runs fn inside a transaction. If fn returns an error nothing it
// wrote becomes visible. Transitions are serialized.
func (s *Store) Update(fn func(tx *Txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Txn{
		store:   s,
		pending: map[string][]byte{},
		games:   map[uint64]*Game{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	for k, v := range tx.pending {
		s.dirty[k] = v
	}
	for id, g := range tx.games {
		if _, written := tx.pending[string(GameKey(id))]; written {
			s.games.Add(id, g.clone())
		}
	}
	return nil
}

// Commit persists everything applied since the previous Commit.
func (s *Store) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.dirty) == 0 {
		return nil
	}
	keys := make([]string, 0, len(s.dirty))
	for k := range s.dirty {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := s.db.NewBatch()
	defer batch.Close()
	for _, k := range keys {
		if err := batch.Set([]byte(k), s.dirty[k]); err != nil {
			return fmt.Errorf("batch set: %w", err)
		}
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("batch write: %w", err)
	}
	s.dirty = map[string][]byte{}
	return nil
}

// ---- Reads ----

func (s *Store) GetGame(id uint64) (Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if g, ok := s.games.Get(id); ok {
		return g.clone(), nil
	}
	g, err := s.loadGame(id)
	if err != nil {
		return Game{}, err
	}
	s.games.Add(id, g.clone())
	return *g, nil
}

func (s *Store) loadGame(id uint64) (*Game, error) {
	bz, err := s.get(GameKey(id))
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
	return &g, nil
}

func (s *Store) NextGameID() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextGameID()
}

func (s *Store) nextGameID() (uint64, error) {
	bz, err := s.get(NextGameIDKey)
	if err != nil {
		return 0, err
	}
	if bz == nil {
		return FirstGameID, nil
	}
	if len(bz) != 8 {
		return 0, fmt.Errorf("invalid nextGameID encoding")
	}
	return binary.BigEndian.Uint64(bz), nil
}

func (s *Store) GetEscrow(gameID uint64) (Escrow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.loadEscrow(gameID)
	if err != nil {
		return Escrow{}, err
	}
	if e == nil {
		return Escrow{}, types.ErrGameNotFound.Wrapf("no escrow for game %d", gameID)
	}
	return *e, nil
}

func (s *Store) loadEscrow(gameID uint64) (*Escrow, error) {
	bz, err := s.get(EscrowKey(gameID))
	if err != nil || bz == nil {
		return nil, err
	}
	var e Escrow
	if err := json.Unmarshal(bz, &e); err != nil {
		return nil, fmt.Errorf("decode escrow %d: %w", gameID, err)
	}
	return &e, nil
}

func (s *Store) Balance(addr string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balance(addr)
}

func (s *Store) balance(addr string) (uint64, error) {
	bz, err := s.get(AccountKey(addr))
	if err != nil || bz == nil {
		return 0, err
	}
	if len(bz) != 8 {
		return 0, fmt.Errorf("invalid balance encoding for %q", addr)
	}
	return binary.BigEndian.Uint64(bz), nil
}

// AccountPubKey returns the ed25519 key registered for addr, or nil.
func (s *Store) AccountPubKey(addr string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(AccountPubKeyKey(addr))
}

func (s *Store) Height() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bz, err := s.get(HeightKey)
	if err != nil || bz == nil {
		return 0, err
	}
	if len(bz) != 8 {
		return 0, fmt.Errorf("invalid height encoding")
	}
	return int64(binary.BigEndian.Uint64(bz)), nil
}

// GameIDs lists every game id in ascending order.
func (s *Store) GameIDs() ([]uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := []uint64{}
	err := s.iterate(GameKeyPrefix, func(k, _ []byte) bool {
		if len(k) == 1+8 {
			ids = append(ids, binary.BigEndian.Uint64(k[1:]))
		}
		return false
	})
	return ids, err
}

// iterate walks the merged view (db + working set) of keys under prefix in
// ascending key order. Callers hold s.mu.
func (s *Store) iterate(prefix []byte, cb func(k, v []byte) (stop bool)) error {
	var start []byte
	if len(prefix) > 0 {
		start = prefix
	}
	it, err := s.db.Iterator(start, prefixEnd(prefix))
	if err != nil {
		return fmt.Errorf("db iterator: %w", err)
	}
	merged := map[string][]byte{}
	for ; it.Valid(); it.Next() {
		merged[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	if err := it.Error(); err != nil {
		_ = it.Close()
		return fmt.Errorf("db iterate: %w", err)
	}
	if err := it.Close(); err != nil {
		return fmt.Errorf("db iterator close: %w", err)
	}
	for k, v := range s.dirty {
		if bytes.HasPrefix([]byte(k), prefix) {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if cb([]byte(k), merged[k]) {
			break
		}
	}
	return nil
}

// AppHash commits to the full state: sha256 over length-prefixed key/value
// pairs in key order.
func (s *Store) AppHash() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := sha256.New()
	var lenBuf [4]byte
	write := func(b []byte) {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}
	err := s.iterate(nil, func(k, v []byte) bool {
		write(k)
		write(v)
		return false
	})
	if err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

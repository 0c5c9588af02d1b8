package app

import (
	"context"
	"fmt"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"cosmossdk.io/log"
	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/codec"
	"onchainrps/internal/engine"
	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

const (
	AppVersion uint64 = 1
)

// RPSApp is the ABCI application. Transactions are delivered strictly in
// block order; block time is the clock every deadline is measured against.
type RPSApp struct {
	*abci.BaseApplication

	logger log.Logger

	mu       sync.Mutex
	st       *state.Store
	eng      *engine.Engine
	lastHash []byte
}

func New(st *state.Store, params engine.Params, logger log.Logger) (*RPSApp, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	eng, err := engine.New(st, params, logger)
	if err != nil {
		return nil, err
	}
	a := &RPSApp{
		BaseApplication: abci.NewBaseApplication(),
		logger:          logger.With("module", "app"),
		st:              st,
		eng:             eng,
	}
	height, err := st.Height()
	if err != nil {
		return nil, err
	}
	if height > 0 {
		if a.lastHash, err = st.AppHash(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *RPSApp) Info(_ context.Context, _ *abci.InfoRequest) (*abci.InfoResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	height, err := a.st.Height()
	if err != nil {
		return nil, err
	}
	return &abci.InfoResponse{
		Data:             "RPS (v0)",
		Version:          "v0",
		AppVersion:       AppVersion,
		LastBlockHeight:  height,
		LastBlockAppHash: a.lastHash,
	}, nil
}

func (a *RPSApp) CheckTx(_ context.Context, req *abci.CheckTxRequest) (*abci.CheckTxResponse, error) {
	env, err := codec.DecodeTxEnvelope(req.Tx)
	if err != nil {
		return checkTxErr(types.ErrInvalidRequest.Wrap(err.Error())), nil
	}
	if !knownTxType(env.Type) {
		return checkTxErr(types.ErrInvalidRequest.Wrapf("unknown tx type: %s", env.Type)), nil
	}
	// Signatures and nonces are checked against state in FinalizeBlock.
	if env.Signer != "" {
		if err := requireSignedEnvelope(env); err != nil {
			return checkTxErr(err), nil
		}
	}
	return &abci.CheckTxResponse{Code: 0}, nil
}

func checkTxErr(err error) *abci.CheckTxResponse {
	space, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.CheckTxResponse{Codespace: space, Code: code, Log: logMsg}
}

func (a *RPSApp) InitChain(_ context.Context, _ *abci.InitChainRequest) (*abci.InitChainResponse, error) {
	// Accounts are funded through bank/mint; there is no genesis state.
	return &abci.InitChainResponse{}, nil
}

func (a *RPSApp) FinalizeBlock(_ context.Context, req *abci.FinalizeBlockRequest) (*abci.FinalizeBlockResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.st.Update(func(tx *state.Txn) error {
		tx.SetHeight(req.Height)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("set height: %w", err)
	}

	now := req.Time.Unix()
	txResults := make([]*abci.ExecTxResult, 0, len(req.Txs))
	for _, txBytes := range req.Txs {
		txResults = append(txResults, a.deliverTx(txBytes, req.Height, now))
	}

	hash, err := a.st.AppHash()
	if err != nil {
		return nil, fmt.Errorf("app hash: %w", err)
	}
	a.lastHash = hash

	return &abci.FinalizeBlockResponse{
		TxResults: txResults,
		AppHash:   a.lastHash,
	}, nil
}

func (a *RPSApp) Commit(_ context.Context, _ *abci.CommitRequest) (*abci.CommitResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// CometBFT halts the node on a Commit error, which is what a failed
	// flush requires.
	if err := a.st.Commit(); err != nil {
		return nil, err
	}
	return &abci.CommitResponse{}, nil
}

func okResult(events []abci.Event) *abci.ExecTxResult {
	return &abci.ExecTxResult{Code: 0, Events: events}
}

func errResult(err error) *abci.ExecTxResult {
	space, code, logMsg := errorsmod.ABCIInfo(err, false)
	return &abci.ExecTxResult{Codespace: space, Code: code, Log: logMsg}
}

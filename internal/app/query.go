package app

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	abci "github.com/cometbft/cometbft/abci/types"

	"onchainrps/internal/state"
	"onchainrps/internal/types"
)

type escrowView struct {
	state.Escrow
	Deposited sdkmath.Int `json:"deposited"`
	PaidOut   sdkmath.Int `json:"paidOut"`
}

func newEscrowView(e state.Escrow) escrowView {
	dep, paid := sdkmath.ZeroInt(), sdkmath.ZeroInt()
	for _, d := range e.Deposits {
		dep = dep.Add(sdkmath.NewIntFromUint64(d.Amount))
	}
	for _, s := range e.Payouts {
		paid = paid.Add(sdkmath.NewIntFromUint64(s.Amount))
	}
	return escrowView{Escrow: e, Deposited: dep, PaidOut: paid}
}

type paramsView struct {
	JoinWindowSecs   uint64 `json:"joinWindowSecs"`
	RevealWindowSecs uint64 `json:"revealWindowSecs"`
}

func (a *RPSApp) Query(_ context.Context, req *abci.QueryRequest) (*abci.QueryResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	height, err := a.st.Height()
	if err != nil {
		return nil, err
	}

	// Paths:
	// - /game/<id>
	// - /games
	// - /next_game_id
	// - /escrow/<id>
	// - /account/<addr>
	// - /params
	path := strings.TrimSpace(req.Path)
	var v any
	switch {
	case path == "/games":
		v, err = a.st.GameIDs()
	case path == "/next_game_id":
		var next uint64
		next, err = a.eng.NextGameID()
		v = map[string]any{"nextGameId": next}
	case path == "/params":
		p := a.eng.Params()
		v = paramsView{
			JoinWindowSecs:   uint64(p.JoinWindow.Seconds()),
			RevealWindowSecs: uint64(p.RevealWindow.Seconds()),
		}
	case strings.HasPrefix(path, "/account/"):
		addr := strings.TrimPrefix(path, "/account/")
		var bal uint64
		bal, err = a.st.Balance(addr)
		v = map[string]any{"addr": addr, "balance": bal}
	case strings.HasPrefix(path, "/game/"):
		var id uint64
		if id, err = parseQueryID(strings.TrimPrefix(path, "/game/")); err == nil {
			v, err = a.eng.GetGame(id)
		}
	case strings.HasPrefix(path, "/escrow/"):
		var id uint64
		if id, err = parseQueryID(strings.TrimPrefix(path, "/escrow/")); err == nil {
			var e state.Escrow
			if e, err = a.st.GetEscrow(id); err == nil {
				v = newEscrowView(e)
			}
		}
	default:
		err = types.ErrInvalidRequest.Wrapf("unknown query path %q", path)
	}
	if err != nil {
		return queryErr(err, height), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return queryErr(err, height), nil
	}
	return &abci.QueryResponse{Code: 0, Value: b, Height: height}, nil
}

func parseQueryID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, types.ErrInvalidRequest.Wrapf("invalid game id %q", raw)
	}
	return id, nil
}

func queryErr(err error, height int64) *abci.QueryResponse {
	res := errResult(err)
	return &abci.QueryResponse{Codespace: res.Codespace, Code: res.Code, Log: res.Log, Height: height}
}

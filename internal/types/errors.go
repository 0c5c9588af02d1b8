package types

import errorsmod "cosmossdk.io/errors"

// ModuleName is also the error codespace.
const ModuleName = "rps"

// rps sentinel errors.
var (
	ErrInvalidRequest     = errorsmod.Register(ModuleName, 2, "invalid request")
	ErrInvalidOpponent    = errorsmod.Register(ModuleName, 3, "invalid opponent")
	ErrStakeMismatch      = errorsmod.Register(ModuleName, 4, "stake mismatch")
	ErrWrongStage         = errorsmod.Register(ModuleName, 5, "wrong stage")
	ErrNotParticipant     = errorsmod.Register(ModuleName, 6, "not a participant")
	ErrAlreadyRevealed    = errorsmod.Register(ModuleName, 7, "already revealed")
	ErrInvalidReveal      = errorsmod.Register(ModuleName, 8, "invalid reveal")
	ErrDeadlineNotReached = errorsmod.Register(ModuleName, 9, "deadline not reached")
	ErrGameNotFound       = errorsmod.Register(ModuleName, 10, "game not found")
	ErrDeadlinePassed     = errorsmod.Register(ModuleName, 11, "deadline passed")
	ErrInvalidMove        = errorsmod.Register(ModuleName, 12, "invalid move")
	ErrInsufficientFunds  = errorsmod.Register(ModuleName, 13, "insufficient funds")
	ErrUnauthorized       = errorsmod.Register(ModuleName, 14, "unauthorized")
	ErrEscrowViolation    = errorsmod.Register(ModuleName, 15, "escrow violation")
	ErrOverflow           = errorsmod.Register(ModuleName, 16, "arithmetic overflow")
)

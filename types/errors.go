package types

import "cosmossdk.io/errors"

var (
	ErrInvalidRequest        = errors.Register(ModuleName, 2, "invalid request")
	ErrVaultNotFound         = errors.Register(ModuleName, 3, "vault not found")
	ErrVaultExists           = errors.Register(ModuleName, 4, "vault already exists")
	ErrZeroShares            = errors.Register(ModuleName, 5, "operation would mint or burn zero shares")
	ErrZeroAssets            = errors.Register(ModuleName, 6, "operation would move zero assets")
	ErrInsufficientShares    = errors.Register(ModuleName, 7, "insufficient shares")
	ErrInsufficientFunds     = errors.Register(ModuleName, 8, "insufficient funds")
	ErrOverflow              = errors.Register(ModuleName, 9, "arithmetic overflow")
	ErrDivisionByZero        = errors.Register(ModuleName, 10, "division by zero")
	ErrVaultHalted           = errors.Register(ModuleName, 11, "vault halted after total loss")
	ErrTransferFailed        = errors.Register(ModuleName, 12, "asset transfer failed")
	ErrBelowMinimumDeposit   = errors.Register(ModuleName, 13, "deposit below configured genesis minimum")
	ErrDepositsDisabled      = errors.Register(ModuleName, 14, "deposits are disabled for vault")
	ErrWithdrawalsDisabled   = errors.Register(ModuleName, 15, "withdrawals are disabled for vault")
	ErrUnauthorized          = errors.Register(ModuleName, 16, "unauthorized")
	ErrInsufficientAllowance = errors.Register(ModuleName, 17, "insufficient share allowance")
)

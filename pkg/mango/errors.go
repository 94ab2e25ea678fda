package mango

import (
	"errors"
	"fmt"
)

// ErrMarketNotFound is returned when a symbol is not part of the loaded
// market catalog. Callers report it as "market not supported"; it is never
// fatal to the process.
var ErrMarketNotFound = errors.New("market not found")

// ConfigurationError is returned for a (chain, network) pair that has no
// configuration entry.
type ConfigurationError struct {
	Chain   string
	Network string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no configuration for chain %q network %q", e.Chain, e.Network)
}

// InvalidOrderParameterError rejects an order before any venue call is made.
type InvalidOrderParameterError struct {
	Param string
	Value string
}

func (e *InvalidOrderParameterError) Error() string {
	return fmt.Sprintf("invalid order %s: %q", e.Param, e.Value)
}

// AccountCreationError is returned when the venue refuses to create a margin
// account, most commonly because the owner lacks collateral for the account
// rent. It is never retried automatically: retrying without new funding is
// futile.
type AccountCreationError struct {
	Owner      string
	Market     string
	AccountNum uint32
	Err        error
}

func (e *AccountCreationError) Error() string {
	return fmt.Sprintf("margin account creation failed: market %s, owner %s, account number %d: %v. do you have enough SOL?",
		e.Market, e.Owner, e.AccountNum, e.Err)
}

func (e *AccountCreationError) Unwrap() error {
	return e.Err
}

// DuplicateOrderIDError is returned when a client order id is already
// tracked within the target margin account.
type DuplicateOrderIDError struct {
	ClientOrderID uint64
}

func (e *DuplicateOrderIDError) Error() string {
	return fmt.Sprintf("client order id %d is already tracked", e.ClientOrderID)
}

package mango

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/c9s/mangogate/pkg/metrics"
	"github.com/c9s/mangogate/pkg/types"
)

// AccountAllocator maps (owner address, market) pairs to isolated-margin
// accounts, creating accounts on the venue lazily.
//
// The venue permits any number of accounts per owner; the allocator treats
// the mapping as a function and keeps at most one account per pair. The
// per-owner table is a cache, not a source of truth: it is rebuilt from the
// venue on the first request for an owner after a restart.
type AccountAllocator struct {
	client types.VenueClient
	group  string

	mu     sync.Mutex
	owners map[string]*ownerAccounts
}

// ownerAccounts serializes all allocation steps for one owner address, so
// two concurrent requests can not both observe a missing account and race
// the venue with the same account number.
type ownerAccounts struct {
	mu      sync.Mutex
	fetched bool
	byName  map[string]*types.MarginAccount
}

func NewAccountAllocator(client types.VenueClient, group string) *AccountAllocator {
	return &AccountAllocator{
		client: client,
		group:  group,
		owners: make(map[string]*ownerAccounts),
	}
}

func (a *AccountAllocator) ownerEntry(owner string) *ownerAccounts {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.owners[owner]
	if !ok {
		entry = &ownerAccounts{
			byName: make(map[string]*types.MarginAccount),
		}
		a.owners[owner] = entry
	}

	return entry
}

// Lookup returns an already-known account for (owner, market) without any
// network call and without creating one. The position query path uses this
// to omit markets the owner never traded.
func (a *AccountAllocator) Lookup(owner, market string) (*types.MarginAccount, bool) {
	entry := a.ownerEntry(owner)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	account, ok := entry.byName[market]
	return account, ok
}

// Resolve returns the margin account for (owner, market), fetching the
// owner's venue accounts on first sight and creating a new account at the
// lowest unused account number when none matches the market.
func (a *AccountAllocator) Resolve(ctx context.Context, owner, market string) (*types.MarginAccount, error) {
	entry := a.ownerEntry(owner)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if account, ok := entry.byName[market]; ok {
		return account, nil
	}

	if !entry.fetched {
		accounts, err := a.client.ListAccounts(ctx, owner)
		if err != nil {
			return nil, err
		}

		for i := range accounts {
			account := accounts[i]
			entry.byName[account.MarketName] = &account
		}
		entry.fetched = true

		if account, ok := entry.byName[market]; ok {
			return account, nil
		}
	}

	accountNum := nextAccountNum(entry.byName)

	logrus.WithFields(logrus.Fields{
		"owner":      owner,
		"market":     market,
		"accountNum": accountNum,
	}).Info("creating margin account")

	account, err := a.client.CreateAccount(ctx, a.group, owner, accountNum, market)
	if err != nil {
		return nil, &AccountCreationError{
			Owner:      owner,
			Market:     market,
			AccountNum: accountNum,
			Err:        err,
		}
	}

	metrics.AccountsCreatedMetric.WithLabelValues(a.group).Inc()

	entry.byName[market] = account
	return account, nil
}

// nextAccountNum picks the lowest non-negative account number not in use by
// the owner. Numbers freed by accounts closed outside of the gateway are
// filled before the sequence grows.
func nextAccountNum(accounts map[string]*types.MarginAccount) uint32 {
	nums := make([]uint32, 0, len(accounts))
	for _, account := range accounts {
		nums = append(nums, account.AccountNum)
	}

	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })

	for i, n := range nums {
		if uint32(i) != n {
			return uint32(i)
		}
	}

	return uint32(len(nums))
}

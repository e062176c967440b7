package registry

import (
	"math/big"
	"sync"

	"ans/pkg/domain"
)

// MemoryLedger tracks wallet balances for the in-memory store. The memory
// store applies transfers against it under the same lock that guards the
// record commit, which is what makes the buy path all-or-nothing.
//
// Balances may go negative: the gateway is not the custodian of funds, it
// mirrors transfer instructions the settlement runtime executes. Overdraft
// enforcement belongs to that runtime.
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]*big.Rat
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]*big.Rat)}
}

// Credit adds funds to a wallet, mainly for test setup.
func (l *MemoryLedger) Credit(wallet domain.WalletAddress, amount domain.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balance(wallet).Add(l.balance(wallet), amount.Rat())
}

// Balance returns the wallet's current balance.
func (l *MemoryLedger) Balance(wallet domain.WalletAddress) *big.Rat {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Rat).Set(l.balance(wallet))
}

// apply moves funds for a batch of transfers. Callers hold the store lock, so
// a batch is never observed half-applied.
func (l *MemoryLedger) apply(transfers []Transfer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, t := range transfers {
		amt := t.Amount.Rat()
		l.balance(t.From).Sub(l.balance(t.From), amt)
		l.balance(t.To).Add(l.balance(t.To), amt)
	}
}

func (l *MemoryLedger) balance(wallet domain.WalletAddress) *big.Rat {
	key := wallet.Canonical()
	b, ok := l.balances[key]
	if !ok {
		b = new(big.Rat)
		l.balances[key] = b
	}
	return b
}

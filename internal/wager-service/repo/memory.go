package repo

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var errNegativeBalance = errors.New("balance check violated: balance would become negative")

// Memory implementa o ledger em memória. Usado em testes e no modo STORAGE_DRIVER=memory.
//
// Cada conta tem um lock exclusivo mantido durante todo o read-modify-write, então apostas
// na mesma conta são serializadas e contas diferentes não se bloqueiam. O commit (saldo +
// aposta) é aplicado sob mu, e leitores sob RLock nunca enxergam um sem o outro.
type Memory struct {
	mu          sync.RWMutex
	accounts    map[int64]Account
	wagers      []Wager // em ordem de id
	nextAccount int64
	nextWager   int64

	locksMu sync.Mutex
	locks   map[int64]chan struct{}

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[int64]Account),
		locks:    make(map[int64]chan struct{}),
		now:      time.Now,
	}
}

// CreateAccount provisiona uma conta (fora do fluxo de apostas)
func (m *Memory) CreateAccount(name string, balance decimal.Decimal) Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextAccount++
	a := Account{
		ID:        m.nextAccount,
		Name:      name,
		Balance:   balance.Round(2),
		CreatedAt: m.now(),
	}
	m.accounts[a.ID] = a

	m.locksMu.Lock()
	m.locks[a.ID] = make(chan struct{}, 1)
	m.locksMu.Unlock()
	return a
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) GetAccount(_ context.Context, id int64) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *Memory) ListAccounts(context.Context) ([]Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Account, 0, len(m.accounts))
	for id := int64(1); id <= m.nextAccount; id++ {
		if a, ok := m.accounts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) GetWager(_ context.Context, id int64) (Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// ids são atribuídos em sequência a partir de 1
	if id < 1 || id > int64(len(m.wagers)) {
		return Wager{}, ErrWagerNotFound
	}
	return m.wagers[id-1], nil
}

// Settle segue o mesmo contrato do Postgres.Settle
func (m *Memory) Settle(ctx context.Context, accountID int64, fn SettleFunc) (Wager, error) {
	unlock, err := m.lockAccount(ctx, accountID)
	if err != nil {
		return Wager{}, err
	}
	defer unlock()

	acc, err := m.GetAccount(ctx, accountID)
	if err != nil {
		return Wager{}, err
	}

	st, err := fn(acc)
	if err != nil {
		return Wager{}, err
	}
	if st.Balance.IsNegative() {
		return Wager{}, errNegativeBalance
	}
	if err := ctx.Err(); err != nil {
		return Wager{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextWager++
	w := st.Wager
	w.ID = m.nextWager
	w.AccountID = acc.ID
	w.CreatedAt = m.now()

	acc.Balance = st.Balance
	m.accounts[acc.ID] = acc
	m.wagers = append(m.wagers, w)
	return w, nil
}

func (m *Memory) BestWagerPerAccount(_ context.Context, limit int) ([]Wager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return BestPerAccount(m.wagers, limit), nil
}

// lockAccount adquire o lock exclusivo da conta respeitando cancelamento do contexto.
// O lock nasce no CreateAccount; id desconhecido não grava nada e devolve ErrAccountNotFound.
func (m *Memory) lockAccount(ctx context.Context, id int64) (func(), error) {
	m.locksMu.Lock()
	ch, ok := m.locks[id]
	m.locksMu.Unlock()
	if !ok {
		return nil, ErrAccountNotFound
	}

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

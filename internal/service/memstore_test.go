package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory stand-in for the database. Balance rows carry real
// mutexes held until the owning memTx ends, and idempotency keys are claimed at
// insert time, so concurrent orchestrations behave as they would against
// PostgreSQL row locks and the unique index.
type memStore struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*domain.Customer
	wallets   map[uuid.UUID]*domain.Wallet
	balances  map[domain.BalanceKey]decimal.Decimal
	rowLocks  map[domain.BalanceKey]*sync.Mutex
	txns      []domain.Transaction
	claimed   map[string]bool
	committed map[string]bool
	rates     map[string]domain.ExchangeRate
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[uuid.UUID]*domain.Customer),
		wallets:   make(map[uuid.UUID]*domain.Wallet),
		balances:  make(map[domain.BalanceKey]decimal.Decimal),
		rowLocks:  make(map[domain.BalanceKey]*sync.Mutex),
		claimed:   make(map[string]bool),
		committed: make(map[string]bool),
		rates:     make(map[string]domain.ExchangeRate),
	}
}

// memTx buffers writes until Commit. Locks taken through it are released on
// Commit or Rollback.
type memTx struct {
	pgx.Tx
	store    *memStore
	held     []*sync.Mutex
	balances map[domain.BalanceKey]decimal.Decimal
	txns     []domain.Transaction
	keys     []string
	done     bool
}

func (s *memStore) Begin(_ context.Context) (pgx.Tx, error) {
	return &memTx{store: s, balances: make(map[domain.BalanceKey]decimal.Decimal)}, nil
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	for k, v := range t.balances {
		t.store.balances[k] = v
	}
	for _, txn := range t.txns {
		t.store.txns = append(t.store.txns, txn)
		t.store.committed[txn.IdempotencyKey] = true
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	for _, k := range t.keys {
		delete(t.store.claimed, k)
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memTx) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
	t.held = nil
	t.done = true
}

// --- fixtures ---

func (s *memStore) addCustomer(name, email string, currencies ...string) (*domain.Customer, map[string]*domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	c := &domain.Customer{ID: uuid.New(), Name: name, Email: domain.NormalizeEmail(email), CreatedAt: now, UpdatedAt: now}
	s.customers[c.ID] = c
	wallets := make(map[string]*domain.Wallet, len(currencies))
	for _, cur := range currencies {
		w := &domain.Wallet{ID: uuid.New(), CustomerID: c.ID, Currency: cur, Status: domain.WalletStatusActive, CreatedAt: now, UpdatedAt: now}
		s.wallets[w.ID] = w
		wallets[cur] = w
	}
	return c, wallets
}

func (s *memStore) setBalance(walletID uuid.UUID, currency string, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[domain.BalanceKey{WalletID: walletID, Currency: currency}] = amount
}

func (s *memStore) balance(walletID uuid.UUID, currency string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[domain.BalanceKey{WalletID: walletID, Currency: currency}]
}

func (s *memStore) setRate(from, to string, rate decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[from+"/"+to] = domain.ExchangeRate{From: from, To: to, Rate: rate, UpdatedAt: time.Now().UTC()}
}

func (s *memStore) transactionsByKey(key string) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Transaction
	for _, t := range s.txns {
		if t.IdempotencyKey == key {
			out = append(out, t)
		}
	}
	return out
}

func (s *memStore) countByStatus(status domain.TransactionStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.txns {
		if t.Status == status {
			n++
		}
	}
	return n
}

// --- Customer repo ---

type memCustomerRepo struct{ s *memStore }

func (r memCustomerRepo) Create(_ context.Context, c *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.customers {
		if existing.Email == c.Email {
			return fmt.Errorf("insert customer: %w", ports.ErrConflict)
		}
	}
	cp := *c
	r.s.customers[c.ID] = &cp
	return nil
}

func (r memCustomerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.customers[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memCustomerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = domain.NormalizeEmail(email)
	for _, c := range r.s.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

// --- Wallet repo ---

type memWalletRepo struct{ s *memStore }

func (r memWalletRepo) Create(_ context.Context, _ pgx.Tx, w *domain.Wallet) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.wallets {
		if existing.CustomerID == w.CustomerID && existing.Currency == w.Currency {
			return fmt.Errorf("insert wallet: %w", ports.ErrConflict)
		}
	}
	cp := *w
	r.s.wallets[w.ID] = &cp
	return nil
}

func (r memWalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (r memWalletRepo) GetByCustomerAndCurrency(_ context.Context, customerID uuid.UUID, currency string) (*domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, w := range r.s.wallets {
		if w.CustomerID == customerID && w.Currency == currency {
			cp := *w
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memWalletRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]domain.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Wallet
	for _, w := range r.s.wallets {
		if w.CustomerID == customerID {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (r memWalletRepo) GetByIDForShare(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r memWalletRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r memWalletRepo) UpdateStatus(_ context.Context, _ pgx.Tx, id uuid.UUID, status domain.WalletStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[id]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Status = status
	return nil
}

// --- Balance repo ---

type memBalanceRepo struct{ s *memStore }

func (r memBalanceRepo) LockForUpdate(_ context.Context, tx pgx.Tx, walletID uuid.UUID, currency string) (*domain.WalletBalance, error) {
	mt := tx.(*memTx)
	k := domain.BalanceKey{WalletID: walletID, Currency: currency}

	r.s.mu.Lock()
	m, ok := r.s.rowLocks[k]
	if !ok {
		m = &sync.Mutex{}
		r.s.rowLocks[k] = m
	}
	r.s.mu.Unlock()

	m.Lock()
	mt.held = append(mt.held, m)

	amount, pending := mt.balances[k]
	if !pending {
		r.s.mu.Lock()
		amount = r.s.balances[k]
		r.s.mu.Unlock()
	}
	return &domain.WalletBalance{WalletID: walletID, Currency: currency, Amount: amount}, nil
}

func (r memBalanceRepo) UpdateAmount(_ context.Context, tx pgx.Tx, walletID uuid.UUID, currency string, amount decimal.Decimal) error {
	tx.(*memTx).balances[domain.BalanceKey{WalletID: walletID, Currency: currency}] = amount
	return nil
}

func (r memBalanceRepo) ListByWallet(_ context.Context, walletID uuid.UUID) ([]domain.WalletBalance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.WalletBalance
	for k, v := range r.s.balances {
		if k.WalletID == walletID {
			out = append(out, domain.WalletBalance{WalletID: walletID, Currency: k.Currency, Amount: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

func (r memBalanceRepo) ListByWalletForUpdate(ctx context.Context, _ pgx.Tx, walletID uuid.UUID) ([]domain.WalletBalance, error) {
	return r.ListByWallet(ctx, walletID)
}

// --- Transaction repo ---

type memTransactionRepo struct{ s *memStore }

func (r memTransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt := tx.(*memTx)
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.claimed[t.IdempotencyKey] {
		return fmt.Errorf("insert transaction: %w", ports.ErrConflict)
	}
	r.s.claimed[t.IdempotencyKey] = true
	mt.keys = append(mt.keys, t.IdempotencyKey)
	mt.txns = append(mt.txns, *t)
	return nil
}

func (r memTransactionRepo) ExistsByIdempotencyKey(_ context.Context, key string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.committed[key], nil
}

func (r memTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.txns {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memTransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Transaction
	for _, t := range r.s.txns {
		touches := false
		for _, id := range params.WalletIDs {
			if t.Touches(id) {
				touches = true
				break
			}
		}
		if !touches {
			continue
		}
		if params.Status != nil && t.Status != *params.Status {
			continue
		}
		if params.Type != nil && t.Type != *params.Type {
			continue
		}
		result = append(result, t)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Transaction{}, total, nil
	}
	end := min(start+params.PageSize, len(result))
	return result[start:end], total, nil
}

// --- Exchange rate repo ---

type memRateRepo struct{ s *memStore }

func (r memRateRepo) Get(_ context.Context, from, to string) (*domain.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rate, ok := r.s.rates[from+"/"+to]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

func (r memRateRepo) Upsert(_ context.Context, rate *domain.ExchangeRate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.rates[rate.From+"/"+rate.To] = *rate
	return nil
}

func (r memRateRepo) List(_ context.Context) ([]domain.ExchangeRate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.ExchangeRate, 0, len(r.s.rates))
	for _, rate := range r.s.rates {
		out = append(out, rate)
	}
	return out, nil
}

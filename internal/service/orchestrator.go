package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	maxIdempotencyKeyLen = 64
	failedWriteTimeout   = 5 * time.Second
)

var (
	one               = decimal.NewFromInt(1)
	minExternalAmount = decimal.NewFromInt(1)
)

// OrchestratorConfig tunes the Orchestrator.
type OrchestratorConfig struct {
	ExternalFeeRate     decimal.Decimal
	FailureReasonMaxLen int
	IdempotencyTTL      time.Duration
	IdempotencyLockTTL  time.Duration
}

// OrchestratorDeps bundles the collaborators of the Orchestrator.
// IdempotencyCache, IdempotencyLock, Publisher and Push are optional.
type OrchestratorDeps struct {
	CustomerRepo     ports.CustomerRepository
	WalletRepo       ports.WalletRepository
	TxRepo           ports.TransactionRepository
	Ledger           ports.Ledger
	FX               ports.ExchangeRateProvider
	Gateway          ports.SettlementGateway
	Transactor       ports.DBTransactor
	IdempotencyCache ports.IdempotencyCache
	IdempotencyLock  ports.IdempotencyLock
	Publisher        ports.EventPublisher
	Push             ports.PushNotifier
}

// Orchestrator implements ports.PaymentOrchestrator.
//
// Each operation runs its ledger legs and the COMPLETED log row in one database
// transaction. When anything fails the transaction rolls back and a FAILED row
// is written in a fresh transaction, so every attempt leaves exactly one row.
type Orchestrator struct {
	deps OrchestratorDeps
	cfg  OrchestratorConfig
	log  zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig, log zerolog.Logger) *Orchestrator {
	if cfg.FailureReasonMaxLen <= 0 {
		cfg.FailureReasonMaxLen = 250
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.IdempotencyLockTTL <= 0 {
		cfg.IdempotencyLockTTL = 30 * time.Second
	}
	return &Orchestrator{deps: deps, cfg: cfg, log: log}
}

// attempt accumulates what is known about one operation as it progresses.
// Fields filled before a failure end up in the FAILED row.
type attempt struct {
	key            string
	txType         domain.TransactionType
	amount         decimal.Decimal
	currency       string
	targetCurrency string
	description    string

	from         *domain.Party
	to           *domain.Party
	converted    decimal.Decimal
	rate         decimal.Decimal
	fee          decimal.Decimal
	counterparty string

	// settlementFailed is set when the gateway errored or rejected the payout.
	settlementFailed bool
}

func (a *attempt) transaction(status domain.TransactionStatus, description string) *domain.Transaction {
	t := &domain.Transaction{
		ID:                uuid.New(),
		IdempotencyKey:    a.key,
		Amount:            a.amount,
		Currency:          a.currency,
		ConvertedAmount:   a.converted,
		ConvertedCurrency: a.targetCurrency,
		ExchangeRate:      a.rate,
		Fee:               a.fee,
		Type:              a.txType,
		Status:            status,
		Description:       description,
		CreatedAt:         time.Now().UTC(),
	}
	if a.from != nil {
		id := a.from.WalletID
		t.FromWalletID = &id
	}
	if a.to != nil {
		id := a.to.WalletID
		t.ToWalletID = &id
	}
	return t
}

// legsFunc resolves the parties of an attempt and applies its ledger legs inside tx.
type legsFunc func(ctx context.Context, tx pgx.Tx) error

// Deposit credits the customer's wallet.
func (o *Orchestrator) Deposit(ctx context.Context, req ports.DepositRequest) (*domain.Transaction, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	if err := firstError(validateKey(req.IdempotencyKey), validateAmount(req.Amount), validateCurrency(currency)); err != nil {
		return nil, err
	}

	a := o.newAttempt(req.IdempotencyKey, domain.TransactionTypeDeposit, req.Amount, currency, currency, req.Description)
	return o.execute(ctx, a, func(ctx context.Context, tx pgx.Tx) error {
		to, err := o.resolveParty(ctx, req.CustomerEmail, currency)
		if err != nil {
			return err
		}
		a.to = to
		_, err = o.deps.Ledger.ApplyLegs(ctx, tx, []ports.BalanceLeg{
			{WalletID: to.WalletID, Currency: currency, Delta: a.amount},
		})
		return err
	})
}

// Withdraw debits the customer's wallet.
func (o *Orchestrator) Withdraw(ctx context.Context, req ports.WithdrawRequest) (*domain.Transaction, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	if err := firstError(validateKey(req.IdempotencyKey), validateAmount(req.Amount), validateCurrency(currency)); err != nil {
		return nil, err
	}

	a := o.newAttempt(req.IdempotencyKey, domain.TransactionTypeWithdrawal, req.Amount, currency, currency, req.Description)
	return o.execute(ctx, a, func(ctx context.Context, tx pgx.Tx) error {
		from, err := o.resolveParty(ctx, req.CustomerEmail, currency)
		if err != nil {
			return err
		}
		a.from = from
		_, err = o.deps.Ledger.ApplyLegs(ctx, tx, []ports.BalanceLeg{
			{WalletID: from.WalletID, Currency: currency, Delta: a.amount.Neg()},
		})
		return err
	})
}

// Transfer debits the sender in Currency and credits the receiver in TargetCurrency,
// converting through the exchange rate provider when the two differ.
func (o *Orchestrator) Transfer(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	target := domain.NormalizeCurrency(req.TargetCurrency)
	if target == "" {
		target = currency
	}
	if err := firstError(
		validateKey(req.IdempotencyKey), validateAmount(req.Amount),
		validateCurrency(currency), validateCurrency(target),
	); err != nil {
		return nil, err
	}
	if domain.NormalizeEmail(req.FromEmail) == domain.NormalizeEmail(req.ToEmail) && currency == target {
		return nil, apperror.Validation("cannot transfer to the same wallet")
	}

	a := o.newAttempt(req.IdempotencyKey, domain.TransactionTypeTransfer, req.Amount, currency, target, req.Description)
	return o.execute(ctx, a, func(ctx context.Context, tx pgx.Tx) error {
		from, err := o.resolveParty(ctx, req.FromEmail, currency)
		if err != nil {
			return err
		}
		a.from = from
		to, err := o.resolveParty(ctx, req.ToEmail, target)
		if err != nil {
			return err
		}
		a.to = to
		if err := o.convert(ctx, a); err != nil {
			return err
		}
		_, err = o.deps.Ledger.ApplyLegs(ctx, tx, []ports.BalanceLeg{
			{WalletID: from.WalletID, Currency: currency, Delta: a.amount.Neg()},
			{WalletID: to.WalletID, Currency: target, Delta: a.converted},
		})
		return err
	})
}

// TradeFX sells FromCurrency and buys ToCurrency inside the customer's FromCurrency wallet.
func (o *Orchestrator) TradeFX(ctx context.Context, req ports.FXTradeRequest) (*domain.Transaction, error) {
	from := domain.NormalizeCurrency(req.FromCurrency)
	to := domain.NormalizeCurrency(req.ToCurrency)
	if err := firstError(
		validateKey(req.IdempotencyKey), validateAmount(req.Amount),
		validateCurrency(from), validateCurrency(to),
	); err != nil {
		return nil, err
	}
	if from == to {
		return nil, apperror.Validation("fx trade currencies must differ")
	}

	a := o.newAttempt(req.IdempotencyKey, domain.TransactionTypeFXTrade, req.Amount, from, to, "")
	return o.execute(ctx, a, func(ctx context.Context, tx pgx.Tx) error {
		owner, err := o.resolveParty(ctx, req.CustomerEmail, from)
		if err != nil {
			return err
		}
		a.from, a.to = owner, owner
		if err := o.convert(ctx, a); err != nil {
			return err
		}
		_, err = o.deps.Ledger.ApplyLegs(ctx, tx, []ports.BalanceLeg{
			{WalletID: owner.WalletID, Currency: from, Delta: a.amount.Neg()},
			{WalletID: owner.WalletID, Currency: to, Delta: a.converted},
		})
		return err
	})
}

// ExternalTransfer debits amount plus fee and then asks the settlement gateway to
// pay out. A rejected or failed settlement rolls the debit back.
func (o *Orchestrator) ExternalTransfer(ctx context.Context, req ports.ExternalTransferRequest) (*domain.Transaction, error) {
	currency := domain.NormalizeCurrency(req.Currency)
	if err := firstError(validateKey(req.IdempotencyKey), validateAmount(req.Amount), validateCurrency(currency)); err != nil {
		return nil, err
	}
	if req.Amount.LessThan(minExternalAmount) {
		return nil, apperror.Validation("external transfer amount must be at least 1.00")
	}
	if strings.TrimSpace(req.ToIBAN) == "" || strings.TrimSpace(req.SwiftCode) == "" || strings.TrimSpace(req.ReceiverName) == "" {
		return nil, apperror.Validation("iban, swift code and receiver name are required")
	}

	a := o.newAttempt(req.IdempotencyKey, domain.TransactionTypeExternalTransfer, req.Amount, currency, currency, "")
	a.fee = a.amount.Mul(o.cfg.ExternalFeeRate).RoundBank(domain.AmountScale)
	a.counterparty = fmt.Sprintf("%s (%s, %s)", req.ReceiverName, req.ToIBAN, req.SwiftCode)
	if strings.TrimSpace(req.Description) != "" {
		a.description = req.Description
	} else {
		a.description = fmt.Sprintf("International transfer (fee %s %s)", a.fee.StringFixed(2), currency)
	}

	return o.execute(ctx, a, func(ctx context.Context, tx pgx.Tx) error {
		from, err := o.resolveParty(ctx, req.FromEmail, currency)
		if err != nil {
			return err
		}
		a.from = from
		total := a.amount.Add(a.fee)
		if _, err := o.deps.Ledger.ApplyLegs(ctx, tx, []ports.BalanceLeg{
			{WalletID: from.WalletID, Currency: currency, Delta: total.Neg()},
		}); err != nil {
			return err
		}

		ok, err := o.deps.Gateway.Transfer(ctx, req.ToIBAN, req.SwiftCode, req.ReceiverName, a.amount)
		if err != nil {
			a.settlementFailed = true
			return fmt.Errorf("settlement gateway: %w", err)
		}
		if !ok {
			a.settlementFailed = true
			return apperror.ErrSettlementRejected()
		}
		return nil
	})
}

func (o *Orchestrator) newAttempt(key string, txType domain.TransactionType, amount decimal.Decimal, currency, target, description string) *attempt {
	a := &attempt{
		key:            strings.TrimSpace(key),
		txType:         txType,
		amount:         amount,
		currency:       currency,
		targetCurrency: target,
		description:    strings.TrimSpace(description),
	}
	if currency == target {
		a.converted, a.rate = amount, one
	}
	if a.description == "" {
		a.description = defaultDescription(txType)
	}
	return a
}

func defaultDescription(t domain.TransactionType) string {
	switch t {
	case domain.TransactionTypeFXTrade:
		return "Currency exchange"
	default:
		return string(t)
	}
}

// convert fills the rate and converted amount of a cross-currency attempt.
func (o *Orchestrator) convert(ctx context.Context, a *attempt) error {
	if a.currency == a.targetCurrency {
		a.converted, a.rate = a.amount, one
		return nil
	}
	rate, err := o.deps.FX.Rate(ctx, a.currency, a.targetCurrency)
	if err != nil {
		return err
	}
	// The recorded rate is the one that produced the converted amount.
	a.rate = rate
	a.converted = a.amount.Mul(rate).RoundBank(domain.AmountScale)
	return nil
}

// resolveParty finds the customer's wallet for a default currency.
func (o *Orchestrator) resolveParty(ctx context.Context, email, currency string) (*domain.Party, error) {
	customer, err := o.deps.CustomerRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if customer == nil {
		return nil, apperror.ErrCustomerNotFound()
	}

	wallet, err := o.deps.WalletRepo.GetByCustomerAndCurrency(ctx, customer.ID, currency)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	if !wallet.IsActive() {
		return nil, apperror.ErrWalletClosed()
	}

	return &domain.Party{
		CustomerID: customer.ID,
		WalletID:   wallet.ID,
		Name:       customer.Name,
		Email:      customer.Email,
	}, nil
}

// execute runs the idempotency checks, applies the legs and records the outcome.
func (o *Orchestrator) execute(ctx context.Context, a *attempt, apply legsFunc) (*domain.Transaction, error) {
	log := o.log.With().Str("idempotency_key", a.key).Str("type", string(a.txType)).Logger()

	// Layer 1: Redis result cache
	if o.deps.IdempotencyCache != nil {
		cached, err := o.deps.IdempotencyCache.Get(ctx, a.key)
		if err != nil {
			log.Warn().Err(err).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return nil, apperror.ErrDuplicateRequest()
		}
	}

	// Layer 2: in-flight claim
	if o.deps.IdempotencyLock != nil {
		token, err := o.deps.IdempotencyLock.Acquire(ctx, a.key, o.cfg.IdempotencyLockTTL)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("redis idempotency lock failed, falling through to DB")
		case token == "":
			return nil, apperror.ErrDuplicateRequest()
		default:
			defer func() {
				if err := o.deps.IdempotencyLock.Release(context.WithoutCancel(ctx), a.key, token); err != nil {
					log.Warn().Err(err).Msg("failed to release idempotency lock")
				}
			}()
		}
	}

	// Layer 3: durable log
	exists, err := o.deps.TxRepo.ExistsByIdempotencyKey(ctx, a.key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if exists {
		return nil, apperror.ErrDuplicateRequest()
	}

	txn, err := o.commit(ctx, a, apply)
	if err != nil {
		// Layer 4: a concurrent attempt logged the key first
		if errors.Is(err, ports.ErrConflict) {
			log.Info().Msg("idempotency key claimed concurrently")
			return nil, apperror.ErrDuplicateRequest()
		}
		o.recordFailure(ctx, a, err)
		return nil, classify(err)
	}

	o.afterCommit(ctx, a, txn)
	log.Info().
		Str("tx_id", txn.ID.String()).
		Str("amount", txn.Amount.String()).
		Str("currency", txn.Currency).
		Msg("transaction completed")
	return txn, nil
}

func (o *Orchestrator) commit(ctx context.Context, a *attempt, apply legsFunc) (*domain.Transaction, error) {
	dbTx, err := o.deps.Transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := apply(ctx, dbTx); err != nil {
		return nil, err
	}

	txn := a.transaction(domain.TransactionStatusCompleted, a.description)
	if err := o.deps.TxRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return txn, nil
}

// recordFailure writes the FAILED row in its own transaction so it survives the
// rollback of the attempt. Errors here are logged; the caller still sees the
// original failure.
func (o *Orchestrator) recordFailure(ctx context.Context, a *attempt, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failedWriteTimeout)
	defer cancel()

	prefix := "FAILED: "
	if a.settlementFailed {
		prefix = "SETTLEMENT FAILED: "
	}
	txn := a.transaction(domain.TransactionStatusFailed, truncate(prefix+failureReason(cause), o.cfg.FailureReasonMaxLen))

	log := o.log.With().Str("idempotency_key", a.key).Str("type", string(a.txType)).Logger()
	log.Warn().Err(cause).Msg("transaction failed")

	dbTx, err := o.deps.Transactor.Begin(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to begin failure log transaction")
		return
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := o.deps.TxRepo.Create(ctx, dbTx, txn); err != nil {
		log.Error().Err(err).Msg("failed to record failed transaction")
		return
	}
	if err := dbTx.Commit(ctx); err != nil {
		log.Error().Err(err).Msg("failed to commit failed transaction")
	}
}

func (o *Orchestrator) afterCommit(ctx context.Context, a *attempt, txn *domain.Transaction) {
	if o.deps.IdempotencyCache != nil {
		if payload, err := json.Marshal(txn); err == nil {
			if err := o.deps.IdempotencyCache.Set(ctx, a.key, payload, o.cfg.IdempotencyTTL); err != nil {
				o.log.Warn().Err(err).Str("idempotency_key", a.key).Msg("failed to cache idempotency in redis")
			}
		}
	}

	event := domain.TransactionEvent{
		Transaction:  *txn,
		From:         a.from,
		To:           a.to,
		Counterparty: a.counterparty,
		OccurredAt:   time.Now().UTC(),
	}
	if o.deps.Publisher != nil {
		o.deps.Publisher.Publish(ctx, event)
	}

	if o.deps.Push != nil {
		for _, n := range buildNotices(event) {
			push := domain.PushNotification{CustomerID: n.Recipient.CustomerID, Message: n.Summary, Type: n.Type}
			if err := o.deps.Push.Notify(ctx, push); err != nil {
				o.log.Warn().Err(err).Str("tx_id", txn.ID.String()).Str("type", string(n.Type)).Msg("push notification failed")
			}
		}
	}
}

// classify keeps the distinguished errors and wraps everything else.
func classify(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.InternalError(err)
}

func failureReason(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			return appErr.Message + ": " + appErr.Err.Error()
		}
		return appErr.Message
	}
	return err.Error()
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func validateKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperror.Validation("idempotency key is required")
	}
	if len(key) > maxIdempotencyKeyLen {
		return apperror.Validation(fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLen))
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperror.Validation("amount must be greater than zero")
	}
	if !amount.Equal(amount.Truncate(domain.AmountScale)) {
		return apperror.Validation(fmt.Sprintf("amount supports at most %d decimal places", domain.AmountScale))
	}
	return nil
}

func validateCurrency(code string) error {
	if !domain.IsCurrencyCode(code) {
		return apperror.Validation(fmt.Sprintf("invalid currency code %q", code))
	}
	return nil
}

/*
Package sqlite provides a SQLite-backed implementation of billing.TxStore.

PURPOSE:
  Persists contracts, installment payments, holidays, and overdue-sweep runs.
  In production the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

INTERFACES IMPLEMENTED:
  billing.Store:   Contract/payment persistence
  billing.TxStore: Atomic payment application via WithTx

TRANSACTIONAL CONTRACT:
  Payment application is a read-compute-write on the contract's balance
  columns. WithTx runs the whole application inside a single database
  transaction, serialized by the store's write lock, so two concurrent
  applications on the same contract cannot interleave and corrupt the
  running balance.

KEY TABLES:
  contracts:  Agreement, schedule shape, positive/negative balances, status
  payments:   Installment obligations with one-directional status
  holidays:   Non-business days for paid-date stamping
  sweep_runs: Audit log of daily overdue sweeps

INDEXES:
  idx_payments_contract:    Liquidation check and cascade delete
  idx_payments_status_due:  Overdue sweep (hot path)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/contracts.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/contract-engine/billing"
	"github.com/warp/contract-engine/money"
)

// Store implements billing.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer at a time, and a pooled second connection to a
	// :memory: database would see a separate empty schema. One connection
	// serves both cases.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Contracts: agreement, schedule shape, running balances
	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL DEFAULT '',
		value TEXT NOT NULL,
		down_payment TEXT NOT NULL DEFAULT '0.00',
		number_of_payments INTEGER NOT NULL DEFAULT 0,
		start_date TEXT,
		positive_balance TEXT NOT NULL DEFAULT '0.00',
		negative_balance TEXT NOT NULL DEFAULT '0.00',
		status TEXT NOT NULL DEFAULT 'ativo',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts(status);
	CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts(client_id);

	-- Payments: installment obligations
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		contract_id TEXT NOT NULL REFERENCES contracts(id),
		amount TEXT NOT NULL,
		paid_amount TEXT,
		due_date TEXT NOT NULL,
		paid_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		payment_type TEXT NOT NULL,
		payment_method TEXT,
		notes TEXT,
		delta_positive TEXT,
		delta_negative TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_contract
		ON payments(contract_id);

	-- Overdue sweep hot path
	CREATE INDEX IF NOT EXISTS idx_payments_status_due
		ON payments(status, due_date);

	-- Holidays: non-business days for paid-date stamping
	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_holidays_unique
		ON holidays(date, name);

	-- Sweep Runs: audit log of daily overdue sweeps
	CREATE TABLE IF NOT EXISTS sweep_runs (
		id TEXT PRIMARY KEY,
		run_date TEXT NOT NULL,
		checked INTEGER DEFAULT 0,
		transitioned INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		error TEXT,
		started_at TEXT,
		completed_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sweep_runs_date
		ON sweep_runs(run_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx so the same statement
// helpers serve direct calls and WithTx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (s *Store) GetContract(ctx context.Context, id string) (*billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getContract(ctx, s.db, id)
}

func getContract(ctx context.Context, db execer, id string) (*billing.Contract, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, client_id, value, down_payment, number_of_payments, start_date,
		       positive_balance, negative_balance, status, created_at, updated_at
		FROM contracts WHERE id = ?`, id)

	c, err := scanContract(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) SaveContract(ctx context.Context, c billing.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveContract(ctx, s.db, c)
}

func saveContract(ctx context.Context, db execer, c billing.Contract) error {
	query := `
		INSERT INTO contracts
		(id, client_id, value, down_payment, number_of_payments, start_date,
		 positive_balance, negative_balance, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			client_id = excluded.client_id,
			value = excluded.value,
			down_payment = excluded.down_payment,
			number_of_payments = excluded.number_of_payments,
			start_date = excluded.start_date,
			positive_balance = excluded.positive_balance,
			negative_balance = excluded.negative_balance,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	createdAt := now
	if !c.CreatedAt.IsZero() {
		createdAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}

	_, err := db.ExecContext(ctx, query,
		c.ID, c.ClientID, c.Value.String(), c.DownPayment.String(),
		c.NumberOfPayments, nullTime(c.StartDate),
		c.PositiveBalance.String(), c.NegativeBalance.String(),
		string(c.Status), createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save contract: %w", err)
	}
	return nil
}

func (s *Store) ListContracts(ctx context.Context) ([]billing.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, value, down_payment, number_of_payments, start_date,
		       positive_balance, negative_balance, status, created_at, updated_at
		FROM contracts ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []billing.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *c)
	}
	return contracts, rows.Err()
}

func (s *Store) DeleteContract(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteContract(ctx, s.db, id)
}

func deleteContract(ctx context.Context, db execer, id string) error {
	var count int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE contract_id = ?", id,
	).Scan(&count); err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}
	if count > 0 {
		return billing.ErrContractHasPayments
	}

	_, err := db.ExecContext(ctx, "DELETE FROM contracts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	return nil
}

func (s *Store) UpdateContractBalances(ctx context.Context, id string, positive, negative money.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateContractBalances(ctx, s.db, id, positive, negative)
}

func updateContractBalances(ctx context.Context, db execer, id string, positive, negative money.Amount) error {
	res, err := db.ExecContext(ctx, `
		UPDATE contracts SET positive_balance = ?, negative_balance = ?, updated_at = ?
		WHERE id = ?`,
		positive.String(), negative.String(), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update balances: %w", err)
	}
	return requireRow(res, billing.ErrContractNotFound)
}

func (s *Store) UpdateContractStatus(ctx context.Context, id string, status billing.ContractStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateContractStatus(ctx, s.db, id, status)
}

func updateContractStatus(ctx context.Context, db execer, id string, status billing.ContractStatus) error {
	res, err := db.ExecContext(ctx, `
		UPDATE contracts SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(res, billing.ErrContractNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*billing.Contract, error) {
	var (
		c                  billing.Contract
		value, down        string
		positive, negative string
		startDate          sql.NullString
		status             string
		createdAt          string
		updatedAt          string
	)

	err := row.Scan(&c.ID, &c.ClientID, &value, &down, &c.NumberOfPayments,
		&startDate, &positive, &negative, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if c.Value, err = money.Parse(value); err != nil {
		return nil, fmt.Errorf("corrupt value on contract %s: %w", c.ID, err)
	}
	if c.DownPayment, err = money.Parse(down); err != nil {
		return nil, fmt.Errorf("corrupt down_payment on contract %s: %w", c.ID, err)
	}
	if c.PositiveBalance, err = money.Parse(positive); err != nil {
		return nil, fmt.Errorf("corrupt positive_balance on contract %s: %w", c.ID, err)
	}
	if c.NegativeBalance, err = money.Parse(negative); err != nil {
		return nil, fmt.Errorf("corrupt negative_balance on contract %s: %w", c.ID, err)
	}

	c.StartDate = parseTime(startDate)
	c.Status = billing.ContractStatus(status)
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

const paymentColumns = `id, contract_id, amount, paid_amount, due_date, paid_date,
	status, payment_type, payment_method, notes, delta_positive, delta_negative,
	created_at, updated_at`

func (s *Store) GetPayment(ctx context.Context, id string) (*billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPayment(ctx, s.db, id)
}

func getPayment(ctx context.Context, db execer, id string) (*billing.Payment, error) {
	row := db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)

	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) ListPaymentsByContract(ctx context.Context, contractID string) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPaymentsByContract(ctx, s.db, contractID)
}

func listPaymentsByContract(ctx context.Context, db execer, contractID string) ([]billing.Payment, error) {
	return queryPayments(ctx, db,
		"SELECT "+paymentColumns+" FROM payments WHERE contract_id = ? ORDER BY due_date ASC, created_at ASC",
		contractID)
}

func (s *Store) ListDuePending(ctx context.Context, cutoff time.Time) ([]billing.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listDuePending(ctx, s.db, cutoff)
}

func listDuePending(ctx context.Context, db execer, cutoff time.Time) ([]billing.Payment, error) {
	return queryPayments(ctx, db,
		"SELECT "+paymentColumns+" FROM payments WHERE status = ? AND due_date < ? ORDER BY due_date ASC",
		string(billing.PaymentPending), cutoff.UTC().Format(time.RFC3339))
}

// InsertPayments writes a batch of payments in its own transaction, so a
// schedule lands all-or-nothing even before the applicator's rollback path.
func (s *Store) InsertPayments(ctx context.Context, payments []billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, p := range payments {
		if err := insertPayment(ctx, sqlTx, p); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func insertPayment(ctx context.Context, db execer, p billing.Payment) error {
	query := `
		INSERT INTO payments
		(id, contract_id, amount, paid_amount, due_date, paid_date, status,
		 payment_type, payment_method, notes, delta_positive, delta_negative,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := db.ExecContext(ctx, query,
		p.ID, p.ContractID, p.Amount.String(), nullAmount(p.PaidAmount),
		p.DueDate.UTC().Format(time.RFC3339), nullTime(p.PaidDate),
		string(p.Status), string(p.PaymentType), nullString(p.PaymentMethod),
		nullString(p.Notes), nullAmount(p.DeltaPositive), nullAmount(p.DeltaNegative),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) UpdatePayment(ctx context.Context, p billing.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePayment(ctx, s.db, p)
}

func updatePayment(ctx context.Context, db execer, p billing.Payment) error {
	// Amount and due_date are immutable once created; they are deliberately
	// absent from the update set.
	query := `
		UPDATE payments SET
			paid_amount = ?, paid_date = ?, status = ?, payment_method = ?,
			notes = ?, delta_positive = ?, delta_negative = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := db.ExecContext(ctx, query,
		nullAmount(p.PaidAmount), nullTime(p.PaidDate), string(p.Status),
		nullString(p.PaymentMethod), nullString(p.Notes),
		nullAmount(p.DeltaPositive), nullAmount(p.DeltaNegative),
		time.Now().UTC().Format(time.RFC3339), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	return requireRow(res, billing.ErrPaymentNotFound)
}

func (s *Store) DeletePaymentsByContract(ctx context.Context, contractID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deletePaymentsByContract(ctx, s.db, contractID)
}

func deletePaymentsByContract(ctx context.Context, db execer, contractID string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM payments WHERE contract_id = ?", contractID)
	if err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	return nil
}

func queryPayments(ctx context.Context, db execer, query string, args ...any) ([]billing.Payment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []billing.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row rowScanner) (*billing.Payment, error) {
	var (
		p                    billing.Payment
		amount               string
		paidAmount           sql.NullString
		dueDate              string
		paidDate             sql.NullString
		status, paymentType  string
		method, notes        sql.NullString
		deltaPos, deltaNeg   sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(&p.ID, &p.ContractID, &amount, &paidAmount, &dueDate, &paidDate,
		&status, &paymentType, &method, &notes, &deltaPos, &deltaNeg,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if p.Amount, err = money.Parse(amount); err != nil {
		return nil, fmt.Errorf("corrupt amount on payment %s: %w", p.ID, err)
	}
	p.PaidAmount = parseAmount(paidAmount)
	p.DeltaPositive = parseAmount(deltaPos)
	p.DeltaNegative = parseAmount(deltaNeg)

	p.DueDate, _ = time.Parse(time.RFC3339, dueDate)
	p.PaidDate = parseTime(paidDate)
	p.Status = billing.PaymentStatus(status)
	p.PaymentType = billing.PaymentType(paymentType)
	p.PaymentMethod = method.String
	p.Notes = notes.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

// =============================================================================
// TRANSACTIONAL STORE (billing.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store's write lock
// is held for the duration, serializing concurrent payment applications.
func (s *Store) WithTx(ctx context.Context, fn func(store billing.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes Store calls through an open *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetContract(ctx context.Context, id string) (*billing.Contract, error) {
	return getContract(ctx, ts.tx, id)
}

func (ts *txStore) SaveContract(ctx context.Context, c billing.Contract) error {
	return saveContract(ctx, ts.tx, c)
}

func (ts *txStore) ListContracts(ctx context.Context) ([]billing.Contract, error) {
	return nil, fmt.Errorf("ListContracts is not supported inside a transaction")
}

func (ts *txStore) DeleteContract(ctx context.Context, id string) error {
	return deleteContract(ctx, ts.tx, id)
}

func (ts *txStore) UpdateContractBalances(ctx context.Context, id string, positive, negative money.Amount) error {
	return updateContractBalances(ctx, ts.tx, id, positive, negative)
}

func (ts *txStore) UpdateContractStatus(ctx context.Context, id string, status billing.ContractStatus) error {
	return updateContractStatus(ctx, ts.tx, id, status)
}

func (ts *txStore) GetPayment(ctx context.Context, id string) (*billing.Payment, error) {
	return getPayment(ctx, ts.tx, id)
}

func (ts *txStore) ListPaymentsByContract(ctx context.Context, contractID string) ([]billing.Payment, error) {
	return listPaymentsByContract(ctx, ts.tx, contractID)
}

func (ts *txStore) ListDuePending(ctx context.Context, cutoff time.Time) ([]billing.Payment, error) {
	return listDuePending(ctx, ts.tx, cutoff)
}

func (ts *txStore) InsertPayments(ctx context.Context, payments []billing.Payment) error {
	for _, p := range payments {
		if err := insertPayment(ctx, ts.tx, p); err != nil {
			return err
		}
	}
	return nil
}

func (ts *txStore) UpdatePayment(ctx context.Context, p billing.Payment) error {
	return updatePayment(ctx, ts.tx, p)
}

func (ts *txStore) DeletePaymentsByContract(ctx context.Context, contractID string) error {
	return deletePaymentsByContract(ctx, ts.tx, contractID)
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// Holiday is a non-business day used for paid-date stamping.
type Holiday struct {
	ID        string
	Date      time.Time
	Name      string
	CreatedAt time.Time
}

// SaveHoliday inserts a holiday. Duplicate date+name pairs are rejected by
// the unique index.
func (s *Store) SaveHoliday(ctx context.Context, h Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, date, name, created_at) VALUES (?, ?, ?, ?)`,
		h.ID, h.Date.UTC().Format("2006-01-02"), h.Name,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save holiday: %w", err)
	}
	return nil
}

// ListHolidays returns all holidays ordered by date.
func (s *Store) ListHolidays(ctx context.Context) ([]Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, date, name, created_at FROM holidays ORDER BY date ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query holidays: %w", err)
	}
	defer rows.Close()

	var holidays []Holiday
	for rows.Next() {
		var h Holiday
		var date, createdAt string
		if err := rows.Scan(&h.ID, &date, &h.Name, &createdAt); err != nil {
			return nil, err
		}
		h.Date, _ = time.Parse("2006-01-02", date)
		h.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// DeleteHoliday removes a holiday by ID.
func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete holiday: %w", err)
	}
	return nil
}

// LoadCalendar builds a business-day calendar from the stored holidays.
func (s *Store) LoadCalendar(ctx context.Context) (*billing.WeekendCalendar, error) {
	holidays, err := s.ListHolidays(ctx)
	if err != nil {
		return nil, err
	}

	byDate := make(map[string]string, len(holidays))
	for _, h := range holidays {
		byDate[h.Date.Format("2006-01-02")] = h.Name
	}
	return &billing.WeekendCalendar{Holidays: byDate}, nil
}

// =============================================================================
// SWEEP RUNS
// =============================================================================

// SweepRun is the audit record of one overdue sweep.
type SweepRun struct {
	ID           string
	RunDate      time.Time
	Checked      int
	Transitioned int
	Failed       int
	Status       string // running, completed, failed
	Error        string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

// SaveSweepRun inserts or updates a sweep run record.
func (s *Store) SaveSweepRun(ctx context.Context, run SweepRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sweep_runs
		(id, run_date, checked, transitioned, failed, status, error, started_at, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			checked = excluded.checked,
			transitioned = excluded.transitioned,
			failed = excluded.failed,
			status = excluded.status,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.RunDate.UTC().Format("2006-01-02"),
		run.Checked, run.Transitioned, run.Failed,
		run.Status, nullString(run.Error),
		nullTimePtr(run.StartedAt), nullTimePtr(run.CompletedAt),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save sweep run: %w", err)
	}
	return nil
}

// ListSweepRuns returns sweep runs, newest first.
func (s *Store) ListSweepRuns(ctx context.Context, limit int) ([]SweepRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_date, checked, transitioned, failed, status, error, started_at, completed_at, created_at
		FROM sweep_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var (
			run                    SweepRun
			runDate, createdAt     string
			errMsg                 sql.NullString
			startedAt, completedAt sql.NullString
		)
		if err := rows.Scan(&run.ID, &runDate, &run.Checked, &run.Transitioned,
			&run.Failed, &run.Status, &errMsg, &startedAt, &completedAt, &createdAt); err != nil {
			return nil, err
		}
		run.RunDate, _ = time.Parse("2006-01-02", runDate)
		run.Error = errMsg.String
		if t := parseTime(startedAt); !t.IsZero() {
			run.StartedAt = &t
		}
		if t := parseTime(completedAt); !t.IsZero() {
			run.CompletedAt = &t
		}
		run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// HasCompletedSweep reports whether a completed sweep run exists for a date.
func (s *Store) HasCompletedSweep(ctx context.Context, runDate time.Time) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sweep_runs WHERE run_date = ? AND status = 'completed'",
		runDate.UTC().Format("2006-01-02"),
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// HELPERS
// =============================================================================

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullAmount(a money.Amount) any {
	if a.IsZero() {
		return nil
	}
	return a.String()
}

func parseTime(s sql.NullString) time.Time {
	if !s.Valid || s.String == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, s.String)
	return t
}

func parseAmount(s sql.NullString) money.Amount {
	if !s.Valid || s.String == "" {
		return money.Zero
	}
	a, err := money.Parse(s.String)
	if err != nil {
		return money.Zero
	}
	return a
}

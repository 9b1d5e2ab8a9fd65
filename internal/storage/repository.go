package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"subwatch/internal/core"
	"subwatch/internal/log"
	"subwatch/internal/services"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"

	// plannedPaymentBatchSize bounds one INSERT batch during re-projection.
	plannedPaymentBatchSize = 50
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// The pragma rides on the DSN so every pooled connection enforces
	// foreign keys, which the planned-payment cascade relies on.
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner_id, name) VALUES (?, ?, ?)`,
		a.ID, a.OwnerID, a.Name)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name FROM accounts WHERE owner_id = ? ORDER BY name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.OwnerID, &a.Name); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// --- transactions ---

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.TransactionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, account_id, date, type, merchant_name, encrypted_description, encrypted_amount)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.AccountID, t.Date.Format(dateLayout), string(t.Type),
		t.MerchantName, t.EncryptedDescription, t.EncryptedAmount)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListTransactionsSince(ctx context.Context, ownerID string, since core.Date) ([]core.TransactionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, account_id, date, type, merchant_name, encrypted_description, encrypted_amount
		 FROM transactions WHERE owner_id = ? AND date >= ? ORDER BY date`,
		ownerID, since.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var records []core.TransactionRecord
	for rows.Next() {
		var (
			rec     core.TransactionRecord
			rawDate string
			rawType string
		)
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.AccountID, &rawDate, &rawType,
			&rec.MerchantName, &rec.EncryptedDescription, &rec.EncryptedAmount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		d, err := parseDate(rawDate)
		if err != nil {
			// Tolerate a corrupt date rather than failing the whole read.
			r.logger.Warn("skipping transaction with invalid date",
				"transaction_id", rec.ID, log.FieldError, err)
			continue
		}
		rec.Date = d
		rec.Type = core.TransactionType(rawType)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// --- subscriptions ---

func (r *SQLiteRepository) CreateSubscription(ctx context.Context, s core.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, owner_id, service_name, amount_cents, billing_frequency, billing_day, account_id, first_billing_date, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, s.ServiceName, s.Amount.Cents, string(s.BillingFrequency),
		billingDayValue(s.BillingDay), s.AccountID, s.FirstBillingDate.Format(dateLayout),
		boolToInt(s.IsActive), s.CreatedAt.UTC().Format(time.RFC3339), s.UpdatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSubscription(ctx context.Context, ownerID, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, service_name, amount_cents, billing_frequency, billing_day, account_id, first_billing_date, is_active, created_at, updated_at
		 FROM subscriptions WHERE id = ? AND owner_id = ?`,
		id, ownerID)

	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, &core.NotFoundError{Resource: "subscription", ID: id}
	}
	if err != nil {
		return core.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	return sub, nil
}

func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET service_name = ?, amount_cents = ?, billing_frequency = ?, billing_day = ?, account_id = ?, first_billing_date = ?, is_active = ?, updated_at = ?
		 WHERE id = ? AND owner_id = ?`,
		s.ServiceName, s.Amount.Cents, string(s.BillingFrequency), billingDayValue(s.BillingDay),
		s.AccountID, s.FirstBillingDate.Format(dateLayout), boolToInt(s.IsActive), s.UpdatedAt.UTC().Format(time.RFC3339),
		s.ID, s.OwnerID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{Resource: "subscription", ID: s.ID}
	}
	return nil
}

func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.NotFoundError{Resource: "subscription", ID: id}
	}
	return nil
}

func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, service_name, amount_cents, billing_frequency, billing_day, account_id, first_billing_date, is_active, created_at, updated_at
		 FROM subscriptions WHERE owner_id = ? ORDER BY service_name`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// --- planned payments ---

// ReplacePlannedPayments swaps all non-paid rows of the subscription for the
// given rows in a single transaction, so a crash mid-replace never leaves the
// subscription half-projected. Inserts run in fixed-size batches; a failed
// batch item is logged and skipped, never aborting the rest.
func (r *SQLiteRepository) ReplacePlannedPayments(ctx context.Context, subscriptionID string, rows []core.PlannedPayment) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM planned_payments WHERE subscription_id = ? AND status != ?`,
		subscriptionID, string(core.PaymentPaid)); err != nil {
		return 0, fmt.Errorf("delete planned payments: %w", err)
	}

	written := 0
	for start := 0; start < len(rows); start += plannedPaymentBatchSize {
		end := start + plannedPaymentBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		for _, p := range rows[start:end] {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO planned_payments (subscription_id, account_id, date, amount_cents, status)
				 VALUES (?, ?, ?, ?, ?)`,
				p.SubscriptionID, p.AccountID, p.Date.Format(dateLayout), p.Amount.Cents, string(p.Status))
			if err != nil {
				r.logger.Error("failed to insert planned payment, skipping",
					log.FieldSubscriptionID, p.SubscriptionID,
					"date", p.Date.String(),
					log.FieldError, err)
				continue
			}
			written++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit replace: %w", err)
	}
	return written, nil
}

func (r *SQLiteRepository) DeleteUnpaidPlannedPayments(ctx context.Context, subscriptionID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM planned_payments WHERE subscription_id = ? AND status != ?`,
		subscriptionID, string(core.PaymentPaid))
	if err != nil {
		return fmt.Errorf("delete planned payments: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPlannedPayments(ctx context.Context, subscriptionID string) ([]core.PlannedPayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subscription_id, account_id, date, amount_cents, status
		 FROM planned_payments WHERE subscription_id = ? ORDER BY date`,
		subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("list planned payments: %w", err)
	}
	defer rows.Close()

	var payments []core.PlannedPayment
	for rows.Next() {
		var (
			p       core.PlannedPayment
			rawDate string
			status  string
			cents   int64
		)
		if err := rows.Scan(&p.ID, &p.SubscriptionID, &p.AccountID, &rawDate, &cents, &status); err != nil {
			return nil, fmt.Errorf("scan planned payment: %w", err)
		}
		d, err := parseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse planned payment date: %w", err)
		}
		p.Date = d
		p.Amount = core.Money{Cents: cents}
		p.Status = core.PaymentStatus(status)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListDuePlannedPayments returns scheduled payments dated asOf or earlier,
// joined with the subscription they belong to, for the materializer.
func (r *SQLiteRepository) ListDuePlannedPayments(ctx context.Context, asOf core.Date, limit int) ([]services.DuePayment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.subscription_id, s.owner_id, s.service_name, p.account_id, p.date, p.amount_cents
		 FROM planned_payments p
		 JOIN subscriptions s ON s.id = p.subscription_id
		 WHERE p.status = ? AND p.date <= ? AND s.is_active = 1
		 ORDER BY p.date
		 LIMIT ?`,
		string(core.PaymentScheduled), asOf.Format(dateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("list due payments: %w", err)
	}
	defer rows.Close()

	var due []services.DuePayment
	for rows.Next() {
		var (
			p       services.DuePayment
			rawDate string
			cents   int64
		)
		if err := rows.Scan(&p.PaymentID, &p.SubscriptionID, &p.OwnerID, &p.ServiceName, &p.AccountID, &rawDate, &cents); err != nil {
			return nil, fmt.Errorf("scan due payment: %w", err)
		}
		d, err := parseDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("parse due payment date: %w", err)
		}
		p.Date = d
		p.Amount = core.Money{Cents: cents}
		due = append(due, p)
	}
	return due, rows.Err()
}

func (r *SQLiteRepository) MarkPlannedPaymentPaid(ctx context.Context, paymentID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE planned_payments SET status = ? WHERE id = ? AND status = ?`,
		string(core.PaymentPaid), paymentID, string(core.PaymentScheduled))
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("payment %d not in scheduled state", paymentID)
	}
	return nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		s                    core.Subscription
		cents                int64
		frequency            string
		billingDay           sql.NullInt64
		rawFirst             string
		isActive             int
		createdAt, updatedAt string
	)
	err := row.Scan(&s.ID, &s.OwnerID, &s.ServiceName, &cents, &frequency, &billingDay,
		&s.AccountID, &rawFirst, &isActive, &createdAt, &updatedAt)
	if err != nil {
		return core.Subscription{}, err
	}
	s.Amount = core.Money{Cents: cents}
	s.BillingFrequency = core.Frequency(frequency)
	if billingDay.Valid {
		day := int(billingDay.Int64)
		s.BillingDay = &day
	}
	first, err := parseDate(rawFirst)
	if err != nil {
		return core.Subscription{}, err
	}
	s.FirstBillingDate = first
	s.IsActive = isActive != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		s.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		s.UpdatedAt = t
	}
	return s, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}

func billingDayValue(day *int) any {
	if day == nil {
		return nil
	}
	return *day
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package services

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"subwatch/internal/amqp"
	"subwatch/internal/core"
	"subwatch/internal/crypto"
	"subwatch/internal/log"
)

// DuePayment is a scheduled payment whose date has arrived, joined with the
// subscription it belongs to.
type DuePayment struct {
	PaymentID      int64
	SubscriptionID string
	OwnerID        string
	ServiceName    string
	AccountID      string
	Date           core.Date
	Amount         core.Money
}

// MaterializerStore is the persistence contract for turning due planned
// payments into real transactions.
type MaterializerStore interface {
	ListDuePlannedPayments(ctx context.Context, asOf core.Date, limit int) ([]DuePayment, error)
	InsertTransaction(ctx context.Context, rec core.TransactionRecord) error
	MarkPlannedPaymentPaid(ctx context.Context, paymentID int64) error
}

// Materializer periodically converts due scheduled payments into recorded
// transactions and marks them paid. It runs outside the request path, in its
// own process or goroutine.
type Materializer struct {
	store     MaterializerStore
	codec     crypto.Codec
	publisher InvalidationPublisher
	interval  time.Duration
	batchSize int
	logger    *log.Logger
	now       func() time.Time

	stop chan struct{}
	done chan struct{}
}

func NewMaterializer(store MaterializerStore, codec crypto.Codec, publisher InvalidationPublisher, interval time.Duration, batchSize int, logger *log.Logger) *Materializer {
	return &Materializer{
		store:     store,
		codec:     codec,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the poll loop until Stop is called or ctx is cancelled.
func (m *Materializer) Start(ctx context.Context) {
	go m.run(ctx)
}

func (m *Materializer) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("materializer started", "interval", m.interval.String())

	// First pass immediately so a restart does not wait a full interval.
	m.ProcessDue(ctx, core.DateOf(m.now()))

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			m.ProcessDue(ctx, core.DateOf(m.now()))
		}
	}
}

// Stop terminates the poll loop and waits for it to finish.
func (m *Materializer) Stop() {
	close(m.stop)
	<-m.done
}

// ProcessDue materializes every scheduled payment dated asOf or earlier.
// Failures are isolated per payment: one bad row is logged and skipped, the
// rest of the batch still goes through.
func (m *Materializer) ProcessDue(ctx context.Context, asOf core.Date) int {
	due, err := m.store.ListDuePlannedPayments(ctx, asOf, m.batchSize)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to list due payments", log.FieldError, err)
		return 0
	}
	if len(due) == 0 {
		return 0
	}

	processed := 0
	for _, p := range due {
		if err := m.materialize(ctx, p); err != nil {
			m.logger.ErrorContext(ctx, "failed to materialize payment",
				log.FieldSubscriptionID, p.SubscriptionID,
				"payment_id", p.PaymentID,
				log.FieldError, err)
			continue
		}
		processed++
	}

	m.logger.InfoContext(ctx, "materialized due payments",
		"due", len(due),
		"processed", processed)
	return processed
}

func (m *Materializer) materialize(ctx context.Context, p DuePayment) error {
	encDesc, err := m.codec.Encrypt(p.ServiceName)
	if err != nil {
		return err
	}
	encAmount, err := m.codec.Encrypt(formatCents(p.Amount.Cents))
	if err != nil {
		return err
	}

	rec := core.TransactionRecord{
		ID:                   uuid.NewString(),
		OwnerID:              p.OwnerID,
		AccountID:            p.AccountID,
		Date:                 p.Date,
		Type:                 core.TypeExpense,
		MerchantName:         p.ServiceName,
		EncryptedDescription: encDesc,
		EncryptedAmount:      encAmount,
	}
	if err := m.store.InsertTransaction(ctx, rec); err != nil {
		return err
	}
	if err := m.store.MarkPlannedPaymentPaid(ctx, p.PaymentID); err != nil {
		return err
	}

	if m.publisher != nil {
		if err := m.publisher.PublishSubscriptionChanged(ctx, p.OwnerID, p.SubscriptionID, amqp.ActionUpdated); err != nil {
			m.logger.ErrorContext(ctx, "failed to publish materialization",
				log.FieldSubscriptionID, p.SubscriptionID,
				log.FieldError, err)
		}
	}
	return nil
}

// formatCents renders cents as a plain decimal string, e.g. 1599 -> "15.99".
func formatCents(cents int64) string {
	return strconv.FormatInt(cents/100, 10) + "." + pad2(cents%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"subwatch/internal/amqp"
	"subwatch/internal/cache"
	"subwatch/internal/core"
	"subwatch/internal/crypto"
	"subwatch/internal/log"
)

// SubscriptionStore is the persistence contract for confirmed subscriptions.
// Lookups are owner-scoped; a row owned by someone else reads as not found.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub core.Subscription) error
	GetSubscription(ctx context.Context, ownerID, id string) (core.Subscription, error)
	UpdateSubscription(ctx context.Context, sub core.Subscription) error
	DeleteSubscription(ctx context.Context, ownerID, id string) error
	ListSubscriptions(ctx context.Context, ownerID string) ([]core.Subscription, error)
	ListPlannedPayments(ctx context.Context, subscriptionID string) ([]core.PlannedPayment, error)
}

// TransactionSource provides the raw transaction rows detection reads from.
type TransactionSource interface {
	ListTransactionsSince(ctx context.Context, ownerID string, since core.Date) ([]core.TransactionRecord, error)
}

// AccountSource resolves account ids to display names.
type AccountSource interface {
	ListAccounts(ctx context.Context, ownerID string) ([]core.Account, error)
}

// InvalidationPublisher signals subscription mutations to interested
// consumers (dashboards, other processes holding detection caches).
type InvalidationPublisher interface {
	PublishSubscriptionChanged(ctx context.Context, ownerID, subscriptionID, action string) error
}

// CreateSubscriptionInput is the payload for confirming a subscription,
// typically copied from a DetectedSubscription the user accepted.
type CreateSubscriptionInput struct {
	ServiceName      string         `json:"serviceName"`
	Amount           core.Money     `json:"amount"`
	BillingFrequency core.Frequency `json:"billingFrequency"`
	BillingDay       *int           `json:"billingDay,omitempty"`
	AccountID        string         `json:"accountId"`
	FirstBillingDate core.Date      `json:"firstBillingDate"`
}

// UpdateSubscriptionPatch carries partial updates; nil fields stay unchanged.
type UpdateSubscriptionPatch struct {
	ServiceName      *string         `json:"serviceName,omitempty"`
	Amount           *core.Money     `json:"amount,omitempty"`
	BillingFrequency *core.Frequency `json:"billingFrequency,omitempty"`
	BillingDay       *int            `json:"billingDay,omitempty"`
	AccountID        *string         `json:"accountId,omitempty"`
	FirstBillingDate *core.Date      `json:"firstBillingDate,omitempty"`
}

// SubscriptionService owns the subscription lifecycle: detection of
// candidates, CRUD on confirmed subscriptions, and the projection and
// invalidation side effects every mutation triggers.
type SubscriptionService struct {
	store        SubscriptionStore
	transactions TransactionSource
	accounts     AccountSource
	projector    *Projector
	codec        crypto.Codec
	publisher    InvalidationPublisher
	detections   cache.Cache[[]core.DetectedSubscription]
	coordinator  *DetectionCoordinator
	windowMonths int
	logger       *log.Logger
	now          func() time.Time
}

func NewSubscriptionService(
	store SubscriptionStore,
	transactions TransactionSource,
	accounts AccountSource,
	projector *Projector,
	codec crypto.Codec,
	publisher InvalidationPublisher,
	detections cache.Cache[[]core.DetectedSubscription],
	coordinator *DetectionCoordinator,
	windowMonths int,
	logger *log.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		store:        store,
		transactions: transactions,
		accounts:     accounts,
		projector:    projector,
		codec:        codec,
		publisher:    publisher,
		detections:   detections,
		coordinator:  coordinator,
		windowMonths: windowMonths,
		logger:       logger.WithComponent(log.ComponentDetector),
		now:          time.Now,
	}
}

// DetectSubscriptions scans the owner's recent transactions for recurring
// charges. An empty owner id yields an empty list, never an error. Results
// are cached per owner and concurrent calls for the same owner share one
// computation.
func (s *SubscriptionService) DetectSubscriptions(ctx context.Context, ownerID string) ([]core.DetectedSubscription, error) {
	if ownerID == "" {
		return []core.DetectedSubscription{}, nil
	}

	if s.detections != nil {
		if cached, ok := s.detections.Get(ownerID); ok {
			return cached, nil
		}
	}

	run := func(ctx context.Context) ([]core.DetectedSubscription, error) {
		return s.runDetection(ctx, ownerID)
	}
	if s.coordinator != nil {
		return s.coordinator.Detect(ctx, ownerID, run)
	}
	return run(ctx)
}

func (s *SubscriptionService) runDetection(ctx context.Context, ownerID string) ([]core.DetectedSubscription, error) {
	now := s.now()
	since := core.DateOf(now).AddDate(0, -s.windowMonths, 0)

	var (
		records  []core.TransactionRecord
		accounts []core.Account
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.transactions.ListTransactionsSince(gctx, ownerID, core.DateOf(since))
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.accounts.ListAccounts(gctx, ownerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, &core.PersistenceError{Op: "load detection inputs", Err: err}
	}

	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}

	transactions := s.decryptAll(ctx, records)
	detected := Detect(transactions, s.windowMonths, now, accountNames)
	if detected == nil {
		detected = []core.DetectedSubscription{}
	}

	s.logger.InfoContext(ctx, "detection run complete",
		log.FieldOwnerID, ownerID,
		log.FieldCandidates, len(detected))

	if s.detections != nil {
		s.detections.Set(ownerID, detected)
	}
	return detected, nil
}

// decryptAll resolves stored rows into detection-ready transactions. An
// undecryptable field marks that transaction skippable, it never fails the run.
func (s *SubscriptionService) decryptAll(ctx context.Context, records []core.TransactionRecord) []core.Transaction {
	transactions := make([]core.Transaction, 0, len(records))
	for _, rec := range records {
		tx := core.Transaction{
			ID:           rec.ID,
			OwnerID:      rec.OwnerID,
			AccountID:    rec.AccountID,
			Date:         rec.Date,
			Type:         rec.Type,
			MerchantName: rec.MerchantName,
		}

		if rec.EncryptedDescription != "" {
			if desc, err := s.codec.Decrypt(rec.EncryptedDescription); err == nil {
				tx.Description = desc
			} else {
				s.logger.Warn("undecryptable description, skipping field",
					log.FieldError, err)
			}
		}

		if rec.EncryptedAmount != "" {
			if raw, err := s.codec.Decrypt(rec.EncryptedAmount); err == nil {
				if cents, err := core.ParseDecimalToCents(raw); err == nil {
					tx.AmountCents = cents
					tx.AmountValid = true
				}
			} else {
				s.logger.Warn("undecryptable amount, skipping transaction amount",
					log.FieldError, err)
			}
		}

		transactions = append(transactions, tx)
	}
	return transactions
}

// Create confirms a subscription and projects its planned payments.
func (s *SubscriptionService) Create(ctx context.Context, ownerID string, input CreateSubscriptionInput) (core.Subscription, error) {
	now := s.now()
	sub := core.Subscription{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		ServiceName:      input.ServiceName,
		Amount:           input.Amount,
		BillingFrequency: input.BillingFrequency,
		BillingDay:       input.BillingDay,
		AccountID:        input.AccountID,
		FirstBillingDate: input.FirstBillingDate,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, &core.ValidationError{Message: err.Error()}
	}

	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, &core.PersistenceError{Op: "create subscription", Err: err}
	}

	s.replan(ctx, sub)
	s.invalidate(ctx, ownerID, sub.ID, amqp.ActionCreated)
	return sub, nil
}

// Update applies a partial update and regenerates the projection.
func (s *SubscriptionService) Update(ctx context.Context, ownerID, id string, patch UpdateSubscriptionPatch) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, ownerID, id)
	if err != nil {
		return core.Subscription{}, err
	}

	if patch.ServiceName != nil {
		sub.ServiceName = *patch.ServiceName
	}
	if patch.Amount != nil {
		sub.Amount = *patch.Amount
	}
	if patch.BillingFrequency != nil {
		sub.BillingFrequency = *patch.BillingFrequency
	}
	if patch.BillingDay != nil {
		sub.BillingDay = patch.BillingDay
	}
	if patch.AccountID != nil {
		sub.AccountID = *patch.AccountID
	}
	if patch.FirstBillingDate != nil {
		sub.FirstBillingDate = *patch.FirstBillingDate
	}
	sub.UpdatedAt = s.now()

	if err := sub.Validate(); err != nil {
		return core.Subscription{}, &core.ValidationError{Message: err.Error()}
	}
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, &core.PersistenceError{Op: "update subscription", Err: err}
	}

	s.replan(ctx, sub)
	s.invalidate(ctx, ownerID, sub.ID, amqp.ActionUpdated)
	return sub, nil
}

// Pause deactivates the subscription and removes its scheduled payments.
func (s *SubscriptionService) Pause(ctx context.Context, ownerID, id string) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, ownerID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.IsActive = false
	sub.UpdatedAt = s.now()
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, &core.PersistenceError{Op: "pause subscription", Err: err}
	}

	if err := s.projector.Clear(ctx, sub.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear planned payments",
			log.FieldSubscriptionID, sub.ID,
			log.FieldError, err)
	}
	s.invalidate(ctx, ownerID, sub.ID, amqp.ActionPaused)
	return sub, nil
}

// Resume reactivates the subscription and regenerates its scheduled payments
// from the original anchor forward.
func (s *SubscriptionService) Resume(ctx context.Context, ownerID, id string) (core.Subscription, error) {
	sub, err := s.store.GetSubscription(ctx, ownerID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.IsActive = true
	sub.UpdatedAt = s.now()
	if err := s.store.UpdateSubscription(ctx, sub); err != nil {
		return core.Subscription{}, &core.PersistenceError{Op: "resume subscription", Err: err}
	}

	s.replan(ctx, sub)
	s.invalidate(ctx, ownerID, sub.ID, amqp.ActionResumed)
	return sub, nil
}

// Delete removes the subscription; planned payments go with it via the
// store's cascade.
func (s *SubscriptionService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.store.GetSubscription(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteSubscription(ctx, ownerID, id); err != nil {
		return &core.PersistenceError{Op: "delete subscription", Err: err}
	}
	s.invalidate(ctx, ownerID, id, amqp.ActionDeleted)
	return nil
}

// List returns all subscriptions of an owner.
func (s *SubscriptionService) List(ctx context.Context, ownerID string) ([]core.Subscription, error) {
	subs, err := s.store.ListSubscriptions(ctx, ownerID)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list subscriptions", Err: err}
	}
	if subs == nil {
		subs = []core.Subscription{}
	}
	return subs, nil
}

// ListPlannedPayments returns the projected payments of one owned subscription.
func (s *SubscriptionService) ListPlannedPayments(ctx context.Context, ownerID, id string) ([]core.PlannedPayment, error) {
	if _, err := s.store.GetSubscription(ctx, ownerID, id); err != nil {
		return nil, err
	}
	payments, err := s.store.ListPlannedPayments(ctx, id)
	if err != nil {
		return nil, &core.PersistenceError{Op: "list planned payments", Err: err}
	}
	if payments == nil {
		payments = []core.PlannedPayment{}
	}
	return payments, nil
}

// replan regenerates the projection. Projection failures never fail the
// triggering mutation, they are logged and the next mutation retries.
func (s *SubscriptionService) replan(ctx context.Context, sub core.Subscription) {
	if _, err := s.projector.Replan(ctx, sub, core.DateOf(s.now())); err != nil {
		s.logger.ErrorContext(ctx, "projection failed",
			log.FieldSubscriptionID, sub.ID,
			log.FieldError, err)
	}
}

// invalidate drops cached detection results for the owner and broadcasts the
// mutation. Both are best effort.
func (s *SubscriptionService) invalidate(ctx context.Context, ownerID, subscriptionID, action string) {
	if s.detections != nil {
		s.detections.Delete(ownerID)
	}
	if s.coordinator != nil {
		s.coordinator.Forget(ownerID)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSubscriptionChanged(ctx, ownerID, subscriptionID, action); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish invalidation",
				log.FieldOwnerID, ownerID,
				log.FieldSubscriptionID, subscriptionID,
				log.FieldError, err)
		}
	}
}

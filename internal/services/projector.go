package services

import (
	"context"

	"subwatch/internal/core"
	"subwatch/internal/log"
)

// maxProjectionSteps bounds the cadence walk so a calculator defect can never
// spin the projector forever.
const maxProjectionSteps = 100

// PlannedPaymentStore is the persistence contract for projected payments.
// ReplacePlannedPayments swaps all non-paid rows of a subscription for the
// given rows in one transaction and reports how many rows were written.
type PlannedPaymentStore interface {
	ReplacePlannedPayments(ctx context.Context, subscriptionID string, rows []core.PlannedPayment) (int, error)
	DeleteUnpaidPlannedPayments(ctx context.Context, subscriptionID string) error
}

// Project computes the planned payments of a subscription inside the horizon
// window starting at today. Pure: nothing is persisted. Inactive subscriptions,
// subscriptions without an account, and non-positive amounts project nothing.
func Project(sub core.Subscription, horizonDays int, today core.Date) []core.PlannedPayment {
	if !sub.IsActive || sub.AccountID == "" || sub.Amount.Cents <= 0 {
		return nil
	}

	horizon := core.DateOf(today.AddDate(0, 0, horizonDays))
	anchor := core.DateOf(sub.FirstBillingDate.Time)
	current := anchor

	var planned []core.PlannedPayment
	for i := 0; i < maxProjectionSteps; i++ {
		if current.After(horizon.Time) {
			break
		}
		if !current.Before(today.Time) {
			planned = append(planned, core.PlannedPayment{
				SubscriptionID: sub.ID,
				AccountID:      sub.AccountID,
				Date:           current,
				Amount:         sub.Amount,
				Status:         core.PaymentScheduled,
			})
		}
		current = NextBillingDate(current, sub.BillingFrequency, anchor)
	}
	return planned
}

// Projector regenerates the persisted projection of a subscription after
// every mutation.
type Projector struct {
	store       PlannedPaymentStore
	horizonDays int
	logger      *log.Logger
}

func NewProjector(store PlannedPaymentStore, horizonDays int, logger *log.Logger) *Projector {
	return &Projector{
		store:       store,
		horizonDays: horizonDays,
		logger:      logger.WithComponent(log.ComponentProject),
	}
}

// Replan deletes every non-paid planned payment of the subscription and
// writes the freshly projected set, all within one store transaction. Rows
// already marked paid belong to the materializer and are never touched.
func (p *Projector) Replan(ctx context.Context, sub core.Subscription, today core.Date) (int, error) {
	rows := Project(sub, p.horizonDays, today)
	written, err := p.store.ReplacePlannedPayments(ctx, sub.ID, rows)
	if err != nil {
		return 0, err
	}
	p.logger.InfoContext(ctx, "replanned subscription payments",
		log.FieldSubscriptionID, sub.ID,
		log.FieldPlanned, written)
	return written, nil
}

// Clear removes all non-paid planned payments, used when a subscription is
// paused or deleted.
func (p *Projector) Clear(ctx context.Context, subscriptionID string) error {
	if err := p.store.DeleteUnpaidPlannedPayments(ctx, subscriptionID); err != nil {
		return err
	}
	p.logger.InfoContext(ctx, "cleared planned payments",
		log.FieldSubscriptionID, subscriptionID)
	return nil
}

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"subwatch/internal/core"
	"subwatch/internal/log"
)

func testRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"), log.New(log.DefaultConfig()))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedAccount(t *testing.T, repo *SQLiteRepository) core.Account {
	t.Helper()
	a := core.Account{ID: "acc-1", OwnerID: "owner-1", Name: "Checking"}
	if err := repo.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return a
}

func seedSubscription(t *testing.T, repo *SQLiteRepository) core.Subscription {
	t.Helper()
	day := 5
	sub := core.Subscription{
		ID:               "sub-1",
		OwnerID:          "owner-1",
		ServiceName:      "Spotify",
		Amount:           core.Money{Cents: 1599},
		BillingFrequency: core.Monthly,
		BillingDay:       &day,
		AccountID:        "acc-1",
		FirstBillingDate: core.NewDate(2024, 1, 5),
		IsActive:         true,
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
		UpdatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.CreateSubscription(context.Background(), sub); err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

func TestSubscriptionRoundTrip(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	sub := seedSubscription(t, repo)

	got, err := repo.GetSubscription(context.Background(), "owner-1", sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ServiceName != "Spotify" || got.Amount.Cents != 1599 {
		t.Fatalf("unexpected subscription %+v", got)
	}
	if got.BillingDay == nil || *got.BillingDay != 5 {
		t.Fatalf("expected billing day 5, got %v", got.BillingDay)
	}
	if !got.FirstBillingDate.Equal(core.NewDate(2024, 1, 5).Time) {
		t.Fatalf("unexpected first billing date %s", got.FirstBillingDate)
	}
	if !got.IsActive {
		t.Fatal("expected active subscription")
	}
}

func TestGetSubscriptionScopedToOwner(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	sub := seedSubscription(t, repo)

	if _, err := repo.GetSubscription(context.Background(), "owner-2", sub.ID); !core.IsNotFound(err) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if _, err := repo.GetSubscription(context.Background(), "owner-1", "missing"); !core.IsNotFound(err) {
		t.Fatalf("expected not found for missing id, got %v", err)
	}
}

func TestUpdateSubscription(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	sub := seedSubscription(t, repo)

	sub.ServiceName = "Spotify Family"
	sub.Amount = core.Money{Cents: 1999}
	sub.IsActive = false
	if err := repo.UpdateSubscription(context.Background(), sub); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.GetSubscription(context.Background(), "owner-1", sub.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ServiceName != "Spotify Family" || got.Amount.Cents != 1999 || got.IsActive {
		t.Fatalf("update not persisted: %+v", got)
	}

	foreign := sub
	foreign.OwnerID = "owner-2"
	if err := repo.UpdateSubscription(context.Background(), foreign); !core.IsNotFound(err) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
}

func TestDeleteSubscriptionCascadesPlannedPayments(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	sub := seedSubscription(t, repo)

	rows := []core.PlannedPayment{
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 2, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
	}
	if _, err := repo.ReplacePlannedPayments(context.Background(), sub.ID, rows); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if err := repo.DeleteSubscription(context.Background(), "owner-1", sub.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	payments, err := repo.ListPlannedPayments(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("list payments: %v", err)
	}
	if len(payments) != 0 {
		t.Fatalf("expected cascade delete, %d rows left", len(payments))
	}
}

func TestReplacePlannedPaymentsKeepsPaidRows(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	sub := seedSubscription(t, repo)
	ctx := context.Background()

	initial := []core.PlannedPayment{
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 2, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 3, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
	}
	if _, err := repo.ReplacePlannedPayments(ctx, sub.ID, initial); err != nil {
		t.Fatalf("replace: %v", err)
	}

	payments, err := repo.ListPlannedPayments(ctx, sub.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(payments))
	}

	if err := repo.MarkPlannedPaymentPaid(ctx, payments[0].ID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}

	replacement := []core.PlannedPayment{
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 4, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
	}
	written, err := repo.ReplacePlannedPayments(ctx, sub.ID, replacement)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if written != 1 {
		t.Fatalf("expected 1 written row, got %d", written)
	}

	payments, err = repo.ListPlannedPayments(ctx, sub.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("expected paid + new row, got %d rows", len(payments))
	}
	paid := 0
	for _, p := range payments {
		if p.Status == core.PaymentPaid {
			paid++
		}
	}
	if paid != 1 {
		t.Fatalf("expected exactly one paid row, got %d", paid)
	}
}

func TestListDuePlannedPayments(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	sub := seedSubscription(t, repo)
	ctx := context.Background()

	rows := []core.PlannedPayment{
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 2, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 3, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
		{SubscriptionID: sub.ID, AccountID: "acc-1", Date: core.NewDate(2024, 4, 5), Amount: sub.Amount, Status: core.PaymentScheduled},
	}
	if _, err := repo.ReplacePlannedPayments(ctx, sub.ID, rows); err != nil {
		t.Fatalf("replace: %v", err)
	}

	due, err := repo.ListDuePlannedPayments(ctx, core.NewDate(2024, 3, 10), 100)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due payments, got %d", len(due))
	}
	for _, d := range due {
		if d.OwnerID != "owner-1" || d.ServiceName != "Spotify" {
			t.Fatalf("join fields missing: %+v", d)
		}
	}

	// Paid rows drop out of the due list.
	if err := repo.MarkPlannedPaymentPaid(ctx, due[0].PaymentID); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	due, err = repo.ListDuePlannedPayments(ctx, core.NewDate(2024, 3, 10), 100)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected 1 due payment after paying one, got %d", len(due))
	}
}

func TestTransactionsSince(t *testing.T) {
	repo := testRepo(t)
	seedAccount(t, repo)
	ctx := context.Background()

	old := core.TransactionRecord{
		ID: "t-old", OwnerID: "owner-1", AccountID: "acc-1",
		Date: core.NewDate(2023, 1, 5), Type: core.TypeExpense, MerchantName: "Spotify",
	}
	recent := core.TransactionRecord{
		ID: "t-new", OwnerID: "owner-1", AccountID: "acc-1",
		Date: core.NewDate(2024, 2, 5), Type: core.TypeExpense, MerchantName: "Spotify",
		EncryptedAmount: "15.99",
	}
	for _, rec := range []core.TransactionRecord{old, recent} {
		if err := repo.InsertTransaction(ctx, rec); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	records, err := repo.ListTransactionsSince(ctx, "owner-1", core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].ID != "t-new" {
		t.Fatalf("expected only the recent transaction, got %+v", records)
	}
	if records[0].EncryptedAmount != "15.99" {
		t.Fatalf("unexpected amount field %q", records[0].EncryptedAmount)
	}
}

package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Daily       Frequency = "daily"
	Weekly      Frequency = "weekly"
	Biweekly    Frequency = "biweekly"
	Semimonthly Frequency = "semimonthly"
	Monthly     Frequency = "monthly"
	Yearly      Frequency = "yearly"
)

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	TypeExpense  TransactionType = "expense"
	TypeIncome   TransactionType = "income"
	TypeTransfer TransactionType = "transfer"
)

const (
	PaymentScheduled PaymentStatus = "scheduled"
	PaymentPaid      PaymentStatus = "paid"
)

type (
	Frequency       string
	Confidence      string
	TransactionType string
	PaymentStatus   string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// TransactionRecord is a transaction row as stored: amount and description
	// may still be ciphertext. Decryption is delegated to the caller.
	TransactionRecord struct {
		ID                   string
		OwnerID              string
		AccountID            string
		Date                 Date
		Type                 TransactionType
		MerchantName         string
		EncryptedDescription string
		EncryptedAmount      string
	}

	// Transaction is a decrypted, resolved transaction ready for detection.
	// AmountValid is false when the stored amount could not be decrypted or
	// parsed; such transactions are skipped, never fatal.
	Transaction struct {
		ID           string
		OwnerID      string
		AccountID    string
		Date         Date
		Type         TransactionType
		MerchantName string
		Description  string
		AmountCents  int64
		AmountValid  bool
	}

	// DetectedSubscription is an ephemeral detection result. It is computed on
	// demand and never persisted.
	DetectedSubscription struct {
		MerchantName        string     `json:"merchantName"`
		LogoURL             string     `json:"logoUrl,omitempty"`
		Amount              Money      `json:"amount"`
		Frequency           Frequency  `json:"frequency"`
		BillingDay          *int       `json:"billingDay,omitempty"`
		FirstBillingDate    Date       `json:"firstBillingDate"`
		LastTransactionDate Date       `json:"lastTransactionDate"`
		AccountID           string     `json:"accountId"`
		AccountName         string     `json:"accountName,omitempty"`
		TransactionCount    int        `json:"transactionCount"`
		Confidence          Confidence `json:"confidence"`
		TransactionIDs      []string   `json:"transactionIds"`
	}

	// Subscription is a confirmed recurring charge. FirstBillingDate anchors
	// all future cadence arithmetic.
	Subscription struct {
		ID               string    `json:"id"`
		OwnerID          string    `json:"-"`
		ServiceName      string    `json:"serviceName"`
		Amount           Money     `json:"amount"`
		BillingFrequency Frequency `json:"billingFrequency"`
		BillingDay       *int      `json:"billingDay,omitempty"`
		AccountID        string    `json:"accountId"`
		FirstBillingDate Date      `json:"firstBillingDate"`
		IsActive         bool      `json:"isActive"`
		CreatedAt        time.Time `json:"createdAt"`
		UpdatedAt        time.Time `json:"updatedAt"`
	}

	// PlannedPayment is a projected future occurrence of a subscription charge.
	PlannedPayment struct {
		ID             int64         `json:"id"`
		SubscriptionID string        `json:"subscriptionId"`
		AccountID      string        `json:"accountId"`
		Date           Date          `json:"date"`
		Amount         Money         `json:"amount"`
		Status         PaymentStatus `json:"status"`
	}

	Account struct {
		ID      string
		OwnerID string
		Name    string
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid billing frequency")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyServiceName = errors.New("empty service name")
	ErrEmptyAccount     = errors.New("empty account id")
	ErrEmptyOwner       = errors.New("empty owner id")
)

// Valid reports whether f is one of the supported cadences.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Biweekly, Semimonthly, Monthly, Yearly:
		return true
	}
	return false
}

// Rank orders confidence tiers for sorting: high > medium > low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to a UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

const dateLayout = "2006-01-02"

// MarshalJSON renders the date as YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts YYYY-MM-DD.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return ErrInvalidDate
	}
	*d = Date{Time: t}
	return nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (s Subscription) Validate() error {
	if strings.TrimSpace(s.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(s.ServiceName) == "" {
		return ErrEmptyServiceName
	}
	if len(s.ServiceName) > 200 {
		return errors.New("service name too long (max 200 characters)")
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if !s.BillingFrequency.Valid() {
		return ErrInvalidFrequency
	}
	if strings.TrimSpace(s.AccountID) == "" {
		return ErrEmptyAccount
	}
	if err := s.FirstBillingDate.Validate(); err != nil {
		return err
	}
	if s.BillingDay != nil && (*s.BillingDay < 0 || *s.BillingDay > 31) {
		return errors.New("billing day out of range")
	}
	return nil
}

package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestFrequencyValid(t *testing.T) {
	for _, f := range []Frequency{Daily, Weekly, Biweekly, Semimonthly, Monthly, Yearly} {
		if !f.Valid() {
			t.Fatalf("%s should be valid", f)
		}
	}
	if Frequency("fortnightly").Valid() {
		t.Fatal("unknown frequency should be invalid")
	}
}

func TestConfidenceRank(t *testing.T) {
	if ConfidenceHigh.Rank() <= ConfidenceMedium.Rank() {
		t.Fatal("high must outrank medium")
	}
	if ConfidenceMedium.Rank() <= ConfidenceLow.Rank() {
		t.Fatal("medium must outrank low")
	}
}

func TestSubscriptionValidate(t *testing.T) {
	day := 5
	valid := Subscription{
		ID:               "sub-1",
		OwnerID:          "owner-1",
		ServiceName:      "Spotify",
		Amount:           Money{Cents: 1599},
		BillingFrequency: Monthly,
		BillingDay:       &day,
		AccountID:        "acc-1",
		FirstBillingDate: NewDate(2024, 1, 5),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid subscription rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Subscription)
		want   error
	}{
		{"empty owner", func(s *Subscription) { s.OwnerID = " " }, ErrEmptyOwner},
		{"empty service name", func(s *Subscription) { s.ServiceName = "" }, ErrEmptyServiceName},
		{"zero amount", func(s *Subscription) { s.Amount = Money{} }, ErrInvalidAmount},
		{"negative amount", func(s *Subscription) { s.Amount = Money{Cents: -1} }, ErrInvalidAmount},
		{"bad frequency", func(s *Subscription) { s.BillingFrequency = "sometimes" }, ErrInvalidFrequency},
		{"empty account", func(s *Subscription) { s.AccountID = "" }, ErrEmptyAccount},
		{"zero date", func(s *Subscription) { s.FirstBillingDate = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid
			tc.mutate(&s)
			if err := s.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	t.Run("billing day out of range", func(t *testing.T) {
		s := valid
		bad := 32
		s.BillingDay = &bad
		if err := s.Validate(); err == nil {
			t.Fatal("expected error for billing day 32")
		}
	})
}

func TestDateJSON(t *testing.T) {
	d := NewDate(2024, 2, 29)
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-02-29"` {
		t.Fatalf("expected \"2024-02-29\", got %s", b)
	}

	var parsed Date
	if err := json.Unmarshal(b, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !parsed.Equal(d.Time) {
		t.Fatalf("roundtrip mismatch: %v != %v", parsed, d)
	}

	if err := json.Unmarshal([]byte(`"29/02/2024"`), &parsed); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}

func TestDateOf(t *testing.T) {
	ts := time.Date(2024, 3, 15, 23, 59, 59, 0, time.FixedZone("CET", 3600))
	d := DateOf(ts)
	if d.Year() != 2024 || d.Month() != time.March || d.Day() != 15 {
		t.Fatalf("unexpected date %v", d)
	}
	if d.Hour() != 0 || d.Minute() != 0 {
		t.Fatal("date must be truncated to midnight")
	}
}

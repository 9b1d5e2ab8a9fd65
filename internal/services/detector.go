package services

import (
	"sort"
	"time"

	"subwatch/internal/core"
)

type candidateGroup struct {
	merchant     string
	normalized   string
	accountID    string
	transactions []core.Transaction
}

// Detect scans decrypted transactions for recurring charges. It is read-only
// and stateless: data-quality problems exclude the offending transaction or
// group, never abort the run. accountNames resolves accountId to a display
// name and may be nil.
func Detect(transactions []core.Transaction, windowMonths int, now time.Time, accountNames map[string]string) []core.DetectedSubscription {
	if windowMonths <= 0 {
		windowMonths = 6
	}
	cutoff := core.DateOf(now).AddDate(0, -windowMonths, 0)

	groups := map[string]*candidateGroup{}
	var order []string
	for _, tx := range transactions {
		if tx.Type != core.TypeExpense {
			continue
		}
		if tx.Date.Before(cutoff) {
			continue
		}
		merchant := tx.MerchantName
		if merchant == "" {
			merchant = tx.Description
		}
		normalized := NormalizeMerchant(merchant)
		if normalized == "" {
			continue
		}
		key := normalized + "\x00" + tx.AccountID
		g, ok := groups[key]
		if !ok {
			g = &candidateGroup{merchant: merchant, normalized: normalized, accountID: tx.AccountID}
			groups[key] = g
			order = append(order, key)
		}
		g.transactions = append(g.transactions, tx)
	}

	// Map iteration order is random; evaluate groups in a pinned order so
	// equal-rank results sort identically across runs.
	sort.Strings(order)

	var detected []core.DetectedSubscription
	for _, key := range order {
		if sub, ok := evaluateGroup(groups[key]); ok {
			detected = append(detected, sub)
		}
	}

	sort.SliceStable(detected, func(i, j int) bool {
		ri, rj := detected[i].Confidence.Rank(), detected[j].Confidence.Rank()
		if ri != rj {
			return ri > rj
		}
		return detected[i].TransactionCount > detected[j].TransactionCount
	})

	for i := range detected {
		if name, ok := accountNames[detected[i].AccountID]; ok {
			detected[i].AccountName = name
		}
	}

	return detected
}

func evaluateGroup(g *candidateGroup) (core.DetectedSubscription, bool) {
	if len(g.transactions) < 2 {
		return core.DetectedSubscription{}, false
	}

	var (
		amounts []int64
		dates   []core.Date
		ids     []string
	)
	for _, tx := range g.transactions {
		if !tx.AmountValid || tx.AmountCents <= 0 {
			continue
		}
		amounts = append(amounts, tx.AmountCents)
		dates = append(dates, tx.Date)
		ids = append(ids, tx.ID)
	}
	if len(amounts) < 2 {
		return core.DetectedSubscription{}, false
	}

	stats := Classify(amounts, dates)
	known, isKnown := LookupKnownService(g.normalized)

	if !isKnown && !(stats.AmountVariance < 0.30 && stats.DateRegularity > 0.4) {
		return core.DetectedSubscription{}, false
	}

	name := g.merchant
	logoURL := ""
	frequency := stats.Frequency
	if isKnown {
		name = known.Canonical
		logoURL = known.LogoURL
		frequency = known.TypicalFrequency
	}

	first, last := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(first.Time) {
			first = d
		}
		if d.After(last.Time) {
			last = d
		}
	}

	// A known-service match can change the frequency shape, so the anchor day
	// is re-derived from the frequency we actually report.
	day := billingDay(frequency, []core.Date{first})

	return core.DetectedSubscription{
		MerchantName:        name,
		LogoURL:             logoURL,
		Amount:              core.Money{Cents: stats.MeanAmountCents},
		Frequency:           frequency,
		BillingDay:          day,
		FirstBillingDate:    first,
		LastTransactionDate: last,
		AccountID:           g.accountID,
		TransactionCount:    len(amounts),
		Confidence:          ScoreConfidence(len(amounts), stats.AmountVariance, stats.DateRegularity, isKnown),
		TransactionIDs:      ids,
	}, true
}

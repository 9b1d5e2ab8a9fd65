package services

import (
	"math"
	"sort"

	"subwatch/internal/core"
)

// GroupStats is the statistical profile of one candidate transaction group.
type GroupStats struct {
	AmountVariance  float64
	DateRegularity  float64
	Frequency       core.Frequency
	BillingDay      *int
	MeanAmountCents int64
	Count           int
}

// Classify profiles a candidate group. Amounts are in cents; dates may arrive
// unsorted. Callers guarantee len(amounts) >= 2 and len(dates) >= 2.
func Classify(amountsCents []int64, dates []core.Date) GroupStats {
	sorted := make([]core.Date, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j].Time) })

	intervals := intervalDays(sorted)
	meanInterval := mean(intervals)

	stats := GroupStats{
		AmountVariance:  coefficientOfVariation(amountsCents),
		DateRegularity:  dateRegularity(intervals),
		Frequency:       frequencyFromInterval(meanInterval),
		MeanAmountCents: meanCents(amountsCents),
		Count:           len(amountsCents),
	}
	stats.BillingDay = billingDay(stats.Frequency, sorted)
	return stats
}

// coefficientOfVariation is population stddev over mean. Zero for fewer than
// two samples or a zero mean, so a degenerate group never divides by zero.
func coefficientOfVariation(amountsCents []int64) float64 {
	if len(amountsCents) < 2 {
		return 0
	}
	values := make([]float64, len(amountsCents))
	for i, c := range amountsCents {
		values[i] = float64(c)
	}
	m := mean(values)
	if m == 0 {
		return 0
	}
	return stddev(values, m) / m
}

// dateRegularity maps interval spread onto [0,1]: 1 means perfectly even
// spacing, 0 means the spread is as large as the mean interval or larger.
func dateRegularity(intervals []float64) float64 {
	if len(intervals) < 2 {
		return 1
	}
	m := mean(intervals)
	if m == 0 {
		return 0
	}
	r := 1 - stddev(intervals, m)/m
	if r < 0 {
		return 0
	}
	return r
}

// frequencyFromInterval buckets the mean gap between charges. Thresholds are
// ordered, first match wins.
func frequencyFromInterval(meanDays float64) core.Frequency {
	switch {
	case meanDays <= 1.5:
		return core.Daily
	case meanDays <= 4:
		return core.Weekly
	case meanDays <= 10:
		return core.Biweekly
	case meanDays <= 18:
		return core.Semimonthly
	default:
		return core.Monthly
	}
}

// billingDay anchors the cadence on the earliest charge: day-of-month for
// month-shaped cadences, day-of-week for week-shaped ones, nothing for daily.
func billingDay(freq core.Frequency, sortedDates []core.Date) *int {
	if len(sortedDates) == 0 {
		return nil
	}
	earliest := sortedDates[0]
	var day int
	switch freq {
	case core.Monthly, core.Semimonthly:
		day = earliest.Day()
	case core.Weekly, core.Biweekly:
		day = int(earliest.Weekday())
	default:
		return nil
	}
	return &day
}

// ScoreConfidence combines group size, amount stability, date regularity and
// the known-service bonus into a tier.
func ScoreConfidence(count int, amountVariance, regularity float64, knownService bool) core.Confidence {
	score := 0

	switch {
	case count >= 6:
		score += 3
	case count >= 4:
		score += 2
	case count >= 2:
		score += 1
	}

	switch {
	case amountVariance < 0.05:
		score += 3
	case amountVariance < 0.10:
		score += 2
	case amountVariance < 0.20:
		score += 1
	}

	switch {
	case regularity > 0.8:
		score += 2
	case regularity > 0.6:
		score += 1
	}

	if knownService {
		score += 2
	}

	switch {
	case score >= 7:
		return core.ConfidenceHigh
	case score >= 4:
		return core.ConfidenceMedium
	default:
		return core.ConfidenceLow
	}
}

func intervalDays(sortedDates []core.Date) []float64 {
	if len(sortedDates) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(sortedDates)-1)
	for i := 1; i < len(sortedDates); i++ {
		diff := sortedDates[i].Sub(sortedDates[i-1].Time)
		intervals = append(intervals, diff.Hours()/24)
	}
	return intervals
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation around a precomputed mean.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func meanCents(amountsCents []int64) int64 {
	if len(amountsCents) == 0 {
		return 0
	}
	var sum int64
	for _, c := range amountsCents {
		sum += c
	}
	return int64(math.Round(float64(sum) / float64(len(amountsCents))))
}

package glosas

import "time"

// Granularity is the bucket width of the inflow trend.
type Granularity string

const (
	GranularityDaily   Granularity = "Diaria"
	GranularityMonthly Granularity = "Mensual"
	GranularityYearly  Granularity = "Anual"
	GranularityNone    Granularity = "ninguna"
)

const (
	dailyMaxDays   = 90
	monthlyMaxDays = 730
	bucketLayout   = "2006-01-02T00:00:00"
)

// TrendPoint is the number of distinct invoices notified in one bucket.
type TrendPoint struct {
	Period string `json:"fecha_agrupada"`
	Count  int    `json:"conteo"`
}

// GranularityFor picks the bucket width from the window length.
func GranularityFor(window Window) Granularity {
	days := window.Days()
	switch {
	case days <= dailyMaxDays:
		return GranularityDaily
	case days <= monthlyMaxDays:
		return GranularityMonthly
	default:
		return GranularityYearly
	}
}

// Trend counts distinct invoices per notification bucket over the complete
// bucket sequence of the window. Monthly and yearly series keep empty buckets
// as zero; the daily series omits them.
func Trend(items []LineItem, window Window) ([]TrendPoint, Granularity) {
	g := GranularityFor(window)

	counts := make(map[time.Time]int)
	seen := make(map[invoiceKey]struct{})
	for _, item := range items {
		k := item.key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if item.NotificationDate == nil {
			continue
		}
		counts[truncateBucket(*item.NotificationDate, g)]++
	}

	buckets := BucketRange(window, g)
	points := make([]TrendPoint, 0, len(buckets))
	for _, b := range buckets {
		n := counts[b]
		if g == GranularityDaily && n == 0 {
			continue
		}
		points = append(points, TrendPoint{Period: b.Format(bucketLayout), Count: n})
	}
	return points, g
}

// BucketRange generates every bucket start between the window edges,
// inclusive, with no gaps.
func BucketRange(window Window, g Granularity) []time.Time {
	start := truncateBucket(window.From, g)
	end := truncateBucket(window.To, g)
	out := make([]time.Time, 0)
	for b := start; !b.After(end); b = nextBucket(b, g) {
		out = append(out, b)
	}
	return out
}

func truncateBucket(t time.Time, g Granularity) time.Time {
	y, m, d := t.Date()
	switch g {
	case GranularityYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	case GranularityMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
}

func nextBucket(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityYearly:
		return t.AddDate(1, 0, 0)
	case GranularityMonthly:
		return t.AddDate(0, 1, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

package ledger

import (
	"sort"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

// CalendarDay is one day of a month's ledger. Days without deliveries carry
// an empty Records slice; the combined same-day aggregate is derived on
// demand rather than stored alongside the raw records.
type CalendarDay struct {
	Date    string                  `json:"date"` // YYYY-MM-DD
	Records []models.DeliveryRecord `json:"records"`
}

// CombinedRecord is the merged view of all records on a single day.
type CombinedRecord struct {
	QuantityKg float64       `json:"quantity_kg"`
	Amount     float64       `json:"amount"`
	PaidAmount float64       `json:"paid_amount"`
	Status     models.Status `json:"status"`
}

// Combined merges the day's records: summed quantity/amount/paidAmount,
// paid only if every underlying record is paid. Nil for empty days.
func (d CalendarDay) Combined() *CombinedRecord {
	if len(d.Records) == 0 {
		return nil
	}
	c := &CombinedRecord{Status: models.StatusPaid}
	for _, r := range d.Records {
		c.QuantityKg += r.QuantityKg
		c.Amount += r.Amount
		c.PaidAmount += r.PaidAmount
		if r.Status != models.StatusPaid {
			c.Status = models.StatusUnpaid
		}
	}
	return c
}

// MonthSummary totals a customer's month. Derived, never persisted.
type MonthSummary struct {
	TotalDays       int     `json:"total_days"` // Distinct days with at least one record
	TotalQuantityKg float64 `json:"total_quantity_kg"`
	TotalAmount     float64 `json:"total_amount"`
	TotalPaid       float64 `json:"total_paid"`
	Remaining       float64 `json:"remaining"`
}

// BuildCalendar groups records into one CalendarDay per day of the month,
// including days with no records. Records outside the month are ignored.
// Within a day, records keep ascending creation order.
func BuildCalendar(m Month, records []models.DeliveryRecord) []CalendarDay {
	byDay := make(map[string][]models.DeliveryRecord)
	for _, r := range records {
		if !m.Contains(r.CreatedAt) {
			continue
		}
		day := r.CreatedAt.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], r)
	}
	for _, recs := range byDay {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		})
	}

	days := make([]CalendarDay, 0, m.Days())
	for n := 1; n <= m.Days(); n++ {
		date := m.Day(n)
		days = append(days, CalendarDay{Date: date, Records: byDay[date]})
	}
	return days
}

// Summarize totals the raw records directly, not the per-day combined
// values, so repeated aggregation cannot accumulate rounding drift.
func Summarize(records []models.DeliveryRecord) MonthSummary {
	var s MonthSummary
	seen := make(map[string]struct{})
	for _, r := range records {
		day := r.CreatedAt.UTC().Format("2006-01-02")
		if _, ok := seen[day]; !ok {
			seen[day] = struct{}{}
			s.TotalDays++
		}
		s.TotalQuantityKg += r.QuantityKg
		s.TotalAmount += r.Amount
		s.TotalPaid += r.PaidAmount
	}
	s.Remaining = s.TotalAmount - s.TotalPaid
	return s
}

// CustomerTotal is one customer's slice of a vendor-wide month view.
type CustomerTotal struct {
	CustomerID   string  `json:"customer_id"`
	CustomerName string  `json:"customer_name"`
	TotalDays    int     `json:"total_days"`
	TotalAmount  float64 `json:"total_amount"`
	TotalPaid    float64 `json:"total_paid"`
	Remaining    float64 `json:"remaining"`
}

// GroupByCustomer produces per-customer totals for a vendor-wide record set,
// sorted by customer name for stable output.
func GroupByCustomer(records []models.DeliveryRecord) []CustomerTotal {
	byCustomer := make(map[string][]models.DeliveryRecord)
	for _, r := range records {
		key := r.CustomerID.Hex()
		byCustomer[key] = append(byCustomer[key], r)
	}

	totals := make([]CustomerTotal, 0, len(byCustomer))
	for _, recs := range byCustomer {
		sum := Summarize(recs)
		totals = append(totals, CustomerTotal{
			CustomerID:   recs[0].CustomerID.Hex(),
			CustomerName: recs[0].CustomerName,
			TotalDays:    sum.TotalDays,
			TotalAmount:  sum.TotalAmount,
			TotalPaid:    sum.TotalPaid,
			Remaining:    sum.Remaining,
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].CustomerName != totals[j].CustomerName {
			return totals[i].CustomerName < totals[j].CustomerName
		}
		return totals[i].CustomerID < totals[j].CustomerID
	})
	return totals
}

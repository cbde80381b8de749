package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// BuildStatementCSV renders a customer's month ledger as a CSV statement:
// one row per day with deliveries, followed by a totals row. Used by the
// statement export task; pure so it can be tested without storage.
func BuildStatementCSV(customerName string, m Month, days []CalendarDay, summary MonthSummary) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := [][]string{
		{"customer", customerName},
		{"month", m.String()},
		{},
		{"date", "quantity_kg", "amount", "paid_amount", "status"},
	}
	for _, row := range header {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write statement header: %w", err)
		}
	}

	for _, d := range days {
		combined := d.Combined()
		if combined == nil {
			continue
		}
		row := []string{
			d.Date,
			formatDecimal(combined.QuantityKg),
			formatDecimal(combined.Amount),
			formatDecimal(combined.PaidAmount),
			string(combined.Status),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write statement row for %s: %w", d.Date, err)
		}
	}

	totals := [][]string{
		{},
		{"total_days", fmt.Sprintf("%d", summary.TotalDays)},
		{"total_quantity_kg", formatDecimal(summary.TotalQuantityKg)},
		{"total_amount", formatDecimal(summary.TotalAmount)},
		{"total_paid", formatDecimal(summary.TotalPaid)},
		{"remaining", formatDecimal(summary.Remaining)},
	}
	for _, row := range totals {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write statement totals: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush statement: %w", err)
	}
	return buf.Bytes(), nil
}

func formatDecimal(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

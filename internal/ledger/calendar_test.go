package ledger

import (
	"testing"
	"time"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func mkRecord(t time.Time, quantity, amount, paid float64) models.DeliveryRecord {
	return models.DeliveryRecord{
		ID:         primitive.NewObjectID(),
		CustomerID: primitive.NewObjectID(),
		QuantityKg: quantity,
		Amount:     amount,
		PaidAmount: paid,
		Status:     models.DeriveStatus(amount, paid),
		CreatedAt:  t,
	}
}

func TestBuildCalendar_Completeness(t *testing.T) {
	m := Month{Year: 2024, Month: time.April} // 30 days
	records := []models.DeliveryRecord{
		mkRecord(time.Date(2024, 4, 3, 7, 30, 0, 0, time.UTC), 2, 100, 0),
	}

	days := BuildCalendar(m, records)
	require.Len(t, days, 30)
	for i, d := range days {
		assert.Equal(t, m.Day(i+1), d.Date)
	}
	assert.Len(t, days[2].Records, 1)
	assert.Nil(t, days[0].Combined())
	assert.NotNil(t, days[2].Combined())
}

func TestBuildCalendar_MergesSameDay(t *testing.T) {
	m := Month{Year: 2024, Month: time.May}
	morning := mkRecord(time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC), 1.5, 60, 60)
	evening := mkRecord(time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC), 2, 80, 0)

	days := BuildCalendar(m, []models.DeliveryRecord{evening, morning})
	day := days[9]
	require.Len(t, day.Records, 2)
	// Ascending creation order within the day.
	assert.Equal(t, morning.ID, day.Records[0].ID)

	combined := day.Combined()
	require.NotNil(t, combined)
	assert.Equal(t, 3.5, combined.QuantityKg)
	assert.Equal(t, 140.0, combined.Amount)
	assert.Equal(t, 60.0, combined.PaidAmount)
	// One unpaid record makes the whole day unpaid.
	assert.Equal(t, models.StatusUnpaid, combined.Status)

	evening.PaidAmount = 80
	evening.Status = models.DeriveStatus(evening.Amount, evening.PaidAmount)
	combined = BuildCalendar(m, []models.DeliveryRecord{evening, morning})[9].Combined()
	assert.Equal(t, models.StatusPaid, combined.Status)
}

func TestBuildCalendar_IgnoresOutOfMonthRecords(t *testing.T) {
	m := Month{Year: 2024, Month: time.May}
	stray := mkRecord(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 1, 10, 0)

	days := BuildCalendar(m, []models.DeliveryRecord{stray})
	for _, d := range days {
		assert.Empty(t, d.Records)
	}
}

func TestSummarize(t *testing.T) {
	records := []models.DeliveryRecord{
		mkRecord(time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC), 2, 100, 100),
		mkRecord(time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC), 1, 50, 0),
		mkRecord(time.Date(2024, 5, 5, 6, 0, 0, 0, time.UTC), 3, 150, 25),
	}

	s := Summarize(records)
	assert.Equal(t, 2, s.TotalDays) // two distinct days
	assert.Equal(t, 6.0, s.TotalQuantityKg)
	assert.Equal(t, 300.0, s.TotalAmount)
	assert.Equal(t, 125.0, s.TotalPaid)
	assert.Equal(t, 175.0, s.Remaining)

	assert.Equal(t, MonthSummary{}, Summarize(nil))
}

func TestSummarize_Idempotent(t *testing.T) {
	records := []models.DeliveryRecord{
		mkRecord(time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC), 2, 90, 30),
	}
	first := Summarize(records)
	second := Summarize(records)
	assert.Equal(t, first, second)

	m := Month{Year: 2024, Month: time.May}
	assert.Equal(t, BuildCalendar(m, records), BuildCalendar(m, records))
}

func TestGroupByCustomer(t *testing.T) {
	asha := primitive.NewObjectID()
	ravi := primitive.NewObjectID()
	records := []models.DeliveryRecord{
		{CustomerID: asha, CustomerName: "Asha", Amount: 100, PaidAmount: 40, CreatedAt: time.Date(2024, 5, 1, 6, 0, 0, 0, time.UTC)},
		{CustomerID: ravi, CustomerName: "Ravi", Amount: 60, PaidAmount: 60, CreatedAt: time.Date(2024, 5, 2, 6, 0, 0, 0, time.UTC)},
		{CustomerID: asha, CustomerName: "Asha", Amount: 50, PaidAmount: 0, CreatedAt: time.Date(2024, 5, 3, 6, 0, 0, 0, time.UTC)},
	}

	totals := GroupByCustomer(records)
	require.Len(t, totals, 2)
	assert.Equal(t, "Asha", totals[0].CustomerName)
	assert.Equal(t, 150.0, totals[0].TotalAmount)
	assert.Equal(t, 110.0, totals[0].Remaining)
	assert.Equal(t, 2, totals[0].TotalDays)
	assert.Equal(t, "Ravi", totals[1].CustomerName)
	assert.Equal(t, 0.0, totals[1].Remaining)
}

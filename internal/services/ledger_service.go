package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

// MonthLedger is the full calendar view of one month, either for a single
// customer or vendor-wide. CustomerTotals is populated only for the
// vendor-wide view.
type MonthLedger struct {
	Month          string                 `json:"month"`
	Days           []ledger.CalendarDay   `json:"days"`
	Summary        ledger.MonthSummary    `json:"summary"`
	CustomerTotals []ledger.CustomerTotal `json:"customer_totals,omitempty"`
}

// CustomerMonthSummary is one row of the vendor's summaries screen: one
// customer's totals for one month, with a status derived from the totals.
type CustomerMonthSummary struct {
	CustomerID   string        `json:"customer_id"`
	CustomerName string        `json:"customer_name"`
	WhatsApp     string        `json:"whatsapp"`
	Month        string        `json:"month"`
	TotalDays    int           `json:"total_days"`
	TotalAmount  float64       `json:"total_amount"`
	TotalPaid    float64       `json:"total_paid"`
	Remaining    float64       `json:"remaining"`
	Status       models.Status `json:"status"`
}

// QuantityTotal is a simple quantity rollup.
type QuantityTotal struct {
	QuantityKg float64 `bson:"quantity_kg" json:"quantity_kg"`
	Records    int     `bson:"records" json:"records"`
}

// ILedgerService derives calendar views and rollups from raw records.
// Everything here is read-only; nothing derived is ever written back.
type ILedgerService interface {
	Aggregate(ctx context.Context, vendorID primitive.ObjectID, customerID *primitive.ObjectID, m ledger.Month) (*MonthLedger, error)
	MonthlySummaries(ctx context.Context, vendorID primitive.ObjectID) ([]CustomerMonthSummary, error)
	TodaysQuantity(ctx context.Context, vendorID primitive.ObjectID) (*QuantityTotal, error)
	TotalQuantity(ctx context.Context, vendorID primitive.ObjectID) (*QuantityTotal, error)
}

type ledgerService struct {
	db *mongo.Database
}

// NewLedgerService creates a new ledger aggregation service.
func NewLedgerService(database *mongo.Database) ILedgerService {
	return &ledgerService{db: database}
}

func (s *ledgerService) records() *mongo.Collection {
	return s.db.Collection("milk_records")
}

// monthRecords fetches a vendor's records for one month, oldest first,
// optionally narrowed to a single customer. The window is [start, end of
// month) so the last day is covered in full.
func (s *ledgerService) monthRecords(ctx context.Context, vendorID primitive.ObjectID, customerID *primitive.ObjectID, m ledger.Month) ([]models.DeliveryRecord, error) {
	filter := bson.M{
		"vendor_id":  vendorID,
		"created_at": bson.M{"$gte": m.Start(), "$lt": m.End()},
	}
	if customerID != nil {
		filter["customer_id"] = *customerID
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.records().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch month records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.DeliveryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode month records: %w", err)
	}
	return records, nil
}

// Aggregate builds the calendar for a month from raw records. Months with no
// records still yield a full calendar of empty days and a zero summary; the
// result is a pure function of the stored records, so re-aggregating is
// always safe.
func (s *ledgerService) Aggregate(ctx context.Context, vendorID primitive.ObjectID, customerID *primitive.ObjectID, m ledger.Month) (*MonthLedger, error) {
	records, err := s.monthRecords(ctx, vendorID, customerID, m)
	if err != nil {
		return nil, err
	}

	result := &MonthLedger{
		Month:   m.String(),
		Days:    ledger.BuildCalendar(m, records),
		Summary: ledger.Summarize(records),
	}
	if customerID == nil {
		result.CustomerTotals = ledger.GroupByCustomer(records)
	}
	return result, nil
}

// MonthlySummaries returns one row per (customer, month) that has records,
// newest month first, plus a zero row for the current month for every
// customer that has none yet, so the current month is always on screen.
func (s *ledgerService) MonthlySummaries(ctx context.Context, vendorID primitive.ObjectID) ([]CustomerMonthSummary, error) {
	cursor, err := s.records().Find(ctx, bson.M{"vendor_id": vendorID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.DeliveryRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	custCursor, err := s.db.Collection("customers").Find(ctx, bson.M{"vendor_id": vendorID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch customers: %w", err)
	}
	defer custCursor.Close(ctx)

	customers := []models.Customer{}
	if err := custCursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	customersByID := make(map[string]models.Customer, len(customers))
	for _, c := range customers {
		customersByID[c.ID.Hex()] = c
	}

	type key struct {
		customerID string
		month      string
	}
	grouped := make(map[key][]models.DeliveryRecord)
	for _, r := range records {
		k := key{customerID: r.CustomerID.Hex(), month: ledger.MonthOf(r.CreatedAt).String()}
		grouped[k] = append(grouped[k], r)
	}

	// Current month rows exist even when empty.
	currentMonth := ledger.MonthOf(time.Now()).String()
	for _, c := range customers {
		k := key{customerID: c.ID.Hex(), month: currentMonth}
		if _, ok := grouped[k]; !ok {
			grouped[k] = nil
		}
	}

	summaries := make([]CustomerMonthSummary, 0, len(grouped))
	for k, recs := range grouped {
		sum := ledger.Summarize(recs)
		row := CustomerMonthSummary{
			CustomerID:  k.customerID,
			Month:       k.month,
			TotalDays:   sum.TotalDays,
			TotalAmount: sum.TotalAmount,
			TotalPaid:   sum.TotalPaid,
			Remaining:   sum.Remaining,
			Status:      models.DeriveStatus(sum.TotalAmount, sum.TotalPaid),
		}
		if c, ok := customersByID[k.customerID]; ok {
			row.CustomerName = c.Name
			row.WhatsApp = c.WhatsApp
		} else if len(recs) > 0 {
			// Customer was deleted out-of-band; fall back to the
			// name denormalized onto the records.
			row.CustomerName = recs[0].CustomerName
		}
		summaries = append(summaries, row)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Month != summaries[j].Month {
			return summaries[i].Month > summaries[j].Month
		}
		if summaries[i].CustomerName != summaries[j].CustomerName {
			return summaries[i].CustomerName < summaries[j].CustomerName
		}
		return summaries[i].CustomerID < summaries[j].CustomerID
	})
	return summaries, nil
}

// TodaysQuantity totals today's (UTC) deliveries for the vendor.
func (s *ledgerService) TodaysQuantity(ctx context.Context, vendorID primitive.ObjectID) (*QuantityTotal, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.sumQuantity(ctx, bson.M{
		"vendor_id":  vendorID,
		"created_at": bson.M{"$gte": start, "$lt": start.AddDate(0, 0, 1)},
	})
}

// TotalQuantity totals all deliveries the vendor has ever recorded.
func (s *ledgerService) TotalQuantity(ctx context.Context, vendorID primitive.ObjectID) (*QuantityTotal, error) {
	return s.sumQuantity(ctx, bson.M{"vendor_id": vendorID})
}

func (s *ledgerService) sumQuantity(ctx context.Context, filter bson.M) (*QuantityTotal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"quantity_kg": bson.M{"$sum": "$quantity_kg"},
			"records":     bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.records().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to sum quantities: %w", err)
	}
	defer cursor.Close(ctx)

	var results []QuantityTotal
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode quantity totals: %w", err)
	}
	if len(results) == 0 {
		return &QuantityTotal{}, nil
	}
	return &results[0], nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/db"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

// SystemStats is the admin dashboard rollup across all vendors.
type SystemStats struct {
	TotalVendors    int64   `json:"total_vendors"`
	ActiveVendors   int64   `json:"active_vendors"`
	TotalCustomers  int64   `json:"total_customers"`
	TotalRecords    int64   `json:"total_records"`
	TotalQuantityKg float64 `json:"total_quantity_kg"`
	TotalAmount     float64 `json:"total_amount"`
	TotalPaid       float64 `json:"total_paid"`
}

// VendorStats summarizes one vendor's footprint for the admin view.
type VendorStats struct {
	VendorID        string  `json:"vendor_id"`
	Customers       int64   `json:"customers"`
	Records         int64   `json:"records"`
	TotalQuantityKg float64 `json:"total_quantity_kg"`
	TotalAmount     float64 `json:"total_amount"`
	TotalPaid       float64 `json:"total_paid"`
	Outstanding     float64 `json:"outstanding"`
}

// TransactionStats rolls up delivery records created within a period.
type TransactionStats struct {
	Period     string  `json:"period"` // today, week, month or all
	Records    int64   `json:"records"`
	QuantityKg float64 `json:"quantity_kg"`
	Amount     float64 `json:"amount"`
	Paid       float64 `json:"paid"`
}

// IAdminService exposes cross-vendor administration: account management and
// system-wide statistics. Handlers gate every call behind the admin role.
type IAdminService interface {
	ListVendors(ctx context.Context) ([]models.Vendor, error)
	UpdateVendor(ctx context.Context, vendorID primitive.ObjectID, name, mobile string) (*models.Vendor, error)
	SetVendorActive(ctx context.Context, vendorID primitive.ObjectID, active bool) (*models.Vendor, error)
	DeleteVendor(ctx context.Context, vendorID primitive.ObjectID) error
	SystemStats(ctx context.Context) (*SystemStats, error)
	VendorStats(ctx context.Context, vendorID primitive.ObjectID) (*VendorStats, error)
	TransactionStats(ctx context.Context, period string) (*TransactionStats, error)
}

type adminService struct {
	db *mongo.Database
}

// NewAdminService creates a new admin service.
func NewAdminService(database *mongo.Database) IAdminService {
	return &adminService{db: database}
}

// ListVendors returns all vendor accounts, newest first.
func (s *adminService) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection("vendors").Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list vendors: %w", err)
	}
	defer cursor.Close(ctx)

	vendors := []models.Vendor{}
	if err := cursor.All(ctx, &vendors); err != nil {
		return nil, fmt.Errorf("failed to decode vendors: %w", err)
	}
	return vendors, nil
}

// UpdateVendor changes a vendor's name and/or mobile number. Empty fields
// are left untouched.
func (s *adminService) UpdateVendor(ctx context.Context, vendorID primitive.ObjectID, name, mobile string) (*models.Vendor, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if mobile != "" {
		if !mobilePattern.MatchString(mobile) {
			return nil, fmt.Errorf("mobile must be a 10-digit number")
		}
		set["mobile"] = mobile
	}

	after := options.After
	var vendor models.Vendor
	err := s.db.Collection("vendors").FindOneAndUpdate(ctx,
		bson.M{"_id": vendorID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(after),
	).Decode(&vendor)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrMobileExists
		}
		return nil, err
	}
	return &vendor, nil
}

// SetVendorActive enables or disables a vendor account. Disabled vendors
// cannot authenticate; their data stays in place.
func (s *adminService) SetVendorActive(ctx context.Context, vendorID primitive.ObjectID, active bool) (*models.Vendor, error) {
	after := options.After
	var vendor models.Vendor
	err := s.db.Collection("vendors").FindOneAndUpdate(ctx,
		bson.M{"_id": vendorID},
		bson.M{"$set": bson.M{"is_active": active, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(after),
	).Decode(&vendor)
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// DeleteVendor removes a vendor and cascades to its customers and records.
// The vendor document goes last so a partial failure leaves the account
// visible (and the deletion retryable) rather than orphaning data.
func (s *adminService) DeleteVendor(ctx context.Context, vendorID primitive.ObjectID) error {
	if _, err := s.db.Collection("milk_records").DeleteMany(ctx, bson.M{"vendor_id": vendorID}); err != nil {
		return fmt.Errorf("failed to delete vendor records: %w", err)
	}
	if _, err := s.db.Collection("customers").DeleteMany(ctx, bson.M{"vendor_id": vendorID}); err != nil {
		return fmt.Errorf("failed to delete vendor customers: %w", err)
	}
	res, err := s.db.Collection("vendors").DeleteOne(ctx, bson.M{"_id": vendorID})
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

type recordTotals struct {
	Records    int64   `bson:"records"`
	QuantityKg float64 `bson:"quantity_kg"`
	Amount     float64 `bson:"amount"`
	Paid       float64 `bson:"paid"`
}

func (s *adminService) sumRecords(ctx context.Context, filter bson.M) (*recordTotals, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: filter}},
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"records":     bson.M{"$sum": 1},
			"quantity_kg": bson.M{"$sum": "$quantity_kg"},
			"amount":      bson.M{"$sum": "$amount"},
			"paid":        bson.M{"$sum": "$paid_amount"},
		}}},
	}
	cursor, err := s.db.Collection("milk_records").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate record totals: %w", err)
	}
	defer cursor.Close(ctx)

	var results []recordTotals
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode record totals: %w", err)
	}
	if len(results) == 0 {
		return &recordTotals{}, nil
	}
	return &results[0], nil
}

// SystemStats aggregates counts and money totals across the whole system.
func (s *adminService) SystemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}
	var err error

	if stats.TotalVendors, err = s.db.Collection("vendors").CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("failed to count vendors: %w", err)
	}
	if stats.ActiveVendors, err = s.db.Collection("vendors").CountDocuments(ctx, bson.M{"is_active": true}); err != nil {
		return nil, fmt.Errorf("failed to count active vendors: %w", err)
	}
	if stats.TotalCustomers, err = s.db.Collection("customers").CountDocuments(ctx, bson.M{}); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	totals, err := s.sumRecords(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	stats.TotalRecords = totals.Records
	stats.TotalQuantityKg = totals.QuantityKg
	stats.TotalAmount = totals.Amount
	stats.TotalPaid = totals.Paid
	return stats, nil
}

// VendorStats aggregates one vendor's counts and money totals.
func (s *adminService) VendorStats(ctx context.Context, vendorID primitive.ObjectID) (*VendorStats, error) {
	stats := &VendorStats{VendorID: vendorID.Hex()}
	var err error

	if stats.Customers, err = s.db.Collection("customers").CountDocuments(ctx, bson.M{"vendor_id": vendorID}); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	totals, err := s.sumRecords(ctx, bson.M{"vendor_id": vendorID})
	if err != nil {
		return nil, err
	}
	stats.Records = totals.Records
	stats.TotalQuantityKg = totals.QuantityKg
	stats.TotalAmount = totals.Amount
	stats.TotalPaid = totals.Paid
	stats.Outstanding = totals.Amount - totals.Paid
	if stats.Outstanding < 0 {
		stats.Outstanding = 0
	}
	return stats, nil
}

// TransactionStats rolls up record creation over a trailing window. Periods:
// "today" (since UTC midnight), "week" (7 days), "month" (30 days), "all".
func (s *adminService) TransactionStats(ctx context.Context, period string) (*TransactionStats, error) {
	now := time.Now().UTC()
	filter := bson.M{}
	switch period {
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		filter["created_at"] = bson.M{"$gte": start}
	case "week":
		filter["created_at"] = bson.M{"$gte": now.AddDate(0, 0, -7)}
	case "month":
		filter["created_at"] = bson.M{"$gte": now.AddDate(0, 0, -30)}
	case "all":
	default:
		return nil, ErrInvalidPeriod
	}

	totals, err := s.sumRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TransactionStats{
		Period:     period,
		Records:    totals.Records,
		QuantityKg: totals.QuantityKg,
		Amount:     totals.Amount,
		Paid:       totals.Paid,
	}, nil
}

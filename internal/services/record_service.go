package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/events"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

// IRecordService creates and corrects individual delivery records.
type IRecordService interface {
	Create(ctx context.Context, vendorID, customerID primitive.ObjectID, quantityKg, amount float64) (*models.DeliveryRecord, error)
	FindOwned(ctx context.Context, vendorID, recordID primitive.ObjectID) (*models.DeliveryRecord, error)
	Correct(ctx context.Context, vendorID, recordID primitive.ObjectID, markPaid bool) (*models.DeliveryRecord, error)
	Delete(ctx context.Context, vendorID, recordID primitive.ObjectID) error
}

type recordService struct {
	db        *mongo.Database
	customers ICustomerService
	publisher events.Publisher
}

// NewRecordService creates a new record service.
func NewRecordService(database *mongo.Database, customers ICustomerService, publisher events.Publisher) IRecordService {
	return &recordService{db: database, customers: customers, publisher: publisher}
}

func (s *recordService) records() *mongo.Collection {
	return s.db.Collection("milk_records")
}

// Create logs a delivery for a customer. The customer must belong to the
// vendor; amount is taken as-is and never recomputed from quantity. Status
// starts out derived from a zero paid amount.
func (s *recordService) Create(ctx context.Context, vendorID, customerID primitive.ObjectID, quantityKg, amount float64) (*models.DeliveryRecord, error) {
	if quantityKg <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if amount < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	customer, err := s.customers.FindOwned(ctx, vendorID, customerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotOwned
		}
		return nil, err
	}

	now := time.Now().UTC()
	record := &models.DeliveryRecord{
		ID:           primitive.NewObjectID(),
		VendorID:     vendorID,
		CustomerID:   customerID,
		CustomerName: customer.Name,
		QuantityKg:   quantityKg,
		Amount:       amount,
		PaidAmount:   0,
		Status:       models.DeriveStatus(amount, 0),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.records().InsertOne(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	s.publish(ctx, events.Event{
		Kind:       events.KindRecordCreated,
		VendorID:   vendorID.Hex(),
		CustomerID: customerID.Hex(),
		Month:      ledger.MonthOf(now).String(),
	})
	return record, nil
}

// FindOwned fetches a record and verifies vendor ownership.
func (s *recordService) FindOwned(ctx context.Context, vendorID, recordID primitive.ObjectID) (*models.DeliveryRecord, error) {
	var record models.DeliveryRecord
	err := s.records().FindOne(ctx, bson.M{"_id": recordID, "vendor_id": vendorID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to find record %s: %w", recordID.Hex(), err)
	}
	return &record, nil
}

// Correct is the manual status override: marking a record paid sets its paid
// amount to the full amount; marking it unpaid resets the paid amount to
// zero. In both directions the stored status is re-derived from the paid
// amount rather than written directly, so the two can never disagree.
func (s *recordService) Correct(ctx context.Context, vendorID, recordID primitive.ObjectID, markPaid bool) (*models.DeliveryRecord, error) {
	current, err := s.FindOwned(ctx, vendorID, recordID)
	if err != nil {
		return nil, err
	}

	newPaid := 0.0
	if markPaid {
		newPaid = current.Amount
	}
	newStatus := models.DeriveStatus(current.Amount, newPaid)

	after := options.After
	var record models.DeliveryRecord
	err = s.records().FindOneAndUpdate(ctx,
		bson.M{"_id": recordID, "vendor_id": vendorID},
		bson.M{"$set": bson.M{
			"paid_amount": newPaid,
			"status":      newStatus,
			"updated_at":  time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(after),
	).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to correct record: %w", err)
	}

	s.publish(ctx, events.Event{
		Kind:       events.KindStatusCorrected,
		VendorID:   vendorID.Hex(),
		CustomerID: record.CustomerID.Hex(),
		Month:      ledger.MonthOf(record.CreatedAt).String(),
	})
	return &record, nil
}

// Delete removes a single delivery record owned by the vendor.
func (s *recordService) Delete(ctx context.Context, vendorID, recordID primitive.ObjectID) error {
	res, err := s.records().DeleteOne(ctx, bson.M{"_id": recordID, "vendor_id": vendorID})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// publish sends a ledger event; delivery is best-effort and never fails the
// write that triggered it.
func (s *recordService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Kind, err)
	}
}

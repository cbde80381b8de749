package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/events"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

// AllocationResult reports what a payment did to the month's records.
type AllocationResult struct {
	Month          string  `json:"month"`
	RecordsUpdated int     `json:"records_updated"`
	Applied        float64 `json:"applied"`
	Remainder      float64 `json:"remainder"` // Unapplied portion of the payment
	Remaining      float64 `json:"remaining"` // Still outstanding after allocation
}

// IPaymentService applies customer payments to a month's delivery records.
type IPaymentService interface {
	Allocate(ctx context.Context, vendorID, customerID primitive.ObjectID, m ledger.Month, mode ledger.AllocationMode, amount float64) (*AllocationResult, error)
	Outstanding(ctx context.Context, vendorID, customerID primitive.ObjectID, m ledger.Month) (float64, error)
}

// paymentService serializes allocations per (vendor, customer, month) with a
// keyed in-process mutex. Two concurrent payments for the same key would
// otherwise read the same paid amounts and both apply on top of them.
type paymentService struct {
	db        *mongo.Database
	cfg       *config.Config
	publisher events.Publisher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPaymentService creates a new payment allocation service.
func NewPaymentService(database *mongo.Database, cfg *config.Config, publisher events.Publisher) IPaymentService {
	return &paymentService{
		db:        database,
		cfg:       cfg,
		publisher: publisher,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *paymentService) records() *mongo.Collection {
	return s.db.Collection("milk_records")
}

func (s *paymentService) lockFor(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Allocate applies a payment to the customer's records for the month.
//
// ModePartial distributes the amount oldest-first. An amount above the
// outstanding balance is clamped, never written through: the surplus comes
// back as Remainder. Handlers reject such overpayments up front; the clamp
// here is the backstop that keeps paid amounts within record amounts even if
// they don't. ModeFull settles every outstanding record and ignores amount.
//
// Records are persisted one at a time, oldest first. If a write fails midway
// the earlier updates stand, each one internally consistent (paid amount and
// status written together), and the returned StoreError carries how many
// were applied so the caller can re-query and retry with the reduced
// remainder.
func (s *paymentService) Allocate(ctx context.Context, vendorID, customerID primitive.ObjectID, m ledger.Month, mode ledger.AllocationMode, amount float64) (*AllocationResult, error) {
	if mode != ledger.ModeFull && mode != ledger.ModePartial {
		return nil, fmt.Errorf("unknown allocation mode %q", mode)
	}
	if mode == ledger.ModePartial && amount <= 0 {
		return nil, ledger.ErrInvalidAmount
	}

	lockKey := fmt.Sprintf("%s:%s:%s", vendorID.Hex(), customerID.Hex(), m.String())
	lock := s.lockFor(lockKey)
	lock.Lock()
	defer lock.Unlock()

	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	records, err := s.fetchMonthRecords(storeCtx, vendorID, customerID, m)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	var allocations []ledger.Allocation
	var remainder float64
	switch mode {
	case ledger.ModeFull:
		allocations = ledger.SettleAll(records)
	case ledger.ModePartial:
		allocations, remainder, err = ledger.Distribute(records, amount)
		if err != nil {
			return nil, err
		}
	}

	result := &AllocationResult{Month: m.String(), Remainder: remainder}
	for _, a := range allocations {
		update := bson.M{"$set": bson.M{
			"paid_amount": a.PaidAmount,
			"status":      a.Status,
			"updated_at":  time.Now().UTC(),
		}}
		res, err := s.records().UpdateOne(storeCtx, bson.M{"_id": a.RecordID}, update)
		if err != nil {
			return result, &StoreError{Updated: result.RecordsUpdated, Err: err}
		}
		if res.MatchedCount == 0 {
			return result, &StoreError{
				Updated: result.RecordsUpdated,
				Err:     fmt.Errorf("record %s disappeared during allocation", a.RecordID.Hex()),
			}
		}
		result.RecordsUpdated++
		result.Applied += a.Applied
	}

	// Remaining is recomputed from the in-memory records plus what was
	// applied, not re-read, so the response reflects exactly this payment.
	result.Remaining = ledger.Outstanding(records) - result.Applied
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	s.publish(ctx, events.Event{
		Kind:       events.KindPaymentAllocated,
		VendorID:   vendorID.Hex(),
		CustomerID: customerID.Hex(),
		Month:      m.String(),
	})
	return result, nil
}

// Outstanding reports the customer's unpaid balance for the month. Handlers
// use it to reject overpayments before invoking Allocate.
func (s *paymentService) Outstanding(ctx context.Context, vendorID, customerID primitive.ObjectID, m ledger.Month) (float64, error) {
	records, err := s.fetchMonthRecords(ctx, vendorID, customerID, m)
	if err != nil {
		return 0, err
	}
	return ledger.Outstanding(records), nil
}

func (s *paymentService) fetchMonthRecords(ctx context.Context, vendorID, customerID primitive.ObjectID, m ledger.Month) ([]models.DeliveryRecord, error) {
	filter := bson.M{
		"vendor_id":   vendorID,
		"customer_id": customerID,
		"created_at":  bson.M{"$gte": m.Start(), "$lt": m.End()},
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

func (s *paymentService) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish %s event: %v", event.Kind, err)
	}
}

// IsNotFound reports whether err is the services' "missing or not owned"
// outcome, in either of its spellings.
func IsNotFound(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

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

	"github.com/Shubhamkumarpatel70/milkrecord/internal/db"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

// ICustomerService manages a vendor's customer list.
type ICustomerService interface {
	Create(ctx context.Context, vendorID primitive.ObjectID, name, whatsapp string) (*models.Customer, error)
	ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Customer, error)
	FindOwned(ctx context.Context, vendorID, customerID primitive.ObjectID) (*models.Customer, error)
	FindByWhatsApp(ctx context.Context, whatsapp string) ([]models.Customer, error)
	Update(ctx context.Context, vendorID, customerID primitive.ObjectID, name, whatsapp string) (*models.Customer, error)
	Delete(ctx context.Context, vendorID, customerID primitive.ObjectID) error
}

type customerService struct {
	db *mongo.Database
}

// NewCustomerService creates a new customer service.
func NewCustomerService(database *mongo.Database) ICustomerService {
	return &customerService{db: database}
}

func (s *customerService) customers() *mongo.Collection {
	return s.db.Collection("customers")
}

// Create adds a customer under the vendor. WhatsApp numbers are unique per
// vendor; the compound index enforces it and a duplicate surfaces as
// ErrWhatsAppExists.
func (s *customerService) Create(ctx context.Context, vendorID primitive.ObjectID, name, whatsapp string) (*models.Customer, error) {
	if name == "" {
		return nil, fmt.Errorf("customer name cannot be empty")
	}
	if !mobilePattern.MatchString(whatsapp) {
		return nil, fmt.Errorf("whatsapp must be exactly 10 digits")
	}

	now := time.Now().UTC()
	customer := &models.Customer{
		ID:        primitive.NewObjectID(),
		VendorID:  vendorID,
		Name:      name,
		WhatsApp:  whatsapp,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.customers().InsertOne(ctx, customer)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrWhatsAppExists
		}
		return nil, fmt.Errorf("failed to insert customer: %w", err)
	}
	return customer, nil
}

// ListByVendor returns the vendor's customers sorted by name.
func (s *customerService) ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Customer, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.customers().Find(ctx, bson.M{"vendor_id": vendorID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer cursor.Close(ctx)

	customers := []models.Customer{}
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}

// FindOwned fetches a customer and verifies it belongs to the vendor.
// A customer of some other vendor looks the same as a missing one.
func (s *customerService) FindOwned(ctx context.Context, vendorID, customerID primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	err := s.customers().FindOne(ctx, bson.M{"_id": customerID, "vendor_id": vendorID}).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to find customer %s: %w", customerID.Hex(), err)
	}
	return &customer, nil
}

// FindByWhatsApp looks up customer entries across all vendors. The same
// person may be a customer of several vendors, hence the slice.
func (s *customerService) FindByWhatsApp(ctx context.Context, whatsapp string) ([]models.Customer, error) {
	cursor, err := s.customers().Find(ctx, bson.M{"whatsapp": whatsapp})
	if err != nil {
		return nil, fmt.Errorf("failed to look up customers by whatsapp: %w", err)
	}
	defer cursor.Close(ctx)

	customers := []models.Customer{}
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, fmt.Errorf("failed to decode customers: %w", err)
	}
	return customers, nil
}

// Update renames a customer or changes its WhatsApp number. The denormalized
// customer name on existing delivery records is refreshed in the same call.
func (s *customerService) Update(ctx context.Context, vendorID, customerID primitive.ObjectID, name, whatsapp string) (*models.Customer, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != "" {
		set["name"] = name
	}
	if whatsapp != "" {
		if !mobilePattern.MatchString(whatsapp) {
			return nil, fmt.Errorf("whatsapp must be exactly 10 digits")
		}
		set["whatsapp"] = whatsapp
	}

	after := options.After
	var customer models.Customer
	err := s.customers().FindOneAndUpdate(ctx,
		bson.M{"_id": customerID, "vendor_id": vendorID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(after),
	).Decode(&customer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrWhatsAppExists
		}
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	if name != "" {
		_, err = s.db.Collection("milk_records").UpdateMany(ctx,
			bson.M{"vendor_id": vendorID, "customer_id": customerID},
			bson.M{"$set": bson.M{"customer_name": name}},
		)
		if err != nil {
			log.Printf("Failed to refresh customer name on records for %s: %v", customerID.Hex(), err)
		}
	}
	return &customer, nil
}

// Delete removes a customer together with all of its delivery records, so no
// orphaned records remain behind a dangling customer ID.
func (s *customerService) Delete(ctx context.Context, vendorID, customerID primitive.ObjectID) error {
	res, err := s.customers().DeleteOne(ctx, bson.M{"_id": customerID, "vendor_id": vendorID})
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}

	_, err = s.db.Collection("milk_records").DeleteMany(ctx, bson.M{"vendor_id": vendorID, "customer_id": customerID})
	if err != nil {
		return fmt.Errorf("customer deleted but failed to delete its records: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/db"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

var testMongoURI string

func init() {
	// Try to load .env from project root (two levels up from this file).
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := godotenv.Load(filepath.Join(projectRoot, ".env")); err != nil {
		godotenv.Load()
	}

	testMongoURI = os.Getenv("MONGO_URI_TEST")
	if testMongoURI == "" {
		testMongoURI = "mongodb://localhost:27017"
	}
}

// setupTestDB connects to the test MongoDB and returns a unique database per
// test, with indexes in place and a cleanup that drops it.
func setupTestDB(t *testing.T, name string) (*mongo.Database, func()) {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(testMongoURI))
	require.NoError(t, err, "Failed to connect to MongoDB")

	dbName := fmt.Sprintf("testdb_%s_%d", name, time.Now().UnixNano())
	database := client.Database(dbName)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))

	cleanup := func() {
		if err := database.Drop(context.Background()); err != nil {
			t.Logf("Failed to drop database %s: %v", dbName, err)
		}
		if err := client.Disconnect(context.Background()); err != nil {
			t.Logf("Failed to disconnect MongoDB client: %v", err)
		}
	}
	return database, cleanup
}

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:    "test-secret",
		JwtTTL:       time.Hour,
		StoreTimeout: 10 * time.Second,
	}
}

// seedVendor inserts a vendor directly, bypassing registration.
func seedVendor(t *testing.T, database *mongo.Database, name, mobile string) *models.Vendor {
	t.Helper()
	now := time.Now().UTC()
	vendor := &models.Vendor{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Mobile:    mobile,
		Role:      models.RoleVendor,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := database.Collection("vendors").InsertOne(context.Background(), vendor)
	require.NoError(t, err)
	return vendor
}

// seedCustomer inserts a customer directly.
func seedCustomer(t *testing.T, database *mongo.Database, vendorID primitive.ObjectID, name, whatsapp string) *models.Customer {
	t.Helper()
	now := time.Now().UTC()
	customer := &models.Customer{
		ID:        primitive.NewObjectID(),
		VendorID:  vendorID,
		Name:      name,
		WhatsApp:  whatsapp,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := database.Collection("customers").InsertOne(context.Background(), customer)
	require.NoError(t, err)
	return customer
}

// seedRecord inserts a delivery record with an explicit creation time.
func seedRecord(t *testing.T, database *mongo.Database, vendorID primitive.ObjectID, customer *models.Customer, quantityKg, amount, paidAmount float64, createdAt time.Time) *models.DeliveryRecord {
	t.Helper()
	record := &models.DeliveryRecord{
		ID:           primitive.NewObjectID(),
		VendorID:     vendorID,
		CustomerID:   customer.ID,
		CustomerName: customer.Name,
		QuantityKg:   quantityKg,
		Amount:       amount,
		PaidAmount:   paidAmount,
		Status:       models.DeriveStatus(amount, paidAmount),
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	_, err := database.Collection("milk_records").InsertOne(context.Background(), record)
	require.NoError(t, err)
	return record
}

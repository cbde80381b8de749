package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the primary node
	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		// Disconnect if ping fails
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(dbName)
	fmt.Println("Successfully connected to MongoDB!")

	return client, db, nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	fmt.Println("MongoDB connection closed.")
	return nil
}

// EnsureIndexes creates the indexes the ledger relies on. Safe to call on
// every startup; CreateMany is a no-op for indexes that already exist.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// Customers: whatsapp numbers are unique per vendor.
	_, err := db.Collection("customers").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "vendor_id", Value: 1}, {Key: "whatsapp", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("vendor_whatsapp_1"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create customer indexes: %w", err)
	}

	// Milk records: every ledger query is scoped by vendor and time window,
	// allocation additionally filters by customer.
	_, err = db.Collection("milk_records").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "vendor_id", Value: 1}, {Key: "customer_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create milk record indexes: %w", err)
	}

	// Vendors: mobile number is the login identifier.
	_, err = db.Collection("vendors").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mobile", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("mobile_1"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create vendor indexes: %w", err)
	}
	return nil
}

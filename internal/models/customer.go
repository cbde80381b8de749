package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is the payer of a vendor, identified by name and WhatsApp number.
// WhatsApp numbers are unique per vendor (compound index vendor_id+whatsapp).
type Customer struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VendorID  primitive.ObjectID `bson:"vendor_id" json:"vendor_id"`
	Name      string             `bson:"name" json:"name"`
	WhatsApp  string             `bson:"whatsapp" json:"whatsapp"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

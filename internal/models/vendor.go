package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role distinguishes regular vendors from administrators.
type Role string

const (
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

// PaymentOptions holds a vendor's UPI collection details.
type PaymentOptions struct {
	UpiID            string `bson:"upi_id,omitempty" json:"upi_id,omitempty"`
	HasPaymentOption bool   `bson:"has_payment_option" json:"has_payment_option"`
}

// Vendor is an account that records deliveries and receives payments
// (called "user" in earlier iterations of the product).
type Vendor struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Mobile         string             `bson:"mobile" json:"mobile"` // 10 digits, unique, login identifier
	MpinHash       string             `bson:"mpin_hash" json:"-"`   // bcrypt hash, never serialized
	Role           Role               `bson:"role" json:"role"`
	PaymentOptions PaymentOptions     `bson:"payment_options" json:"payment_options"`
	IsActive       bool               `bson:"is_active" json:"is_active"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the vendor holds the admin role.
func (v *Vendor) IsAdmin() bool {
	return v.Role == RoleAdmin
}

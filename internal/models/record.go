package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status marks whether a delivery record is fully paid.
type Status string

const (
	StatusPaid   Status = "paid"
	StatusUnpaid Status = "unpaid"
)

// DeriveStatus is the single source of truth for a record's status.
// No code path may write a status that did not come from here; status and
// paid amount drifting apart is exactly the bug class this prevents.
func DeriveStatus(amount, paidAmount float64) Status {
	if paidAmount >= amount {
		return StatusPaid
	}
	return StatusUnpaid
}

// DeliveryRecord is one logged delivery for a customer on a given date.
// Records are immutable after creation except for PaidAmount/Status/UpdatedAt,
// which only the payment allocation path touches. Amount is fixed at creation
// and never recomputed from quantity.
type DeliveryRecord struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	VendorID     primitive.ObjectID `bson:"vendor_id" json:"vendor_id"`
	CustomerID   primitive.ObjectID `bson:"customer_id" json:"customer_id"`
	CustomerName string             `bson:"customer_name" json:"customer_name"` // Denormalized for display
	QuantityKg   float64            `bson:"quantity_kg" json:"quantity_kg"`
	Amount       float64            `bson:"amount" json:"amount"`
	PaidAmount   float64            `bson:"paid_amount" json:"paid_amount"`
	Status       Status             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// Outstanding returns the unpaid remainder of the record, never negative.
func (r *DeliveryRecord) Outstanding() float64 {
	owed := r.Amount - r.PaidAmount
	if owed < 0 {
		return 0
	}
	return owed
}

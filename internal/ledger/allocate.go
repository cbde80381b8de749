package ledger

import (
	"errors"
	"sort"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidAmount is returned for non-positive payment amounts.
var ErrInvalidAmount = errors.New("payment amount must be positive")

// AllocationMode selects how a payment is spread across records.
type AllocationMode string

const (
	// ModePartial distributes the amount oldest-first until exhausted.
	ModePartial AllocationMode = "partial"
	// ModeFull settles every outstanding record regardless of amount.
	ModeFull AllocationMode = "full"
)

// Allocation is the computed update for one record. PaidAmount and Status
// form a pair: the store must persist them together, never status alone.
type Allocation struct {
	RecordID   primitive.ObjectID
	Applied    float64 // Amount added to the record's paid amount
	PaidAmount float64 // New paid amount after applying
	Status     models.Status
}

// Distribute spreads amount across outstanding records oldest-first
// (customers expect old debts cleared before new ones). Each record
// absorbs min(owed, remaining); paid amounts never exceed the record's
// amount, so an overpayment surfaces as a nonzero remainder instead of
// corrupting a record. Input order does not matter.
func Distribute(records []models.DeliveryRecord, amount float64) ([]Allocation, float64, error) {
	if amount <= 0 {
		return nil, 0, ErrInvalidAmount
	}

	ordered := make([]models.DeliveryRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	remaining := amount
	var allocations []Allocation
	for _, r := range ordered {
		if remaining <= 0 {
			break
		}
		owed := r.Outstanding()
		if owed <= 0 {
			continue // already settled
		}
		toApply := owed
		if remaining < owed {
			toApply = remaining
		}
		newPaid := r.PaidAmount + toApply
		allocations = append(allocations, Allocation{
			RecordID:   r.ID,
			Applied:    toApply,
			PaidAmount: newPaid,
			Status:     models.DeriveStatus(r.Amount, newPaid),
		})
		remaining -= toApply
	}
	return allocations, remaining, nil
}

// SettleAll marks every outstanding record fully paid ("mark as paid" mode).
// Already-settled records are skipped.
func SettleAll(records []models.DeliveryRecord) []Allocation {
	var allocations []Allocation
	for _, r := range records {
		owed := r.Outstanding()
		if owed <= 0 {
			continue
		}
		allocations = append(allocations, Allocation{
			RecordID:   r.ID,
			Applied:    owed,
			PaidAmount: r.Amount,
			Status:     models.DeriveStatus(r.Amount, r.Amount),
		})
	}
	return allocations
}

// Outstanding sums the unpaid remainder across records.
func Outstanding(records []models.DeliveryRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Outstanding()
	}
	return total
}

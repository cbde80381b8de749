package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
)

// RecordHandler handles delivery record CRUD, ledger views and payments.
type RecordHandler struct {
	recordService  services.IRecordService
	ledgerService  services.ILedgerService
	paymentService services.IPaymentService
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(recordService services.IRecordService, ledgerService services.ILedgerService, paymentService services.IPaymentService) *RecordHandler {
	return &RecordHandler{
		recordService:  recordService,
		ledgerService:  ledgerService,
		paymentService: paymentService,
	}
}

type createRecordRequest struct {
	CustomerID string  `json:"customer_id" binding:"required"`
	QuantityKg float64 `json:"quantity_kg" binding:"required"`
	Amount     float64 `json:"amount"`
}

// Create handles POST /v1/record.
func (h *RecordHandler) Create(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	var req createRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id and quantity_kg are required"})
		return
	}
	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}

	record, err := h.recordService.Create(c.Request.Context(), vendorID, customerID, req.QuantityKg, req.Amount)
	if err != nil {
		if errors.Is(err, services.ErrNotOwned) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"record": record})
}

// Ledger handles GET /v1/record/ledger?month=YYYY-MM[&customer_id=...].
// Without customer_id it returns the vendor-wide month view with
// per-customer totals.
func (h *RecordHandler) Ledger(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	m, err := ledger.ParseMonth(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be of the form YYYY-MM"})
		return
	}

	var customerID *primitive.ObjectID
	if raw := c.Query("customer_id"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
			return
		}
		customerID = &id
	}

	result, err := h.ledgerService.Aggregate(c.Request.Context(), vendorID, customerID, m)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build ledger"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Summaries handles GET /v1/record/summaries.
func (h *RecordHandler) Summaries(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	summaries, err := h.ledgerService.MonthlySummaries(c.Request.Context(), vendorID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build summaries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summaries": summaries})
}

// Today handles GET /v1/record/today.
func (h *RecordHandler) Today(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	total, err := h.ledgerService.TodaysQuantity(c.Request.Context(), vendorID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to total today's deliveries"})
		return
	}
	c.JSON(http.StatusOK, total)
}

// Total handles GET /v1/record/total.
func (h *RecordHandler) Total(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	total, err := h.ledgerService.TotalQuantity(c.Request.Context(), vendorID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to total deliveries"})
		return
	}
	c.JSON(http.StatusOK, total)
}

type correctStatusRequest struct {
	Paid *bool `json:"paid" binding:"required"`
}

// CorrectStatus handles PUT /v1/record/:id/status, the manual override for
// a single record.
func (h *RecordHandler) CorrectStatus(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID format"})
		return
	}

	var req correctStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Paid == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paid (true/false) is required"})
		return
	}

	record, err := h.recordService.Correct(c.Request.Context(), vendorID, recordID, *req.Paid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// Delete handles DELETE /v1/record/:id.
func (h *RecordHandler) Delete(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}
	recordID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid record ID format"})
		return
	}

	if err := h.recordService.Delete(c.Request.Context(), vendorID, recordID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete record"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type paymentRequest struct {
	CustomerID string  `json:"customer_id" binding:"required"`
	Month      string  `json:"month" binding:"required"`
	Mode       string  `json:"mode" binding:"required"` // "partial" or "full"
	Amount     float64 `json:"amount"`
}

// Pay handles POST /v1/record/payment: allocate a payment across the
// customer's records for the month.
func (h *RecordHandler) Pay(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "customer_id, month and mode are required"})
		return
	}
	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}
	m, err := ledger.ParseMonth(req.Month)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be of the form YYYY-MM"})
		return
	}
	mode := ledger.AllocationMode(req.Mode)
	if mode != ledger.ModePartial && mode != ledger.ModeFull {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be 'partial' or 'full'"})
		return
	}

	// Overpayments are rejected here; the allocator itself only clamps.
	if mode == ledger.ModePartial {
		outstanding, err := h.paymentService.Outstanding(c.Request.Context(), vendorID, customerID, m)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check outstanding balance"})
			return
		}
		if req.Amount > outstanding {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":       "Payment amount exceeds outstanding balance",
				"outstanding": outstanding,
			})
			return
		}
	}

	result, err := h.paymentService.Allocate(c.Request.Context(), vendorID, customerID, m, mode, req.Amount)
	if err != nil {
		var storeErr *services.StoreError
		switch {
		case errors.Is(err, ledger.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payment amount must be positive"})
		case errors.Is(err, services.ErrNoRecords):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No records for this customer and month"})
		case errors.As(err, &storeErr):
			// Partial progress: applied updates stand, the client must
			// re-query and may retry with the reduced amount.
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":           "Record store failed during allocation; some records were updated",
				"records_updated": storeErr.Updated,
				"retryable":       true,
			})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Payment allocation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// RegisterRecordRoutes wires the record endpoints onto the authenticated
// route group.
func RegisterRecordRoutes(authenticated *gin.RouterGroup, h *RecordHandler) {
	authenticated.POST("/record", h.Create)
	authenticated.GET("/record/ledger", h.Ledger)
	authenticated.GET("/record/summaries", h.Summaries)
	authenticated.GET("/record/today", h.Today)
	authenticated.GET("/record/total", h.Total)
	authenticated.PUT("/record/:id/status", h.CorrectStatus)
	authenticated.DELETE("/record/:id", h.Delete)
	authenticated.POST("/record/payment", h.Pay)
}

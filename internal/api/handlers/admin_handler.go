package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/storage"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/tasks"
)

// IAsynqClient defines the asynq client methods the handlers use. An
// interface so tests can mock enqueuing.
type IAsynqClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AdminHandler handles cross-vendor administration endpoints. All routes
// are gated by the admin middleware.
type AdminHandler struct {
	adminService     services.IAdminService
	statementStorage storage.IStatementStorage
	taskClient       IAsynqClient
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService services.IAdminService, statementStorage storage.IStatementStorage, taskClient IAsynqClient) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		statementStorage: statementStorage,
		taskClient:       taskClient,
	}
}

// ListVendors handles GET /v1/admin/vendors.
func (h *AdminHandler) ListVendors(c *gin.Context) {
	vendors, err := h.adminService.ListVendors(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list vendors"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vendors": vendors})
}

type updateVendorRequest struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
}

// UpdateVendor handles PUT /v1/admin/vendors/:id.
func (h *AdminHandler) UpdateVendor(c *gin.Context) {
	vendorID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID format"})
		return
	}

	var req updateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == "" && req.Mobile == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	vendor, err := h.adminService.UpdateVendor(c.Request.Context(), vendorID, req.Name, req.Mobile)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
		case errors.Is(err, services.ErrMobileExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetVendorActive handles PUT /v1/admin/vendors/:id/active.
func (h *AdminHandler) SetVendorActive(c *gin.Context) {
	vendorID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID format"})
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "active (true/false) is required"})
		return
	}

	vendor, err := h.adminService.SetVendorActive(c.Request.Context(), vendorID, *req.Active)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update vendor"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"vendor": vendor})
}

// DeleteVendor handles DELETE /v1/admin/vendors/:id.
func (h *AdminHandler) DeleteVendor(c *gin.Context) {
	vendorID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID format"})
		return
	}

	if err := h.adminService.DeleteVendor(c.Request.Context(), vendorID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete vendor"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// SystemStats handles GET /v1/admin/stats.
func (h *AdminHandler) SystemStats(c *gin.Context) {
	stats, err := h.adminService.SystemStats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// VendorStats handles GET /v1/admin/vendors/:id/stats.
func (h *AdminHandler) VendorStats(c *gin.Context) {
	vendorID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID format"})
		return
	}

	stats, err := h.adminService.VendorStats(c.Request.Context(), vendorID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute vendor stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TransactionStats handles GET /v1/admin/stats/transactions?period=. Period
// defaults to "all".
func (h *AdminHandler) TransactionStats(c *gin.Context) {
	period := c.Query("period")
	if period == "" {
		period = "all"
	}

	stats, err := h.adminService.TransactionStats(c.Request.Context(), period)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPeriod) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute transaction stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

type exportStatementRequest struct {
	VendorID   string `json:"vendor_id" binding:"required"`
	CustomerID string `json:"customer_id" binding:"required"`
	Month      string `json:"month" binding:"required"`
}

// ExportStatement handles POST /v1/admin/export-statement: enqueue a
// background export of one customer's monthly statement to the archive.
func (h *AdminHandler) ExportStatement(c *gin.Context) {
	var req exportStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vendor_id, customer_id and month are required"})
		return
	}
	vendorID, err := primitive.ObjectIDFromHex(req.VendorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID format"})
		return
	}
	customerID, err := primitive.ObjectIDFromHex(req.CustomerID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}
	if _, err := ledger.ParseMonth(req.Month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be of the form YYYY-MM"})
		return
	}

	task, err := tasks.NewStatementExportTask(vendorID, customerID, req.Month)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export task"})
		return
	}

	info, err := h.taskClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue export task"})
		return
	}

	log.Printf("Enqueued statement export task %s for %s/%s %s", info.ID, req.VendorID, req.CustomerID, req.Month)
	c.JSON(http.StatusAccepted, gin.H{
		"task_id": info.ID,
		"key":     storage.StatementKey(req.VendorID, req.CustomerID, req.Month),
	})
}

// StatementURL handles GET /v1/admin/statement-url?vendor_id=&customer_id=&month=:
// a short-lived download link for a previously exported statement.
func (h *AdminHandler) StatementURL(c *gin.Context) {
	vendorID := c.Query("vendor_id")
	customerID := c.Query("customer_id")
	month := c.Query("month")
	if vendorID == "" || customerID == "" || month == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vendor_id, customer_id and month are required"})
		return
	}
	if _, err := ledger.ParseMonth(month); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be of the form YYYY-MM"})
		return
	}

	url, err := h.statementStorage.PresignStatementURL(c.Request.Context(), storage.StatementKey(vendorID, customerID, month))
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to presign statement URL"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// RegisterAdminRoutes wires the admin endpoints onto the admin route group.
func RegisterAdminRoutes(admin *gin.RouterGroup, h *AdminHandler) {
	admin.GET("/vendors", h.ListVendors)
	admin.PUT("/vendors/:id", h.UpdateVendor)
	admin.PUT("/vendors/:id/active", h.SetVendorActive)
	admin.DELETE("/vendors/:id", h.DeleteVendor)
	admin.GET("/vendors/:id/stats", h.VendorStats)
	admin.GET("/stats", h.SystemStats)
	admin.GET("/stats/transactions", h.TransactionStats)
	admin.POST("/export-statement", h.ExportStatement)
	admin.GET("/statement-url", h.StatementURL)
}

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

// CustomerHandler handles the vendor's customer list and the public
// customer-facing ledger view.
type CustomerHandler struct {
	customerService services.ICustomerService
	ledgerService   services.ILedgerService
	vendorService   services.IVendorService
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(customerService services.ICustomerService, ledgerService services.ILedgerService, vendorService services.IVendorService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
		ledgerService:   ledgerService,
		vendorService:   vendorService,
	}
}

type createCustomerRequest struct {
	Name     string `json:"name" binding:"required"`
	WhatsApp string `json:"whatsapp" binding:"required"`
}

// Create handles POST /v1/customer.
func (h *CustomerHandler) Create(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and whatsapp are required"})
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), vendorID, req.Name, req.WhatsApp)
	if err != nil {
		if errors.Is(err, services.ErrWhatsAppExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"customer": customer})
}

// List handles GET /v1/customer.
func (h *CustomerHandler) List(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	customers, err := h.customerService.ListByVendor(c.Request.Context(), vendorID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

// Get handles GET /v1/customer/:id.
func (h *CustomerHandler) Get(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}

	customer, err := h.customerService.FindOwned(c.Request.Context(), vendorID, customerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

type updateCustomerRequest struct {
	Name     string `json:"name"`
	WhatsApp string `json:"whatsapp"`
}

// Update handles PUT /v1/customer/:id.
func (h *CustomerHandler) Update(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}

	var req updateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Name == "" && req.WhatsApp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	customer, err := h.customerService.Update(c.Request.Context(), vendorID, customerID, req.Name, req.WhatsApp)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		case errors.Is(err, services.ErrWhatsAppExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"customer": customer})
}

// Delete handles DELETE /v1/customer/:id.
func (h *CustomerHandler) Delete(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}

	if err := h.customerService.Delete(c.Request.Context(), vendorID, customerID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete customer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// PublicLedger handles GET /v1/customer/:id/ledger?month=YYYY-MM&whatsapp=...
// This is the customer-facing view: no JWT, access is proven by knowing the
// customer's own WhatsApp number (checked against the stored one).
func (h *CustomerHandler) PublicLedger(c *gin.Context) {
	customerID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid customer ID format"})
		return
	}
	m, err := ledger.ParseMonth(c.Query("month"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must be of the form YYYY-MM"})
		return
	}
	whatsapp := c.Query("whatsapp")
	if whatsapp == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "whatsapp is required"})
		return
	}

	matches, err := h.customerService.FindByWhatsApp(c.Request.Context(), whatsapp)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	var customer *struct {
		vendorID primitive.ObjectID
		name     string
	}
	for _, match := range matches {
		if match.ID == customerID {
			customer = &struct {
				vendorID primitive.ObjectID
				name     string
			}{vendorID: match.VendorID, name: match.Name}
			break
		}
	}
	if customer == nil {
		// Same response for unknown ID and wrong number.
		c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
		return
	}

	result, err := h.ledgerService.Aggregate(c.Request.Context(), customer.vendorID, &customerID, m)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build ledger"})
		return
	}

	// Attach the vendor's payment option so the customer can pay from here.
	response := gin.H{"customer_name": customer.name, "ledger": result}
	if vendor, err := h.vendorService.FindByID(c.Request.Context(), customer.vendorID); err == nil {
		response["vendor_name"] = vendor.Name
		response["payment_options"] = vendor.PaymentOptions
	}

	c.JSON(http.StatusOK, response)
}

// RegisterCustomerRoutes wires the customer endpoints onto the public and
// authenticated route groups.
func RegisterCustomerRoutes(public, authenticated *gin.RouterGroup, h *CustomerHandler) {
	public.GET("/customer/:id/ledger", h.PublicLedger)

	authenticated.POST("/customer", h.Create)
	authenticated.GET("/customer", h.List)
	authenticated.GET("/customer/:id", h.Get)
	authenticated.PUT("/customer/:id", h.Update)
	authenticated.DELETE("/customer/:id", h.Delete)
}

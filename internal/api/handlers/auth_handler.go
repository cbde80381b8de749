package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/api/middleware"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
)

// AuthHandler handles vendor registration, login and payment options.
type AuthHandler struct {
	vendorService   services.IVendorService
	customerService services.ICustomerService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(vendorService services.IVendorService, customerService services.ICustomerService) *AuthHandler {
	return &AuthHandler{
		vendorService:   vendorService,
		customerService: customerService,
	}
}

// currentVendorID extracts the authenticated vendor's ID from the context.
func currentVendorID(c *gin.Context) (primitive.ObjectID, bool) {
	hex := c.GetString(middleware.ContextKeyVendorID)
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication context"})
		return primitive.NilObjectID, false
	}
	return id, true
}

type registerRequest struct {
	Name   string `json:"name" binding:"required"`
	Mobile string `json:"mobile" binding:"required"`
	Mpin   string `json:"mpin" binding:"required"`
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, mobile and mpin are required"})
		return
	}

	vendor, err := h.vendorService.Register(c.Request.Context(), req.Name, req.Mobile, req.Mpin)
	if err != nil {
		if errors.Is(err, services.ErrMobileExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vendor": vendor})
}

type loginRequest struct {
	Mobile string `json:"mobile" binding:"required"`
	Mpin   string `json:"mpin" binding:"required"`
}

// Login handles POST /v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mobile and mpin are required"})
		return
	}

	vendor, token, err := h.vendorService.Authenticate(c.Request.Context(), req.Mobile, req.Mpin)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid mobile number or MPIN"})
		case errors.Is(err, services.ErrAccountDisabled):
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "vendor": vendor})
}

type customerLoginRequest struct {
	WhatsApp string `json:"whatsapp" binding:"required"`
}

// customerLoginEntry is one vendor relationship for a WhatsApp number.
type customerLoginEntry struct {
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	VendorID     string `json:"vendor_id"`
}

// CustomerLogin handles POST /v1/auth/customer-login. It is a public,
// captcha-gated endpoint: a customer enters their WhatsApp number and gets
// back their ledger identities across vendors. No token is issued; ledger
// reads re-verify the number on each request.
func (h *AuthHandler) CustomerLogin(c *gin.Context) {
	if !c.GetBool(middleware.ContextKeyIsHumanVerified) {
		c.JSON(http.StatusTeapot, gin.H{"error": "Captcha validation required"})
		return
	}

	var req customerLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "whatsapp is required"})
		return
	}

	customers, err := h.customerService.FindByWhatsApp(c.Request.Context(), req.WhatsApp)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Lookup failed"})
		return
	}
	if len(customers) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No customer account found for this WhatsApp number"})
		return
	}

	entries := make([]customerLoginEntry, 0, len(customers))
	for _, customer := range customers {
		entries = append(entries, customerLoginEntry{
			CustomerID:   customer.ID.Hex(),
			CustomerName: customer.Name,
			VendorID:     customer.VendorID.Hex(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"accounts": entries})
}

type paymentOptionRequest struct {
	UpiID string `json:"upi_id"`
}

// SetPaymentOption handles POST /v1/auth/payment-option (authenticated).
func (h *AuthHandler) SetPaymentOption(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	var req paymentOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	vendor, err := h.vendorService.SetPaymentOption(c.Request.Context(), vendorID, req.UpiID)
	if err != nil {
		if errors.Is(err, services.ErrInvalidUpiID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid UPI ID"})
			return
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment option"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_options": vendor.PaymentOptions})
}

// GetPaymentOption handles GET /v1/auth/payment-option (authenticated).
func (h *AuthHandler) GetPaymentOption(c *gin.Context) {
	vendorID, ok := currentVendorID(c)
	if !ok {
		return
	}

	vendor, err := h.vendorService.FindByID(c.Request.Context(), vendorID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load payment option"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_options": vendor.PaymentOptions})
}

// PaymentQR handles GET /v1/auth/payment-qr/:vendorId. Public so a customer
// viewing their ledger can fetch the vendor's payment code.
func (h *AuthHandler) PaymentQR(c *gin.Context) {
	vendorID, err := primitive.ObjectIDFromHex(c.Param("vendorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID format"})
		return
	}

	var amount float64
	if raw := c.Query("amount"); raw != "" {
		amount, err = strconv.ParseFloat(raw, 64)
		if err != nil || amount < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
	}

	qr, err := h.vendorService.PaymentQR(c.Request.Context(), vendorID, amount)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
			return
		}
		log.Printf("Failed to build payment QR for vendor %s: %v", vendorID.Hex(), err)
		c.JSON(http.StatusNotFound, gin.H{"error": "Vendor has no payment option configured"})
		return
	}

	c.JSON(http.StatusOK, qr)
}

// RegisterAuthRoutes wires the auth endpoints onto the public and
// authenticated route groups.
func RegisterAuthRoutes(public, authenticated *gin.RouterGroup, h *AuthHandler) {
	public.POST("/auth/register", h.Register)
	public.POST("/auth/login", h.Login)
	public.POST("/auth/customer-login", h.CustomerLogin)
	public.GET("/auth/payment-qr/:vendorId", h.PaymentQR)

	authenticated.POST("/auth/payment-option", h.SetPaymentOption)
	authenticated.GET("/auth/payment-option", h.GetPaymentOption)
}

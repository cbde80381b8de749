package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"time"

	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/auth"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/config"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/db"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
)

var (
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
	// UPI VPA: handle@provider, e.g. vendor@upi.
	upiPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)
)

// IVendorService manages vendor accounts and their payment options.
type IVendorService interface {
	Register(ctx context.Context, name, mobile, mpin string) (*models.Vendor, error)
	Authenticate(ctx context.Context, mobile, mpin string) (*models.Vendor, string, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error)
	SetPaymentOption(ctx context.Context, vendorID primitive.ObjectID, upiID string) (*models.Vendor, error)
	PaymentQR(ctx context.Context, vendorID primitive.ObjectID, amount float64) (*PaymentQR, error)
}

// PaymentQR is a ready-to-render UPI payment code.
type PaymentQR struct {
	UpiURI    string `json:"upi_uri"`
	PngBase64 string `json:"png_base64"`
}

type vendorService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewVendorService creates a new vendor service.
func NewVendorService(database *mongo.Database, cfg *config.Config) IVendorService {
	return &vendorService{db: database, cfg: cfg}
}

func (s *vendorService) vendors() *mongo.Collection {
	return s.db.Collection("vendors")
}

// Register creates a new vendor account with a hashed MPIN.
func (s *vendorService) Register(ctx context.Context, name, mobile, mpin string) (*models.Vendor, error) {
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if !mobilePattern.MatchString(mobile) {
		return nil, fmt.Errorf("mobile must be exactly 10 digits")
	}
	if !auth.ValidMPIN(mpin) {
		return nil, fmt.Errorf("MPIN must be exactly 5 digits")
	}

	hash, err := auth.HashMPIN(mpin)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	vendor := &models.Vendor{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Mobile:   mobile,
		MpinHash: hash,
		Role:     models.RoleVendor,
		PaymentOptions: models.PaymentOptions{
			HasPaymentOption: false,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.vendors().InsertOne(ctx, vendor)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrMobileExists
		}
		return nil, fmt.Errorf("failed to insert vendor: %w", err)
	}

	log.Printf("Registered vendor %s (%s)", vendor.ID.Hex(), vendor.Mobile)
	return vendor, nil
}

// Authenticate verifies mobile+MPIN and returns the vendor with a signed JWT.
// The bcrypt comparison runs even for unknown mobiles so response timing does
// not reveal which numbers are registered.
func (s *vendorService) Authenticate(ctx context.Context, mobile, mpin string) (*models.Vendor, string, error) {
	var vendor models.Vendor
	err := s.vendors().FindOne(ctx, bson.M{"mobile": mobile}).Decode(&vendor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			_, _ = bcrypt.GenerateFromPassword([]byte(mpin), bcrypt.DefaultCost)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up vendor: %w", err)
	}

	if !auth.CheckMPINHash(mpin, vendor.MpinHash) {
		return nil, "", ErrInvalidCredentials
	}
	if !vendor.IsActive {
		return nil, "", ErrAccountDisabled
	}

	token, err := auth.GenerateJWT(vendor.ID, vendor.IsAdmin(), s.cfg.JwtSecret, s.cfg.JwtTTL)
	if err != nil {
		return nil, "", err
	}
	return &vendor, token, nil
}

// FindByID fetches a vendor by its ID.
func (s *vendorService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := s.vendors().FindOne(ctx, bson.M{"_id": id}).Decode(&vendor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to find vendor %s: %w", id.Hex(), err)
	}
	return &vendor, nil
}

// SetPaymentOption stores the vendor's UPI ID so customers can be shown a
// payment QR. An empty UPI ID clears the option.
func (s *vendorService) SetPaymentOption(ctx context.Context, vendorID primitive.ObjectID, upiID string) (*models.Vendor, error) {
	opts := models.PaymentOptions{}
	if upiID != "" {
		if !upiPattern.MatchString(upiID) {
			return nil, ErrInvalidUpiID
		}
		opts.UpiID = upiID
		opts.HasPaymentOption = true
	}

	after := options.After
	var vendor models.Vendor
	err := s.vendors().FindOneAndUpdate(ctx,
		bson.M{"_id": vendorID},
		bson.M{"$set": bson.M{
			"payment_options": opts,
			"updated_at":      time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(after),
	).Decode(&vendor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to update payment option: %w", err)
	}
	return &vendor, nil
}

// PaymentQR builds a UPI deep link for the vendor (optionally pre-filled with
// an amount) and renders it as a base64 PNG QR code.
func (s *vendorService) PaymentQR(ctx context.Context, vendorID primitive.ObjectID, amount float64) (*PaymentQR, error) {
	vendor, err := s.FindByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if !vendor.PaymentOptions.HasPaymentOption || vendor.PaymentOptions.UpiID == "" {
		return nil, fmt.Errorf("vendor has no payment option configured")
	}

	params := url.Values{}
	params.Set("pa", vendor.PaymentOptions.UpiID)
	params.Set("pn", vendor.Name)
	params.Set("cu", "INR")
	if amount > 0 {
		params.Set("am", fmt.Sprintf("%.2f", amount))
	}
	upiURI := "upi://pay?" + params.Encode()

	png, err := qrcode.Encode(upiURI, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render payment QR: %w", err)
	}

	return &PaymentQR{
		UpiURI:    upiURI,
		PngBase64: base64.StdEncoding.EncodeToString(png),
	}, nil
}

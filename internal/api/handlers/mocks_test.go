package handlers

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
)

// --- Service Mocks ---

type MockVendorService struct {
	mock.Mock
}

func (m *MockVendorService) Register(ctx context.Context, name, mobile, mpin string) (*models.Vendor, error) {
	args := m.Called(ctx, name, mobile, mpin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vendor), args.Error(1)
}

func (m *MockVendorService) Authenticate(ctx context.Context, mobile, mpin string) (*models.Vendor, string, error) {
	args := m.Called(ctx, mobile, mpin)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.Vendor), args.String(1), args.Error(2)
}

func (m *MockVendorService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vendor), args.Error(1)
}

func (m *MockVendorService) SetPaymentOption(ctx context.Context, vendorID primitive.ObjectID, upiID string) (*models.Vendor, error) {
	args := m.Called(ctx, vendorID, upiID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vendor), args.Error(1)
}

func (m *MockVendorService) PaymentQR(ctx context.Context, vendorID primitive.ObjectID, amount float64) (*services.PaymentQR, error) {
	args := m.Called(ctx, vendorID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.PaymentQR), args.Error(1)
}

type MockCustomerService struct {
	mock.Mock
}

func (m *MockCustomerService) Create(ctx context.Context, vendorID primitive.ObjectID, name, whatsapp string) (*models.Customer, error) {
	args := m.Called(ctx, vendorID, name, whatsapp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) ListByVendor(ctx context.Context, vendorID primitive.ObjectID) ([]models.Customer, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Customer), args.Error(1)
}

func (m *MockCustomerService) FindOwned(ctx context.Context, vendorID, customerID primitive.ObjectID) (*models.Customer, error) {
	args := m.Called(ctx, vendorID, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) FindByWhatsApp(ctx context.Context, whatsapp string) ([]models.Customer, error) {
	args := m.Called(ctx, whatsapp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Customer), args.Error(1)
}

func (m *MockCustomerService) Update(ctx context.Context, vendorID, customerID primitive.ObjectID, name, whatsapp string) (*models.Customer, error) {
	args := m.Called(ctx, vendorID, customerID, name, whatsapp)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerService) Delete(ctx context.Context, vendorID, customerID primitive.ObjectID) error {
	args := m.Called(ctx, vendorID, customerID)
	return args.Error(0)
}

type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) Create(ctx context.Context, vendorID, customerID primitive.ObjectID, quantityKg, amount float64) (*models.DeliveryRecord, error) {
	args := m.Called(ctx, vendorID, customerID, quantityKg, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryRecord), args.Error(1)
}

func (m *MockRecordService) FindOwned(ctx context.Context, vendorID, recordID primitive.ObjectID) (*models.DeliveryRecord, error) {
	args := m.Called(ctx, vendorID, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryRecord), args.Error(1)
}

func (m *MockRecordService) Correct(ctx context.Context, vendorID, recordID primitive.ObjectID, markPaid bool) (*models.DeliveryRecord, error) {
	args := m.Called(ctx, vendorID, recordID, markPaid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeliveryRecord), args.Error(1)
}

func (m *MockRecordService) Delete(ctx context.Context, vendorID, recordID primitive.ObjectID) error {
	args := m.Called(ctx, vendorID, recordID)
	return args.Error(0)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Aggregate(ctx context.Context, vendorID primitive.ObjectID, customerID *primitive.ObjectID, mon ledger.Month) (*services.MonthLedger, error) {
	args := m.Called(ctx, vendorID, customerID, mon)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.MonthLedger), args.Error(1)
}

func (m *MockLedgerService) MonthlySummaries(ctx context.Context, vendorID primitive.ObjectID) ([]services.CustomerMonthSummary, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.CustomerMonthSummary), args.Error(1)
}

func (m *MockLedgerService) TodaysQuantity(ctx context.Context, vendorID primitive.ObjectID) (*services.QuantityTotal, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QuantityTotal), args.Error(1)
}

func (m *MockLedgerService) TotalQuantity(ctx context.Context, vendorID primitive.ObjectID) (*services.QuantityTotal, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.QuantityTotal), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Allocate(ctx context.Context, vendorID, customerID primitive.ObjectID, mon ledger.Month, mode ledger.AllocationMode, amount float64) (*services.AllocationResult, error) {
	args := m.Called(ctx, vendorID, customerID, mon, mode, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AllocationResult), args.Error(1)
}

func (m *MockPaymentService) Outstanding(ctx context.Context, vendorID, customerID primitive.ObjectID, mon ledger.Month) (float64, error) {
	args := m.Called(ctx, vendorID, customerID, mon)
	return args.Get(0).(float64), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vendor), args.Error(1)
}

func (m *MockAdminService) UpdateVendor(ctx context.Context, vendorID primitive.ObjectID, name, mobile string) (*models.Vendor, error) {
	args := m.Called(ctx, vendorID, name, mobile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vendor), args.Error(1)
}

func (m *MockAdminService) SetVendorActive(ctx context.Context, vendorID primitive.ObjectID, active bool) (*models.Vendor, error) {
	args := m.Called(ctx, vendorID, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vendor), args.Error(1)
}

func (m *MockAdminService) DeleteVendor(ctx context.Context, vendorID primitive.ObjectID) error {
	args := m.Called(ctx, vendorID)
	return args.Error(0)
}

func (m *MockAdminService) SystemStats(ctx context.Context) (*services.SystemStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.SystemStats), args.Error(1)
}

func (m *MockAdminService) VendorStats(ctx context.Context, vendorID primitive.ObjectID) (*services.VendorStats, error) {
	args := m.Called(ctx, vendorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.VendorStats), args.Error(1)
}

func (m *MockAdminService) TransactionStats(ctx context.Context, period string) (*services.TransactionStats, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TransactionStats), args.Error(1)
}

// --- Infra Mocks ---

type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

type MockStatementStorage struct {
	mock.Mock
}

func (m *MockStatementStorage) UploadStatement(ctx context.Context, key string, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockStatementStorage) PresignStatementURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

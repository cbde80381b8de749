package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/ledger"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
)

func newRecordTestSetup(vendorID primitive.ObjectID) (*MockRecordService, *MockLedgerService, *MockPaymentService, *gin.Engine) {
	mockRecords := new(MockRecordService)
	mockLedger := new(MockLedgerService)
	mockPayments := new(MockPaymentService)
	h := NewRecordHandler(mockRecords, mockLedger, mockPayments)
	r := newTestRouter(&vendorID, false, false)
	RegisterRecordRoutes(r.Group("/v1"), h)
	return mockRecords, mockLedger, mockPayments, r
}

func TestRecordHandler_Create(t *testing.T) {
	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	mockRecords, _, _, r := newRecordTestSetup(vendorID)

	record := &models.DeliveryRecord{
		ID:         primitive.NewObjectID(),
		VendorID:   vendorID,
		CustomerID: customerID,
		QuantityKg: 2.5,
		Amount:     150,
		Status:     models.StatusUnpaid,
	}
	mockRecords.On("Create", mock.Anything, vendorID, customerID, 2.5, 150.0).Return(record, nil)

	w := doJSON(t, r, http.MethodPost, "/v1/record", gin.H{
		"customer_id": customerID.Hex(), "quantity_kg": 2.5, "amount": 150,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	mockRecords.AssertExpectations(t)
}

func TestRecordHandler_CreateForeignCustomer(t *testing.T) {
	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	mockRecords, _, _, r := newRecordTestSetup(vendorID)

	mockRecords.On("Create", mock.Anything, vendorID, customerID, 2.0, 100.0).Return(nil, services.ErrNotOwned)

	w := doJSON(t, r, http.MethodPost, "/v1/record", gin.H{
		"customer_id": customerID.Hex(), "quantity_kg": 2.0, "amount": 100,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandler_LedgerValidation(t *testing.T) {
	vendorID := primitive.NewObjectID()
	_, _, _, r := newRecordTestSetup(vendorID)

	w := doJSON(t, r, http.MethodGet, "/v1/record/ledger?month=April-2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodGet, "/v1/record/ledger?month=2024-04&customer_id=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandler_Ledger(t *testing.T) {
	vendorID := primitive.NewObjectID()
	_, mockLedger, _, r := newRecordTestSetup(vendorID)

	m, err := ledger.ParseMonth("2024-04")
	require.NoError(t, err)
	result := &services.MonthLedger{Month: m.String()}
	mockLedger.On("Aggregate", mock.Anything, vendorID, (*primitive.ObjectID)(nil), m).Return(result, nil)

	w := doJSON(t, r, http.MethodGet, "/v1/record/ledger?month=2024-04", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	mockLedger.AssertExpectations(t)
}

func TestRecordHandler_CorrectStatus(t *testing.T) {
	vendorID := primitive.NewObjectID()
	recordID := primitive.NewObjectID()
	mockRecords, _, _, r := newRecordTestSetup(vendorID)

	updated := &models.DeliveryRecord{ID: recordID, VendorID: vendorID, Amount: 100, PaidAmount: 100, Status: models.StatusPaid}
	mockRecords.On("Correct", mock.Anything, vendorID, recordID, true).Return(updated, nil)

	w := doJSON(t, r, http.MethodPut, "/v1/record/"+recordID.Hex()+"/status", gin.H{"paid": true})
	assert.Equal(t, http.StatusOK, w.Code)

	// Missing paid flag is a bad request, not a default-to-false.
	w = doJSON(t, r, http.MethodPut, "/v1/record/"+recordID.Hex()+"/status", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	missing := primitive.NewObjectID()
	mockRecords.On("Correct", mock.Anything, vendorID, missing, false).Return(nil, mongo.ErrNoDocuments)
	w = doJSON(t, r, http.MethodPut, "/v1/record/"+missing.Hex()+"/status", gin.H{"paid": false})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordHandler_PayPartial(t *testing.T) {
	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	_, _, mockPayments, r := newRecordTestSetup(vendorID)

	m, err := ledger.ParseMonth("2024-05")
	require.NoError(t, err)

	mockPayments.On("Outstanding", mock.Anything, vendorID, customerID, m).Return(300.0, nil)
	result := &services.AllocationResult{Month: m.String(), RecordsUpdated: 3, Applied: 250, Remainder: 0, Remaining: 50}
	mockPayments.On("Allocate", mock.Anything, vendorID, customerID, m, ledger.ModePartial, 250.0).Return(result, nil)

	w := doJSON(t, r, http.MethodPost, "/v1/record/payment", gin.H{
		"customer_id": customerID.Hex(), "month": "2024-05", "mode": "partial", "amount": 250,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp services.AllocationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.RecordsUpdated)
	assert.Equal(t, 50.0, resp.Remaining)
	mockPayments.AssertExpectations(t)
}

func TestRecordHandler_PayOverpaymentRejected(t *testing.T) {
	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	_, _, mockPayments, r := newRecordTestSetup(vendorID)

	m, err := ledger.ParseMonth("2024-05")
	require.NoError(t, err)
	mockPayments.On("Outstanding", mock.Anything, vendorID, customerID, m).Return(100.0, nil)

	w := doJSON(t, r, http.MethodPost, "/v1/record/payment", gin.H{
		"customer_id": customerID.Hex(), "month": "2024-05", "mode": "partial", "amount": 150,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 100.0, resp["outstanding"])
	mockPayments.AssertNotCalled(t, "Allocate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecordHandler_PayValidation(t *testing.T) {
	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	_, _, mockPayments, r := newRecordTestSetup(vendorID)

	w := doJSON(t, r, http.MethodPost, "/v1/record/payment", gin.H{
		"customer_id": customerID.Hex(), "month": "2024-05", "mode": "sideways", "amount": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	m, err := ledger.ParseMonth("2024-05")
	require.NoError(t, err)
	mockPayments.On("Allocate", mock.Anything, vendorID, customerID, m, ledger.ModeFull, 0.0).Return(nil, services.ErrNoRecords)

	w = doJSON(t, r, http.MethodPost, "/v1/record/payment", gin.H{
		"customer_id": customerID.Hex(), "month": "2024-05", "mode": "full",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordHandler_PayStoreFailure(t *testing.T) {
	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()
	_, _, mockPayments, r := newRecordTestSetup(vendorID)

	m, err := ledger.ParseMonth("2024-05")
	require.NoError(t, err)
	mockPayments.On("Outstanding", mock.Anything, vendorID, customerID, m).Return(200.0, nil)
	storeErr := &services.StoreError{Updated: 1, Err: mongo.ErrClientDisconnected}
	mockPayments.On("Allocate", mock.Anything, vendorID, customerID, m, ledger.ModePartial, 120.0).Return(nil, storeErr)

	w := doJSON(t, r, http.MethodPost, "/v1/record/payment", gin.H{
		"customer_id": customerID.Hex(), "month": "2024-05", "mode": "partial", "amount": 120,
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1.0, resp["records_updated"])
	assert.Equal(t, true, resp["retryable"])
}

func TestRecordHandler_Delete(t *testing.T) {
	vendorID := primitive.NewObjectID()
	recordID := primitive.NewObjectID()
	mockRecords, _, _, r := newRecordTestSetup(vendorID)

	mockRecords.On("Delete", mock.Anything, vendorID, recordID).Return(nil)
	w := doJSON(t, r, http.MethodDelete, "/v1/record/"+recordID.Hex(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	missing := primitive.NewObjectID()
	mockRecords.On("Delete", mock.Anything, vendorID, missing).Return(mongo.ErrNoDocuments)
	w = doJSON(t, r, http.MethodDelete, "/v1/record/"+missing.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

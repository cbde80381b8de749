package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Shubhamkumarpatel70/milkrecord/internal/models"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/services"
	"github.com/Shubhamkumarpatel70/milkrecord/internal/tasks"
)

func newAdminTestSetup() (*MockAdminService, *MockStatementStorage, *MockAsynqClient, *gin.Engine) {
	mockAdmin := new(MockAdminService)
	mockStorage := new(MockStatementStorage)
	mockClient := new(MockAsynqClient)
	h := NewAdminHandler(mockAdmin, mockStorage, mockClient)
	adminID := primitive.NewObjectID()
	r := newTestRouter(&adminID, true, false)
	RegisterAdminRoutes(r.Group("/v1/admin"), h)
	return mockAdmin, mockStorage, mockClient, r
}

func TestAdminHandler_ListVendors(t *testing.T) {
	mockAdmin, _, _, r := newAdminTestSetup()

	vendors := []models.Vendor{
		{ID: primitive.NewObjectID(), Name: "Ramesh Dairy", IsActive: true},
		{ID: primitive.NewObjectID(), Name: "Suresh Dairy", IsActive: false},
	}
	mockAdmin.On("ListVendors", mock.Anything).Return(vendors, nil)

	w := doJSON(t, r, http.MethodGet, "/v1/admin/vendors", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Vendors []models.Vendor `json:"vendors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Vendors, 2)
}

func TestAdminHandler_SetVendorActive(t *testing.T) {
	mockAdmin, _, _, r := newAdminTestSetup()

	vendorID := primitive.NewObjectID()
	disabled := &models.Vendor{ID: vendorID, IsActive: false}
	mockAdmin.On("SetVendorActive", mock.Anything, vendorID, false).Return(disabled, nil)

	w := doJSON(t, r, http.MethodPut, "/v1/admin/vendors/"+vendorID.Hex()+"/active", gin.H{"active": false})
	assert.Equal(t, http.StatusOK, w.Code)

	// Missing flag rejected before the service is consulted.
	w = doJSON(t, r, http.MethodPut, "/v1/admin/vendors/"+vendorID.Hex()+"/active", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockAdmin.AssertNumberOfCalls(t, "SetVendorActive", 1)
}

func TestAdminHandler_UpdateVendor(t *testing.T) {
	mockAdmin, _, _, r := newAdminTestSetup()

	vendorID := primitive.NewObjectID()
	renamed := &models.Vendor{ID: vendorID, Name: "New Name"}
	mockAdmin.On("UpdateVendor", mock.Anything, vendorID, "New Name", "").Return(renamed, nil)

	w := doJSON(t, r, http.MethodPut, "/v1/admin/vendors/"+vendorID.Hex(), gin.H{"name": "New Name"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Empty update body rejected before the service is consulted.
	w = doJSON(t, r, http.MethodPut, "/v1/admin/vendors/"+vendorID.Hex(), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockAdmin.AssertNumberOfCalls(t, "UpdateVendor", 1)

	mockAdmin.On("UpdateVendor", mock.Anything, vendorID, "", "9876543211").Return(nil, services.ErrMobileExists)
	w = doJSON(t, r, http.MethodPut, "/v1/admin/vendors/"+vendorID.Hex(), gin.H{"mobile": "9876543211"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAdminHandler_TransactionStats(t *testing.T) {
	mockAdmin, _, _, r := newAdminTestSetup()

	mockAdmin.On("TransactionStats", mock.Anything, "all").Return(&services.TransactionStats{Period: "all", Records: 5}, nil)
	w := doJSON(t, r, http.MethodGet, "/v1/admin/stats/transactions", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	mockAdmin.On("TransactionStats", mock.Anything, "today").Return(&services.TransactionStats{Period: "today", Records: 1}, nil)
	w = doJSON(t, r, http.MethodGet, "/v1/admin/stats/transactions?period=today", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	mockAdmin.On("TransactionStats", mock.Anything, "fortnight").Return(nil, services.ErrInvalidPeriod)
	w = doJSON(t, r, http.MethodGet, "/v1/admin/stats/transactions?period=fortnight", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_DeleteVendor(t *testing.T) {
	mockAdmin, _, _, r := newAdminTestSetup()

	vendorID := primitive.NewObjectID()
	mockAdmin.On("DeleteVendor", mock.Anything, vendorID).Return(nil)
	w := doJSON(t, r, http.MethodDelete, "/v1/admin/vendors/"+vendorID.Hex(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	missing := primitive.NewObjectID()
	mockAdmin.On("DeleteVendor", mock.Anything, missing).Return(mongo.ErrNoDocuments)
	w = doJSON(t, r, http.MethodDelete, "/v1/admin/vendors/"+missing.Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminHandler_Stats(t *testing.T) {
	mockAdmin, _, _, r := newAdminTestSetup()

	mockAdmin.On("SystemStats", mock.Anything).Return(&services.SystemStats{TotalVendors: 3, TotalRecords: 42}, nil)
	w := doJSON(t, r, http.MethodGet, "/v1/admin/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	vendorID := primitive.NewObjectID()
	mockAdmin.On("VendorStats", mock.Anything, vendorID).Return(&services.VendorStats{VendorID: vendorID.Hex(), Outstanding: 70}, nil)
	w = doJSON(t, r, http.MethodGet, "/v1/admin/vendors/"+vendorID.Hex()+"/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminHandler_ExportStatement(t *testing.T) {
	_, _, mockClient, r := newAdminTestSetup()

	vendorID := primitive.NewObjectID()
	customerID := primitive.NewObjectID()

	info := &asynq.TaskInfo{ID: "task-123"}
	mockClient.On("EnqueueContext", mock.Anything, mock.MatchedBy(func(task *asynq.Task) bool {
		return task.Type() == tasks.TypeStatementExport
	}), mock.Anything).Return(info, nil)

	w := doJSON(t, r, http.MethodPost, "/v1/admin/export-statement", gin.H{
		"vendor_id": vendorID.Hex(), "customer_id": customerID.Hex(), "month": "2024-04",
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-123", resp["task_id"])
	assert.Equal(t, "statements/"+vendorID.Hex()+"/2024-04/"+customerID.Hex()+".csv", resp["key"])
	mockClient.AssertExpectations(t)
}

func TestAdminHandler_ExportStatementValidation(t *testing.T) {
	_, _, mockClient, r := newAdminTestSetup()

	w := doJSON(t, r, http.MethodPost, "/v1/admin/export-statement", gin.H{
		"vendor_id": "nope", "customer_id": primitive.NewObjectID().Hex(), "month": "2024-04",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, r, http.MethodPost, "/v1/admin/export-statement", gin.H{
		"vendor_id": primitive.NewObjectID().Hex(), "customer_id": primitive.NewObjectID().Hex(), "month": "April",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockClient.AssertNotCalled(t, "EnqueueContext", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminHandler_StatementURL(t *testing.T) {
	_, mockStorage, _, r := newAdminTestSetup()

	vendorID := primitive.NewObjectID().Hex()
	customerID := primitive.NewObjectID().Hex()
	key := "statements/" + vendorID + "/2024-04/" + customerID + ".csv"
	mockStorage.On("PresignStatementURL", mock.Anything, key).Return("https://example.com/signed", nil)

	w := doJSON(t, r, http.MethodGet, "/v1/admin/statement-url?vendor_id="+vendorID+"&customer_id="+customerID+"&month=2024-04", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://example.com/signed", resp["url"])

	w = doJSON(t, r, http.MethodGet, "/v1/admin/statement-url?vendor_id="+vendorID+"&month=2024-04", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

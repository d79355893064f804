package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/avalia-edu/avalia-api/internal/dto"
	"github.com/avalia-edu/avalia-api/internal/middleware"
	"github.com/avalia-edu/avalia-api/internal/models"
	appErrors "github.com/avalia-edu/avalia-api/pkg/errors"
)

type changeRequestServiceMock struct {
	created    *models.ChangeRequest
	createErr  error
	createdReq dto.CreateChangeRequestRequest

	listed  []models.ChangeRequest
	listErr error
	filter  models.ChangeRequestFilter

	got    *models.ChangeRequest
	getErr error

	resolved   *models.ChangeRequest
	resolveErr error
	approve    bool
}

func (m *changeRequestServiceMock) Create(ctx context.Context, req dto.CreateChangeRequestRequest, author *models.User) (*models.ChangeRequest, error) {
	m.createdReq = req
	return m.created, m.createErr
}

func (m *changeRequestServiceMock) List(ctx context.Context, filter models.ChangeRequestFilter, actor *models.User) ([]models.ChangeRequest, error) {
	m.filter = filter
	return m.listed, m.listErr
}

func (m *changeRequestServiceMock) Get(ctx context.Context, id int64, actor *models.User) (*models.ChangeRequest, error) {
	return m.got, m.getErr
}

func (m *changeRequestServiceMock) Resolve(ctx context.Context, id int64, approve bool, actor *models.User) (*models.ChangeRequest, error) {
	m.approve = approve
	return m.resolved, m.resolveErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestChangeRequestHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &changeRequestServiceMock{
		created: &models.ChangeRequest{ID: 1, TargetType: models.TargetInstitution, Status: models.ChangeRequestPending},
	}
	handler := NewChangeRequestHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{
		"target_type": "institution",
		"payload":     map[string]interface{}{"target_id": 5, "changes": map[string]string{"name": "X"}},
	})
	c, w := newGinContext(http.MethodPost, "/change-requests", payload)
	c.Set(middleware.ContextUserKey, &models.User{ID: 7, Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, models.TargetInstitution, mockSvc.createdReq.TargetType, "target type is upper-cased before the service")
}

func TestChangeRequestHandlerCreateUnprocessable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &changeRequestServiceMock{
		createErr: appErrors.Clone(appErrors.ErrUnprocessable, "change set must not be empty"),
	}
	handler := NewChangeRequestHandler(mockSvc)

	payload, _ := json.Marshal(map[string]interface{}{
		"target_type": "COURSE",
		"payload":     map[string]interface{}{"target_id": 5},
	})
	c, w := newGinContext(http.MethodPost, "/change-requests", payload)
	c.Set(middleware.ContextUserKey, &models.User{ID: 7, Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChangeRequestHandlerListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &changeRequestServiceMock{}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/change-requests?status=pending&target_type=subject", nil)
	c.Request.URL.RawQuery = "status=pending&target_type=subject"
	c.Set(middleware.ContextUserKey, &models.User{ID: 99, Role: models.RoleModerator})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.filter.Status)
	require.Equal(t, models.ChangeRequestPending, *mockSvc.filter.Status)
	require.NotNil(t, mockSvc.filter.TargetType)
	require.Equal(t, models.TargetSubject, *mockSvc.filter.TargetType)
}

func TestChangeRequestHandlerListInvalidStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewChangeRequestHandler(&changeRequestServiceMock{})

	c, w := newGinContext(http.MethodGet, "/change-requests", nil)
	c.Request.URL.RawQuery = "status=stale"
	c.Set(middleware.ContextUserKey, &models.User{ID: 99, Role: models.RoleModerator})

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeRequestHandlerResolve(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &changeRequestServiceMock{
		resolved: &models.ChangeRequest{ID: 3, Status: models.ChangeRequestApproved},
	}
	handler := NewChangeRequestHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/change-requests/3/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: 99, Role: models.RoleModerator})

	handler.Approve(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, mockSvc.approve)

	mockSvc.resolveErr = appErrors.Clone(appErrors.ErrConflict, "change request already resolved")
	c, w = newGinContext(http.MethodPost, "/change-requests/3/reject", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: 99, Role: models.RoleModerator})

	handler.Reject(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.False(t, mockSvc.approve)
}

func TestChangeRequestHandlerInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewChangeRequestHandler(&changeRequestServiceMock{})

	c, w := newGinContext(http.MethodGet, "/change-requests/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	c.Set(middleware.ContextUserKey, &models.User{ID: 99, Role: models.RoleModerator})

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

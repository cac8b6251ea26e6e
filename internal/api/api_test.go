package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AbodeTech/Liquidity-sub001/internal/api"
	"github.com/AbodeTech/Liquidity-sub001/internal/auth"
	"github.com/AbodeTech/Liquidity-sub001/internal/database"
	"github.com/AbodeTech/Liquidity-sub001/internal/realtime"
	"github.com/AbodeTech/Liquidity-sub001/internal/repository"
	"github.com/AbodeTech/Liquidity-sub001/internal/service"
	"github.com/AbodeTech/Liquidity-sub001/internal/storage"
	"github.com/AbodeTech/Liquidity-sub001/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testServer 组装一个贴近真实路由的测试服务器
type testServer struct {
	router    *gin.Engine
	validator *auth.TokenValidator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validator := auth.NewTokenValidator("liquidity",
		[]byte("applicant-secret-for-tests"),
		[]byte("administrator-secret-for-tests"))

	auditSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	draftSvc := service.NewDraftService(db, auditSvc, 0)
	docSvc := service.NewDocumentService(db, storage.NewMemoryUploader(), auditSvc)
	appSvc := service.NewApplicationService(db, auditSvc, nil)

	draftController := api.NewDraftController(draftSvc)
	documentController := api.NewDocumentController(docSvc)
	applicationController := api.NewApplicationController(appSvc)

	router := gin.New()
	router.GET("/health", api.NewHealthController(db, realtime.NewHub()).Check)

	v1 := router.Group("/api/v1")
	v1.Use(auth.AuthMiddleware(validator))
	{
		drafts := v1.Group("/drafts")
		drafts.POST("", draftController.Create)
		drafts.GET("/:id", draftController.Get)
		drafts.PATCH("/:id", draftController.Update)
		drafts.DELETE("/:id", draftController.Delete)
		drafts.POST("/:id/documents", documentController.Upload)
		drafts.POST("/:id/submit", applicationController.Submit)

		applications := v1.Group("/applications")
		applications.GET("", applicationController.List)
		applications.GET("/:id", applicationController.Get)

		review := applications.Group("")
		review.Use(auth.RequireRole(types.RoleAdministrator))
		review.POST("/:id/review", applicationController.Review)
		review.POST("/:id/approve", applicationController.Approve)
		review.POST("/:id/reject", applicationController.Reject)
		review.PUT("/:id/notes", applicationController.AddNotes)
	}

	return &testServer{router: router, validator: validator}
}

func (s *testServer) token(t *testing.T, subject string, role types.Role) string {
	t.Helper()
	token, err := s.validator.IssueToken(subject, role, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// completeRentDraft 完整的租房贷款向导请求体
func completeRentDraft() map[string]interface{} {
	return map[string]interface{}{
		"personal_info": map[string]interface{}{
			"full_name": "Ama Mensah",
			"email":     "ama.mensah@example.com",
			"phone":     "+233201234567",
			"id_number": "GHA-123456789-0",
		},
		"employment": map[string]interface{}{
			"employer_name":  "Acme Logistics",
			"monthly_income": "4200.00",
		},
		"loan_details": map[string]interface{}{
			"loan_amount":     "12000.00",
			"duration_months": 12,
			"rent": map[string]interface{}{
				"landlord_name":    "Kofi Properties",
				"landlord_contact": "+233302000111",
				"property_address": "45 Spintex Road, Accra",
				"monthly_rent":     "1500.00",
			},
		},
	}
}

func TestAPIRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/drafts", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", types.RoleApplicant)

	// 创建
	w := s.do(t, http.MethodPost, "/api/v1/drafts", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var created api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	draft, ok := created.Data.(map[string]interface{})
	require.True(t, ok)
	draftID, _ := draft["id"].(string)
	require.NotEmpty(t, draftID)

	// 更新
	w = s.do(t, http.MethodPatch, "/api/v1/drafts/"+draftID, token, completeRentDraft())
	require.Equal(t, http.StatusOK, w.Code)

	// 读取
	w = s.do(t, http.MethodGet, "/api/v1/drafts/"+draftID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ama Mensah")

	// 删除
	w = s.do(t, http.MethodDelete, "/api/v1/drafts/"+draftID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/drafts/"+draftID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorKindMapping(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, "user-1", types.RoleApplicant)

	// 不存在 -> 404 + 业务类别
	w := s.do(t, http.MethodGet, "/api/v1/drafts/missing-id", token, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "NOT_FOUND", errResp.Kind)

	// 他人草稿 -> 403
	w = s.do(t, http.MethodPost, "/api/v1/drafts", token, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	draftID := created.Data.(map[string]interface{})["id"].(string)

	other := s.token(t, "user-2", types.RoleApplicant)
	w = s.do(t, http.MethodGet, "/api/v1/drafts/"+draftID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 空草稿提交 -> 400 校验失败
	w = s.do(t, http.MethodPost, "/api/v1/drafts/"+draftID+"/submit", token, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "VALIDATION", errResp.Kind)
}

func TestReviewFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	applicant := s.token(t, "user-1", types.RoleApplicant)
	admin := s.token(t, "admin-1", types.RoleAdministrator)

	// 创建并填完草稿
	w := s.do(t, http.MethodPost, "/api/v1/drafts", applicant, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	draftID := created.Data.(map[string]interface{})["id"].(string)

	w = s.do(t, http.MethodPatch, "/api/v1/drafts/"+draftID, applicant, completeRentDraft())
	require.Equal(t, http.StatusOK, w.Code)

	// 提交
	w = s.do(t, http.MethodPost, "/api/v1/drafts/"+draftID+"/submit", applicant, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var submitted api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	appID := submitted.Data.(map[string]interface{})["id"].(string)
	require.NotEmpty(t, appID)

	// 申请人无法触达审查端点,角色门禁拦截
	w = s.do(t, http.MethodPost, "/api/v1/applications/"+appID+"/review", applicant, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 跳级批准 -> 409
	w = s.do(t, http.MethodPost, "/api/v1/applications/"+appID+"/approve", admin, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	var errResp api.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "INVALID_TRANSITION", errResp.Kind)

	// 正常链路
	w = s.do(t, http.MethodPost, "/api/v1/applications/"+appID+"/review", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/applications/"+appID+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"approved"`)

	// 备注:缺 notes 字段 -> 400
	w = s.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/notes", admin, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodPut, "/api/v1/applications/"+appID+"/notes", admin,
		map[string]interface{}{"notes": "income verified"})
	require.Equal(t, http.StatusOK, w.Code)

	// 申请人查看自己的申请,状态历史完整
	w = s.do(t, http.MethodGet, "/api/v1/applications/"+appID, applicant, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail api.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	app := detail.Data.(map[string]interface{})
	history, ok := app["status_history"].([]interface{})
	require.True(t, ok)
	assert.Len(t, history, 3)
}

func TestListScopesApplicant(t *testing.T) {
	s := newTestServer(t)
	applicant := s.token(t, "user-1", types.RoleApplicant)

	w := s.do(t, http.MethodGet, "/api/v1/applications?status=approved&page=1&page_size=10", applicant, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 0, resp.Pagination.Total)
	assert.Equal(t, 10, resp.Pagination.PageSize)
}

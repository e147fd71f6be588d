package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/devops-wrapped/internal/apperror"
	"github.com/naka-gawa/devops-wrapped/internal/domain"
)

// MockWrappedService is a mock implementation of WrappedService.
type MockWrappedService struct {
	mock.Mock
}

func (m *MockWrappedService) Generate(ctx context.Context, token string, scope domain.Scope) (*domain.Result, error) {
	args := m.Called(ctx, token, scope)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Result), args.Error(1)
}

func (m *MockWrappedService) ListProjects(ctx context.Context, token, organization string) ([]domain.Project, error) {
	args := m.Called(ctx, token, organization)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Project), args.Error(1)
}

func (m *MockWrappedService) ListRepositories(ctx context.Context, token, organization, project string) ([]domain.Repository, error) {
	args := m.Called(ctx, token, organization, project)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Repository), args.Error(1)
}

func setupTestRouter(production bool) (*gin.Engine, *MockWrappedService) {
	gin.SetMode(gin.TestMode)
	svc := new(MockWrappedService)
	h := NewHandler(svc, zap.NewNop(), "configured-pat", production)
	return h.Router(), svc
}

func doRequest(router *gin.Engine, method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router, _ := setupTestRouter(false)

	w := doRequest(router, http.MethodGet, "/api/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWrapped(t *testing.T) {
	scope := domain.Scope{Organization: "org", Projects: []string{"A"}, Repository: "repo", Year: 2024, UserEmail: "me@example.com"}
	body, _ := json.Marshal(scope)

	testCases := []struct {
		name           string
		body           []byte
		headers        map[string]string
		production     bool
		expectedToken  string
		mockResult     *domain.Result
		mockErr        error
		expectedStatus int
		assertBody     func(t *testing.T, raw []byte)
	}{
		{
			name:          "success with bearer token",
			body:          body,
			headers:       map[string]string{"Authorization": "Bearer caller-pat"},
			expectedToken: "caller-pat",
			mockResult: &domain.Result{
				Stats:  &domain.WrappedStats{Commits: domain.CommitStats{Total: 12}},
				Errors: []domain.ProjectError{{Project: "A", Kind: domain.KindWorkItems, Category: apperror.CategoryPermission}},
			},
			expectedStatus: http.StatusOK,
			assertBody: func(t *testing.T, raw []byte) {
				var res domain.Result
				require.NoError(t, json.Unmarshal(raw, &res))
				assert.Equal(t, 12, res.Stats.Commits.Total)
				assert.Len(t, res.Errors, 1)
			},
		},
		{
			name:           "falls back to configured token",
			body:           body,
			expectedToken:  "configured-pat",
			mockResult:     &domain.Result{Stats: &domain.WrappedStats{}},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "all projects failed",
			body:           body,
			expectedToken:  "configured-pat",
			mockResult:     &domain.Result{Errors: []domain.ProjectError{{Project: "A", Kind: domain.KindCommits}}},
			mockErr:        apperror.NewNotFound("no data could be retrieved from any project"),
			expectedStatus: http.StatusNotFound,
			assertBody: func(t *testing.T, raw []byte) {
				var res ErrorResponse
				require.NoError(t, json.Unmarshal(raw, &res))
				assert.Equal(t, apperror.CategoryNotFound, res.Error)
				assert.Len(t, res.Details, 1)
				assert.NotEmpty(t, res.Stack)
			},
		},
		{
			name:           "production hides the stack",
			body:           body,
			production:     true,
			expectedToken:  "configured-pat",
			mockErr:        apperror.NewAuthentication("token expired"),
			expectedStatus: http.StatusUnauthorized,
			assertBody: func(t *testing.T, raw []byte) {
				var res ErrorResponse
				require.NoError(t, json.Unmarshal(raw, &res))
				assert.Equal(t, apperror.CategoryAuthentication, res.Error)
				assert.Equal(t, "token expired", res.Message)
				assert.Empty(t, res.Stack)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, svc := setupTestRouter(tc.production)
			svc.On("Generate", mock.Anything, tc.expectedToken, scope).Return(tc.mockResult, tc.mockErr)

			w := doRequest(router, http.MethodPost, "/api/wrapped", tc.body, tc.headers)

			assert.Equal(t, tc.expectedStatus, w.Code)
			if tc.assertBody != nil {
				tc.assertBody(t, w.Body.Bytes())
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestWrapped_InvalidBody(t *testing.T) {
	router, svc := setupTestRouter(false)

	w := doRequest(router, http.MethodPost, "/api/wrapped", []byte(`{"year":`), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var res ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, apperror.CategoryValidation, res.Error)
	svc.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
}

func TestWrapped_RateLimitSetsRetryAfter(t *testing.T) {
	router, svc := setupTestRouter(false)
	svc.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apperror.NewRateLimit("slow down", 90*time.Second))

	w := doRequest(router, http.MethodPost, "/api/wrapped", []byte(`{}`), nil)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "90", w.Header().Get("Retry-After"))
}

func TestListProjects(t *testing.T) {
	router, svc := setupTestRouter(false)
	expected := []domain.Project{{ID: "1", Name: "Alpha"}}
	svc.On("ListProjects", mock.Anything, "configured-pat", "org").Return(expected, nil)

	w := doRequest(router, http.MethodGet, "/api/projects?organization=org", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []domain.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, expected, got)
}

func TestListRepositories(t *testing.T) {
	router, svc := setupTestRouter(false)
	svc.On("ListRepositories", mock.Anything, "configured-pat", "org", "").
		Return(nil, apperror.NewValidation("missing required fields: project"))

	w := doRequest(router, http.MethodGet, "/api/repositories?organization=org", nil, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var res ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "missing required fields: project", res.Message)
}

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/infrastructure/auth"
	"github.com/ribotflow/backend/internal/interfaces/http/dto"
	"github.com/ribotflow/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

var (
	testTenantID = uuid.MustParse("5d2f3c1e-7a44-4a7e-9d0c-2b1f0e9a6c11")
	testUserID   = uuid.MustParse("9b8e6f2a-1c3d-4e5f-8a7b-6c5d4e3f2a1b")
)

// authenticated sets the claims the JWT middleware would set
func authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{
			TenantID:    testTenantID.String(),
			UserID:      testUserID.String(),
			Role:        "admin",
			Permissions: []string{auth.WildcardPermission},
		})
		c.Set(middleware.JWTTenantIDKey, testTenantID.String())
		c.Set(middleware.JWTUserIDKey, testUserID.String())
		c.Next()
	}
}

func newTestRouter(signedIn bool) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	if signedIn {
		r.Use(authenticated())
	}
	return r
}

func doRequest(r http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, r http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	if payload == nil {
		return doRequest(r, method, path, nil, "")
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return doRequest(r, method, path, bytes.NewReader(body), "application/json")
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// decodeData unmarshals the data field into out
func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/internal/pkg/jwt"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testJWTSecret = "test-secret-key-for-middleware"

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func ticketRouter() *gin.Engine {
	router := gin.New()
	router.Use(SessionTicket(testJWTSecret))
	router.GET("/test", func(c *gin.Context) {
		sessionID, ok := GetSessionID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{})
			return
		}
		c.JSON(http.StatusOK, gin.H{"session_id": sessionID})
	})
	return router
}

func TestSessionTicket_QueryToken(t *testing.T) {
	token, err := jwt.GenerateToken("rfp_opt_20260101_120000_abcdef", testJWTSecret, 1)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/test?token="+token, nil)
	w := httptest.NewRecorder()
	ticketRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "rfp_opt_20260101_120000_abcdef")
}

func TestSessionTicket_BearerHeader(t *testing.T) {
	token, err := jwt.GenerateToken("analysis_x", testJWTSecret, 1)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	ticketRouter().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionTicket_Rejected(t *testing.T) {
	otherSecret, err := jwt.GenerateToken("analysis_x", "another-secret", 1)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
	}{
		{"missing", "/test", ""},
		{"header without bearer", "/test", otherSecret},
		{"wrong secret", "/test?token=" + otherSecret, ""},
		{"garbage", "/test?token=not-a-jwt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			ticketRouter().ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, response.CodeAuthFailed, parseResponse(t, w).Code)
		})
	}
}

func TestGetSessionID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetSessionID(c)
	assert.False(t, ok)
}

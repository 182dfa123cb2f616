package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectme/auth"
)

func TestJWTMiddleware(t *testing.T) {
	svc := auth.NewService("secret")
	key, err := svc.GenerateAnonKey(0)
	require.NoError(t, err)

	var role any
	handler := JWTMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = r.Context().Value(RoleKey)
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token " + key, http.StatusUnauthorized},
		{"Bearer", http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer " + key, http.StatusOK},
		{"bearer " + key, http.StatusOK},
	} {
		role = nil
		req := httptest.NewRequest(http.MethodGet, "/postits", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.header)

		if tc.status == http.StatusOK {
			assert.Equal(t, auth.RoleAnon, role)
			continue
		}
		assert.Nil(t, role)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	}
}

func TestCORS(t *testing.T) {
	called := false
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/postits", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/postits", nil))
	assert.True(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

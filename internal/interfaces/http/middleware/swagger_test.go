package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	jwtService := newTestJWTService()
	token, _ := newTestToken(t, jwtService, true)

	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		token      string
		status     int
		code       string
	}{
		{
			name:   "disabled",
			cfg:    SwaggerConfig{Enabled: false},
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "enabled without restrictions",
			cfg:    SwaggerConfig{Enabled: true},
			status: http.StatusOK,
		},
		{
			name:       "allowed IP",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"127.0.0.1"}},
			remoteAddr: "127.0.0.1:12345",
			status:     http.StatusOK,
		},
		{
			name:       "IP outside allow list",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.1"}},
			remoteAddr: "192.168.1.1:12345",
			status:     http.StatusForbidden,
			code:       "PERMISSION_DENIED",
		},
		{
			name:       "IP inside CIDR",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}},
			remoteAddr: "10.50.100.200:12345",
			status:     http.StatusOK,
		},
		{
			name:       "IP outside CIDR",
			cfg:        SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}},
			remoteAddr: "192.168.1.1:12345",
			status:     http.StatusForbidden,
			code:       "PERMISSION_DENIED",
		},
		{
			name:   "auth required without token",
			cfg:    SwaggerConfig{Enabled: true, RequireAuth: true},
			status: http.StatusUnauthorized,
			code:   "UNAUTHORIZED",
		},
		{
			name:   "auth required with valid token",
			cfg:    SwaggerConfig{Enabled: true, RequireAuth: true},
			token:  token,
			status: http.StatusOK,
		},
		{
			name:       "allowed IP still needs a token",
			cfg:        SwaggerConfig{Enabled: true, RequireAuth: true, AllowedIPs: []string{"127.0.0.1"}},
			remoteAddr: "127.0.0.1:12345",
			status:     http.StatusUnauthorized,
			code:       "UNAUTHORIZED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/swagger/*any",
				SwaggerProtection(tt.cfg, JWTAuthMiddleware(jwtService)),
				func(c *gin.Context) { c.String(http.StatusOK, "docs") })

			req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
			if tt.remoteAddr != "" {
				req.RemoteAddr = tt.remoteAddr
			}
			if tt.token != "" {
				req.Header.Set(AuthHeaderKey, BearerPrefix+tt.token)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.code != "" {
				assert.Equal(t, tt.code, decodeError(t, w).Code)
			} else {
				assert.Equal(t, "docs", w.Body.String())
			}
		})
	}
}

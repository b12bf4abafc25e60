package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2beens/liftsync/internal/middleware"
	"github.com/2beens/liftsync/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAPIKeyAuth_AuthCheck(t *testing.T) {
	keyHash, err := pkg.HashAPIKey("valid-key", bcrypt.MinCost)
	require.NoError(t, err)
	authMiddleware := middleware.NewAPIKeyAuth(keyHash)

	testCases := []struct {
		name               string
		path               string
		method             string
		apiKey             string
		expectedStatusCode int
	}{
		{
			name:               "ImagesWithoutKey",
			path:               "/images/u1-abc.jpg",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "OptionsWithoutKey",
			path:               "/users/u1/state",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "MissingKey",
			path:               "/users/u1/state",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "ValidKey",
			path:               "/users/u1/state",
			method:             "GET",
			apiKey:             "valid-key",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ValidKeyAgain",
			path:               "/users/u1/workouts",
			method:             "POST",
			apiKey:             "valid-key",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "InvalidKey",
			path:               "/users/u1/state",
			method:             "GET",
			apiKey:             "invalid-key",
			expectedStatusCode: http.StatusUnauthorized,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			require.NoError(t, err)
			if tc.apiKey != "" {
				req.Header.Add(middleware.APIKeyHeader, tc.apiKey)
			}

			rr := httptest.NewRecorder()
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
		})
	}
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
)

func TestErrorHandlingMiddleware(t *testing.T) {
	withSilentLog(t)
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		expectedCode  int
		expectedError string
	}{
		{
			name: "kerror",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(kerror.Create("TextRequired", "Text is required").
					WithErrorCode(kerror.EC_INVALID_PARAMETER))
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Text is required",
		},
		{
			name: "plain error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic(fmt.Errorf("database password is hunter2"))
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "an unexpected error occurred",
		},
		{
			name: "string panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				panic("some panic message")
			},
			expectedCode:  http.StatusInternalServerError,
			expectedError: "an unexpected error occurred",
		},
		{
			name: "normal request",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
			expectedCode: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			rr := httptest.NewRecorder()
			ErrorHandlingMiddleware(tt.handler).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedError != "" {
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
				var response map[string]interface{}
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
				// the payload carries nothing but the message
				assert.Equal(t, map[string]interface{}{"error": tt.expectedError}, response)
			}
		})
	}
}

func TestErrorHandlingMiddleware_ErrorCodeMapping(t *testing.T) {
	withSilentLog(t)
	tests := []struct {
		name         string
		errorCode    kerror.ErrorCode
		expectedHTTP int
		expectedMsg  string
	}{
		{"invalid parameter", kerror.EC_INVALID_PARAMETER, http.StatusBadRequest, "test error"},
		{"forbidden", kerror.EC_FORBIDDEN, http.StatusForbidden, "test error"},
		{"not found", kerror.EC_NOT_FOUND, http.StatusNotFound, "test error"},
		{"method not allowed", kerror.EC_METHOD_NOT_ALLOWED, http.StatusMethodNotAllowed, "test error"},
		{"retryable", kerror.EC_RETRYABLE, http.StatusTooManyRequests, "test error"},
		{"network", kerror.EC_NETWORK_ERR, http.StatusGatewayTimeout, unexpectedErrorMsg},
		{"internal", kerror.EC_INTERNAL_ERROR, http.StatusServiceUnavailable, unexpectedErrorMsg},
		{"unknown", kerror.EC_UNKNOWN, http.StatusInternalServerError, unexpectedErrorMsg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(kerror.Create("TestError", "test error").WithErrorCode(tt.errorCode))
			})
			rr := httptest.NewRecorder()
			ErrorHandlingMiddleware(handler).ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

			assert.Equal(t, tt.expectedHTTP, rr.Code)
			var response map[string]string
			assert.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			assert.Equal(t, tt.expectedMsg, response["error"])
		})
	}
}

func TestAccessLogMiddleware_Status(t *testing.T) {
	withSilentLog(t)
	handler := AccessLogMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("PATCH", "/test", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	count, _ := HttpRequestMetrics.GetTimeSequence(context.Background(), "PATCH", "418").Get()
	assert.Equal(t, int64(1), count)
}

func TestStatusRecorder(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	assert.Equal(t, http.StatusOK, rec.Status())
	rec.Write([]byte("x"))
	rec.WriteHeader(http.StatusBadRequest)
	assert.Equal(t, http.StatusOK, rec.Status())
	assert.Equal(t, "OTHER", methodTag("BREW"))
}

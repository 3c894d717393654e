package kerror

import "net/http"

type ErrorCode string

const (
	EC_OK                 ErrorCode = "OK"
	EC_UNKNOWN            ErrorCode = "UNKNOWN"
	EC_NOT_FOUND          ErrorCode = "NOT_FOUND"
	EC_INVALID_PARAMETER  ErrorCode = "INVALID_PARAMETER"
	EC_FORBIDDEN          ErrorCode = "FORBIDDEN"
	EC_METHOD_NOT_ALLOWED ErrorCode = "METHOD_NOT_ALLOWED"
	EC_CONFLICT           ErrorCode = "CONFLICT"
	EC_INTERNAL_ERROR     ErrorCode = "INTERNAL_ERROR"
	EC_UNIMPLEMENTED      ErrorCode = "UNIMPLEMENTED"
	EC_TIMEOUT            ErrorCode = "TIMEOUT"
	EC_NETWORK_ERR        ErrorCode = "NETWORK_ERR"
	EC_RETRYABLE          ErrorCode = "RETRYABLE"
	EC_UNAUTHENTICATED    ErrorCode = "UNAUTHENTICATED"
)

var httpStatusByCode = map[ErrorCode]int{
	EC_OK:                 http.StatusOK,
	EC_UNKNOWN:            http.StatusInternalServerError,
	EC_NOT_FOUND:          http.StatusNotFound,
	EC_INVALID_PARAMETER:  http.StatusBadRequest,
	EC_FORBIDDEN:          http.StatusForbidden,
	EC_METHOD_NOT_ALLOWED: http.StatusMethodNotAllowed,
	EC_CONFLICT:           http.StatusConflict,
	EC_INTERNAL_ERROR:     http.StatusServiceUnavailable,
	EC_UNIMPLEMENTED:      http.StatusNotImplemented,
	EC_TIMEOUT:            http.StatusRequestTimeout,
	EC_NETWORK_ERR:        http.StatusGatewayTimeout,
	EC_RETRYABLE:          http.StatusTooManyRequests,
	EC_UNAUTHENTICATED:    http.StatusUnauthorized,
}

func (code ErrorCode) String() string {
	return string(code)
}

// ToHttpErrorCode maps an ErrorCode to the HTTP status written by the api middleware.
// Unmapped codes are reported as 503.
func (code ErrorCode) ToHttpErrorCode() int {
	if status, ok := httpStatusByCode[code]; ok {
		return status
	}
	return http.StatusServiceUnavailable
}

// ErrorCodeFromHttpStatus is the reverse mapping, used by http clients to classify a non-2xx response.
func ErrorCodeFromHttpStatus(status int) ErrorCode {
	switch {
	case status >= 200 && status < 300:
		return EC_OK
	case status == http.StatusInternalServerError:
		return EC_UNKNOWN
	case status == http.StatusServiceUnavailable:
		return EC_INTERNAL_ERROR
	}
	for code, s := range httpStatusByCode {
		if s == status {
			return code
		}
	}
	return EC_UNKNOWN
}

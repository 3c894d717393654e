package api

// HelloResponse is the body of GET /api/hello.
type HelloResponse struct {
	Message string `json:"message"`
}

// EchoRequest is the body of POST /api/echo.
type EchoRequest struct {
	Text string `json:"text"`
}

// EchoResponse carries the submitted text back unchanged.
type EchoResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

const (
	HelloMessage = "Hello World"

	RequestIdHeader = "X-Request-Id"
)

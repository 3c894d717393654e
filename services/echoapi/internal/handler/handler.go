package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-openapi/spec"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/libs/xklib/kmetrics"
	"github.com/xinkaiwang/helloecho/services/echoapi/api"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/biz"
)

const maxEchoBodyBytes = 1 << 20

// Handler serves the API routes and their documentation.
type Handler struct {
	app    *biz.App
	routes []Route
}

// Route is one method on one path, together with its API documentation.
type Route struct {
	Path    string
	Method  string
	Handler http.HandlerFunc
	Doc     *spec.Operation
}

func NewHandler(app *biz.App) *Handler {
	h := &Handler{app: app}
	h.routes = []Route{
		{
			Path:    "/api/hello",
			Method:  http.MethodGet,
			Handler: h.HelloHandler,
			Doc: spec.NewOperation("getHello").
				WithSummary("Get a hello world message").
				WithDescription("Returns a simple hello world message").
				WithTags("Hello").
				WithProduces("application/json").
				RespondsWith(http.StatusOK, jsonResponse("Successful response", "HelloResponse")),
		},
		{
			Path:    "/api/echo",
			Method:  http.MethodPost,
			Handler: h.EchoHandler,
			Doc: spec.NewOperation("postEcho").
				WithSummary("Echo back the provided text").
				WithDescription("Takes a text input and returns it back with a small delay").
				WithTags("Echo").
				WithConsumes("application/json").
				WithProduces("application/json").
				AddParam(spec.BodyParam("body", spec.RefSchema("#/definitions/EchoRequest")).AsRequired()).
				RespondsWith(http.StatusOK, jsonResponse("Successful response", "EchoResponse")).
				RespondsWith(http.StatusBadRequest, jsonResponse("Bad request - text is required", "ErrorResponse")),
		},
	}
	return h
}

func jsonResponse(description, definition string) *spec.Response {
	return spec.NewResponse().
		WithDescription(description).
		WithSchema(spec.RefSchema("#/definitions/" + definition))
}

func (h *Handler) Routes() []Route {
	return h.routes
}

// RegisterRoutes: each path answers its documented method (GET also answers HEAD), anything else is 405.
// Unknown paths get a JSON 404.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	for _, route := range h.routes {
		mux.Handle(route.Path, methodGuard(route))
	}
	docs := NewDocsHandler(BuildSwagger(biz.GetVersion(), h.routes))
	mux.Handle(SwaggerJsonPath, http.HandlerFunc(docs.SwaggerJsonHandler))
	mux.Handle(DocsPath, http.HandlerFunc(docs.SwaggerUIHandler))
	mux.Handle(DocsPath+"/", http.HandlerFunc(docs.SwaggerUIHandler))
	mux.Handle("/", http.HandlerFunc(NotFoundHandler))
}

func methodGuard(route Route) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == route.Method || (route.Method == http.MethodGet && r.Method == http.MethodHead) {
			route.Handler(w, r)
			return
		}
		w.Header().Set("Allow", route.Method)
		panic(kerror.Create("MethodNotAllowed", "Method not allowed").
			WithErrorCode(kerror.EC_METHOD_NOT_ALLOWED).
			With("method", r.Method).
			With("path", r.URL.Path).
			WithoutStack())
	})
}

func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	panic(kerror.Create("NotFound", "Not found").
		WithErrorCode(kerror.EC_NOT_FOUND).
		With("path", r.URL.Path).
		WithoutStack())
}

// HelloHandler ignores query string and body.
func (h *Handler) HelloHandler(w http.ResponseWriter, r *http.Request) {
	var resp api.HelloResponse
	kmetrics.InstrumentSummaryRunVoid(r.Context(), "api.hello", func() {
		resp.Message = h.app.Hello(r.Context())
	}, "")
	writeJson(w, r, http.StatusOK, &resp)
}

// echoBody keeps text untyped: any JSON value is accepted, only falsy ones count as missing.
type echoBody struct {
	Text interface{} `json:"text"`
}

func (h *Handler) EchoHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var resp api.EchoResponse
	kmetrics.InstrumentSummaryRunVoid(ctx, "api.echo", func() {
		text := decodeEchoText(w, r)
		klogging.Debug(ctx).With("textLen", len(text)).Log("EchoRequest", "received echo request")
		resp.Message = h.app.Echo(ctx, text)
	}, "")
	writeJson(w, r, http.StatusOK, &resp)
}

// decodeEchoText returns "" for an empty body and for a missing or falsy text (null, false, 0, "").
// Other values are echoed in their string form: 42 -> "42", true -> "true".
// The body must hold exactly one JSON value.
func decodeEchoText(w http.ResponseWriter, r *http.Request) string {
	var body echoBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEchoBodyBytes))
	err := dec.Decode(&body)
	if errors.Is(err, io.EOF) {
		return ""
	}
	if err == nil {
		var extra json.RawMessage
		if extraErr := dec.Decode(&extra); !errors.Is(extraErr, io.EOF) {
			err = kerror.Create("TrailingData", "unexpected data after the JSON body")
		}
	}
	if err != nil {
		panic(kerror.Wrap(err, "InvalidRequestBody", "Invalid request body", false).
			WithErrorCode(kerror.EC_INVALID_PARAMETER))
	}
	return textValue(body.Text)
}

// textValue renders a decoded JSON value the way a JS template literal would.
func textValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case float64:
		if val == 0 {
			return ""
		}
		if math.Abs(val) >= 1e21 {
			return strconv.FormatFloat(val, 'g', -1, 64)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case []interface{}:
		items := make([]string, len(val))
		for i, item := range val {
			if item != nil {
				items[i] = arrayItemValue(item)
			}
		}
		return strings.Join(items, ",")
	default:
		return "[object Object]"
	}
}

// arrayItemValue: inside an array false and 0 are printed, not dropped.
func arrayItemValue(v interface{}) string {
	switch val := v.(type) {
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == 0 {
			return "0"
		}
	}
	return textValue(v)
}

func writeJson(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// header already sent, nothing left to report to the caller
		klogging.Warning(r.Context()).WithError(err).Log("WriteResponseFailed", "failed to encode response")
	}
}

// Build wires routes and middlewares: access log -> error handling -> origin check/CORS -> routes.
func (h *Handler) Build(ctx context.Context, allowedOrigins []string) http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return AccessLogMiddleware(ErrorHandlingMiddleware(NewCorsMiddleware(ctx, allowedOrigins)(mux)))
}

package handler

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
	"github.com/xinkaiwang/helloecho/libs/xklib/kmetrics"
	"github.com/xinkaiwang/helloecho/services/echoapi/api"
)

const unexpectedErrorMsg = "an unexpected error occurred"

var (
	HttpRequestMetrics = kmetrics.CreateKmetric(context.Background(), "http_request_ms", "http request latency in ms", []string{"method", "code"})

	requestIdPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
)

// ErrorHandlingMiddleware recovers a panic from next, logs it and writes {"error": msg} with the status
// mapped from the kerror ErrorCode. 5xx responses never expose the internal message.
func ErrorHandlingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		startMs := kcommon.GetMonoTimeMs()
		ke := kcommon.TryCatchRun(ctx, func() {
			next.ServeHTTP(w, r)
		})
		if ke == nil {
			return
		}
		elapsedMs := kcommon.GetMonoTimeMs() - startMs

		status := ke.ErrorCode.ToHttpErrorCode()
		msg := ke.Msg
		entry := klogging.Info(ctx)
		if status >= http.StatusInternalServerError {
			msg = unexpectedErrorMsg
			entry = klogging.Error(ctx)
		}
		entry.With("elapsedMs", elapsedMs).
			With("status", status).
			WithError(ke).
			Log("RequestFailed", "request failed")

		writeJson(w, r, status, &api.ErrorResponse{Error: msg})
	})
}

// AccessLogMiddleware attaches a request id (the caller's X-Request-Id when well formed) to the
// request context and the response, then logs and measures the request.
func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestId := r.Header.Get(api.RequestIdHeader)
		if !requestIdPattern.MatchString(requestId) {
			requestId = kcommon.NewTraceId(ctx, "req_", 12)
		}
		ctx = klogging.EmbedTraceId(ctx, requestId)
		w.Header().Set(api.RequestIdHeader, requestId)

		rec := &statusRecorder{ResponseWriter: w}
		startMs := kcommon.GetMonoTimeMs()
		next.ServeHTTP(rec, r.WithContext(ctx))
		elapsedMs := kcommon.GetMonoTimeMs() - startMs

		HttpRequestMetrics.GetTimeSequence(ctx, methodTag(r.Method), strconv.Itoa(rec.Status())).Add(elapsedMs)
		klogging.Info(ctx).
			With("method", r.Method).
			With("path", r.URL.Path).
			With("status", rec.Status()).
			With("elapsedMs", elapsedMs).
			With("origin", r.Header.Get("Origin")).
			Log("HttpRequest", "")
	})
}

func methodTag(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions, http.MethodPatch:
		return method
	default:
		return "OTHER"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	if rec.status == 0 {
		rec.status = status
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

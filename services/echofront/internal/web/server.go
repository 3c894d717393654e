// Package web serves the browser page talking to the echo API.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/xinkaiwang/helloecho/libs/xklib/kcommon"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type PageData struct {
	Title      string
	ApiBaseURL string
}

type Server struct {
	page PageData
}

// NewServer: the page appends "/api/..." to apiBaseURL, so trailing slashes are dropped.
func NewServer(apiBaseURL string) *Server {
	return &Server{
		page: PageData{
			Title:      "Hello Echo",
			ApiBaseURL: strings.TrimRight(apiBaseURL, "/"),
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.IndexHandler)
	return accessLog(mux)
}

// IndexHandler renders the page for "/" only (GET/HEAD).
func (s *Server) IndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, &s.page); err != nil {
		klogging.Warning(r.Context()).WithError(err).Log("RenderPageFailed", "")
	}
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := klogging.EmbedTraceId(r.Context(), kcommon.NewTraceId(r.Context(), "web_", 8))
		startMs := kcommon.GetMonoTimeMs()
		next.ServeHTTP(w, r.WithContext(ctx))
		klogging.Debug(ctx).
			With("method", r.Method).
			With("path", r.URL.Path).
			With("elapsedMs", kcommon.GetMonoTimeMs()-startMs).
			Log("HttpRequest", "")
	})
}

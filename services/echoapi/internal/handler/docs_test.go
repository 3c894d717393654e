package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-openapi/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xinkaiwang/helloecho/services/echoapi/internal/biz"
)

func TestBuildSwagger(t *testing.T) {
	swagger := BuildSwagger("v1.0.0", NewHandler(biz.NewApp(0)).Routes())
	assert.Equal(t, "2.0", swagger.Swagger)
	assert.Equal(t, "v1.0.0", swagger.Info.Version)

	hello := swagger.Paths.Paths["/api/hello"]
	require.NotNil(t, hello.Get)
	assert.Nil(t, hello.Post)
	assert.Equal(t, []string{"Hello"}, hello.Get.Tags)

	echo := swagger.Paths.Paths["/api/echo"]
	require.NotNil(t, echo.Post)
	assert.Contains(t, echo.Post.Responses.StatusCodeResponses, http.StatusOK)
	assert.Contains(t, echo.Post.Responses.StatusCodeResponses, http.StatusBadRequest)
	require.Len(t, echo.Post.Parameters, 1)
	assert.Equal(t, "body", echo.Post.Parameters[0].In)
	assert.True(t, echo.Post.Parameters[0].Required)

	for _, name := range []string{"HelloResponse", "EchoRequest", "EchoResponse", "ErrorResponse"} {
		assert.Contains(t, swagger.Definitions, name)
	}
	assert.Equal(t, []string{"text"}, swagger.Definitions["EchoRequest"].Required)
	assert.Equal(t, []string{"Echo", "Hello"}, []string{swagger.Tags[0].Name, swagger.Tags[1].Name})
}

func TestDocsEndpoints(t *testing.T) {
	withSilentLog(t)
	h := newTestHandler(0)

	rr := serve(h, http.MethodGet, SwaggerJsonPath, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	var doc spec.Swagger
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &doc))
	assert.Equal(t, "Hello Echo API", doc.Info.Title)
	assert.Contains(t, doc.Paths.Paths, "/api/hello")
	assert.Contains(t, doc.Paths.Paths, "/api/echo")

	for _, path := range []string{DocsPath, DocsPath + "/"} {
		rr = serve(h, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Body.String(), "SwaggerUIBundle")
		assert.Contains(t, rr.Body.String(), "swagger.json")
	}
}

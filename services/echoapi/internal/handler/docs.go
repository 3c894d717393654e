package handler

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"

	"github.com/go-openapi/spec"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

const (
	DocsPath        = "/api-docs"
	SwaggerJsonPath = "/api-docs/swagger.json"
	swaggerUIDist   = "https://unpkg.com/swagger-ui-dist@5"
)

// BuildSwagger assembles a Swagger 2.0 document from the route table.
func BuildSwagger(version string, routes []Route) *spec.Swagger {
	paths := map[string]spec.PathItem{}
	for _, route := range routes {
		item := paths[route.Path]
		switch route.Method {
		case http.MethodGet:
			item.Get = route.Doc
		case http.MethodPost:
			item.Post = route.Doc
		case http.MethodPut:
			item.Put = route.Doc
		case http.MethodDelete:
			item.Delete = route.Doc
		}
		paths[route.Path] = item
	}

	return &spec.Swagger{
		SwaggerProps: spec.SwaggerProps{
			Swagger: "2.0",
			Info: &spec.Info{
				InfoProps: spec.InfoProps{
					Title:       "Hello Echo API",
					Version:     version,
					Description: "A hello world endpoint and a text echo endpoint",
					Contact: &spec.ContactInfo{
						ContactInfoProps: spec.ContactInfoProps{
							Name:  "API Support",
							Email: "support@example.com",
						},
					},
				},
			},
			BasePath:    "/",
			Schemes:     []string{"http"},
			Consumes:    []string{"application/json"},
			Produces:    []string{"application/json"},
			Paths:       &spec.Paths{Paths: paths},
			Definitions: definitions(),
			Tags:        tags(routes),
		},
	}
}

func definitions() spec.Definitions {
	return spec.Definitions{
		"HelloResponse": *new(spec.Schema).Typed("object", "").
			SetProperty("message", *spec.StringProperty().WithExample("Hello World")),
		"EchoRequest": *new(spec.Schema).Typed("object", "").
			WithRequired("text").
			SetProperty("text", *spec.StringProperty().
				WithDescription("Text to echo back").
				WithExample("Hello from API")),
		"EchoResponse": *new(spec.Schema).Typed("object", "").
			SetProperty("message", *spec.StringProperty().WithExample("Hello from API")),
		"ErrorResponse": *new(spec.Schema).Typed("object", "").
			SetProperty("error", *spec.StringProperty().WithExample("Text is required")),
	}
}

func tags(routes []Route) []spec.Tag {
	seen := map[string]bool{}
	var names []string
	for _, route := range routes {
		for _, tag := range route.Doc.Tags {
			if !seen[tag] {
				seen[tag] = true
				names = append(names, tag)
			}
		}
	}
	sort.Strings(names)
	list := make([]spec.Tag, 0, len(names))
	for _, name := range names {
		list = append(list, spec.NewTag(name, "", nil))
	}
	return list
}

var swaggerUITemplate = template.Must(template.New("swagger-ui").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <link rel="stylesheet" href="{{.Dist}}/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="{{.Dist}}/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({ url: {{.SpecUrl}}, dom_id: "#swagger-ui" });
  </script>
</body>
</html>
`))

// DocsHandler serves the document and the interactive page. Both are rendered once.
type DocsHandler struct {
	swagger *spec.Swagger
	json    []byte
}

func NewDocsHandler(swagger *spec.Swagger) *DocsHandler {
	data, err := json.Marshal(swagger)
	if err != nil {
		panic(kerror.Wrap(err, "SwaggerMarshalFailed", "failed to marshal api docs", true))
	}
	return &DocsHandler{swagger: swagger, json: data}
}

func (d *DocsHandler) SwaggerJsonHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(d.json)
}

func (d *DocsHandler) SwaggerUIHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := swaggerUITemplate.Execute(w, map[string]string{
		"Title":   d.swagger.Info.Title,
		"Dist":    swaggerUIDist,
		"SpecUrl": SwaggerJsonPath,
	})
	if err != nil {
		klogging.Warning(r.Context()).WithError(err).Log("SwaggerUIRenderFailed", "")
	}
}

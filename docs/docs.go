// Package docs serves the Swagger 2.0 document of the API, built from the
// routes registered on the gin engine.
package docs

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
)

// Operation describes one route in the generated document.
type Operation struct {
	Summary  string
	Tag      string
	Consumes string
	Produces string
	Admin    bool
}

// RouteDoc implements swag.Swagger over the engine's live route table.
type RouteDoc struct {
	engine *gin.Engine
	ops    map[string]Operation
	title  string
}

var ginPathParamRe = regexp.MustCompile(`:([^/]+)`)

func ginPathToSwaggerPath(path string) string {
	return ginPathParamRe.ReplaceAllString(path, "{$1}")
}

func NewRouteDoc(engine *gin.Engine, title string, ops map[string]Operation) *RouteDoc {
	return &RouteDoc{engine: engine, ops: ops, title: title}
}

// Register installs d as the default swag document read by gin-swagger.
func Register(d *RouteDoc) {
	swag.Register(swag.Name, d)
}

var errorSchema = map[string]interface{}{"$ref": "#/definitions/Response"}

var definitions = map[string]interface{}{
	"Response": map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"code":    map[string]interface{}{"type": "integer", "example": 400},
			"message": map[string]interface{}{"type": "string", "example": "validation error: requester email is invalid"},
		},
	},
}

func (d *RouteDoc) ReadDoc() string {
	paths := map[string]map[string]interface{}{}
	for _, route := range d.engine.Routes() {
		if strings.HasPrefix(route.Path, "/swagger") {
			continue
		}
		path := ginPathToSwaggerPath(route.Path)
		if paths[path] == nil {
			paths[path] = map[string]interface{}{}
		}
		method := strings.ToLower(route.Method)
		meta, ok := d.ops[route.Method+" "+route.Path]
		if !ok {
			meta = Operation{Summary: route.Method + " " + route.Path, Tag: "API"}
		}
		if meta.Produces == "" {
			meta.Produces = "application/json"
		}

		op := map[string]interface{}{
			"summary":  meta.Summary,
			"tags":     []string{meta.Tag},
			"produces": []string{meta.Produces},
			"responses": map[string]interface{}{
				"200": map[string]interface{}{"description": "OK"},
				"400": map[string]interface{}{"description": "Bad Request", "schema": errorSchema},
				"500": map[string]interface{}{"description": "Internal Server Error", "schema": errorSchema},
			},
		}
		if meta.Consumes != "" {
			op["consumes"] = []string{meta.Consumes}
		}
		if params := pathParams(route.Path); len(params) > 0 {
			op["parameters"] = params
		}
		if meta.Admin {
			op["security"] = []map[string][]string{{"ApiKeyAuth": {}}}
		}
		paths[path][method] = op
	}

	doc := map[string]interface{}{
		"swagger":     "2.0",
		"definitions": definitions,
		"info": map[string]interface{}{
			"title":   d.title,
			"version": "1.0",
		},
		"basePath": "/",
		"schemes":  []string{"http", "https"},
		"paths":    paths,
		"securityDefinitions": map[string]interface{}{
			"ApiKeyAuth": map[string]interface{}{"type": "apiKey", "in": "header", "name": "X-API-Key"},
		},
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func pathParams(path string) []map[string]interface{} {
	matches := ginPathParamRe.FindAllStringSubmatch(path, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	sort.Strings(names)
	params := make([]map[string]interface{}, 0, len(names))
	for _, n := range names {
		params = append(params, map[string]interface{}{
			"in": "path", "name": n, "required": true, "type": "string",
		})
	}
	return params
}

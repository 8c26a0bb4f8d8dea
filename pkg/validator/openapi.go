// Package validator checks incoming requests against an OpenAPI 3 schema.
// Validation is advisory: requests for paths the schema does not describe
// pass through untouched.
package validator

import (
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gin-gonic/gin"
)

// OpenAPIValidator holds a loaded schema and the route matcher built from it.
// The mutex allows ReloadSchema to swap both under concurrent validation.
type OpenAPIValidator struct {
	schema     *openapi3.T
	router     routers.Router
	schemaPath string
	mu         sync.RWMutex
}

func NewOpenAPIValidator(schemaPath string) (*OpenAPIValidator, error) {
	schema, router, err := loadSchema(schemaPath)
	if err != nil {
		return nil, err
	}
	return &OpenAPIValidator{
		schema:     schema,
		router:     router,
		schemaPath: schemaPath,
	}, nil
}

func loadSchema(path string) (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()
	schema, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading OpenAPI schema from %s: %w", path, err)
	}
	if err := schema.Validate(loader.Context); err != nil {
		return nil, nil, fmt.Errorf("invalid OpenAPI schema: %w", err)
	}
	router, err := gorillamux.NewRouter(schema)
	if err != nil {
		return nil, nil, fmt.Errorf("building OpenAPI router: %w", err)
	}
	return schema, router, nil
}

// ReloadSchema re-reads the schema file, e.g. after a deploy updated it.
func (v *OpenAPIValidator) ReloadSchema() error {
	schema, router, err := loadSchema(v.schemaPath)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.schema = schema
	v.router = router
	return nil
}

// Middleware rejects requests whose shape violates the schema with a 400.
// Requests that match no schema route are let through, so new endpoints can
// ship before the schema catches up.
func (v *OpenAPIValidator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := os.Stat(v.schemaPath); os.IsNotExist(err) {
			c.Next()
			return
		}

		v.mu.RLock()
		route, pathParams, err := v.router.FindRoute(c.Request)
		v.mu.RUnlock()
		if err != nil {
			c.Next()
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    c.Request,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}

		if err := openapi3filter.ValidateRequest(c.Request.Context(), input); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Invalid request: %v", err),
			})
			return
		}

		c.Next()
	}
}

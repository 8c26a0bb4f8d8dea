package router

import (
	"os"
	"path/filepath"

	"github.com/BatuhanVarlik/E-Commerce-App-sub002/pkg/validator"
)

// AddOpenAPIValidation wires schema validation in front of every route and
// serves the schema file itself under /api/docs. A missing schema file only
// logs a warning so local development works without one.
func (r *Router) AddOpenAPIValidation(schemaPath string) {
	if _, err := os.Stat(schemaPath); os.IsNotExist(err) {
		r.Logger.Warn("OpenAPI schema file not found, skipping validation", "path", schemaPath)
		return
	}

	v, err := validator.NewOpenAPIValidator(schemaPath)
	if err != nil {
		r.Logger.LogError(err, "failed to initialize OpenAPI validator")
		return
	}

	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI validation enabled", "schema", schemaPath)

	r.Engine.Static("/api/docs", filepath.Dir(schemaPath))
	r.Logger.Info("OpenAPI schema published", "url", "/api/docs/"+filepath.Base(schemaPath))
}

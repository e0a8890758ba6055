package endpoints

import (
	"biblio/internal/api"
	"biblio/internal/postgres"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// PostgresManager is nil when the server uses an external database.
	PostgresManager *postgres.DockerManager
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{PostgresManager: cfg.PostgresManager},

		// Author endpoints
		&ListAuthorsEndpoint{},
		&GetAuthorEndpoint{},

		// Book endpoints
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&GetChapterEndpoint{},
		&SearchBookEndpoint{},
		&UploadBookEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}

// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"biblio/internal/auth"
	"biblio/internal/cache"
	"biblio/internal/config"
	"biblio/internal/home"
	"biblio/internal/ingest"
	"biblio/internal/search"
	"biblio/internal/store"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Repo     store.Repository
	Cache    *cache.Cache
	Searcher search.Searcher
	Ingestor *ingest.Service
	Admin    auth.Credentials
	Config   *config.Manager
	Logger   *slog.Logger
	Home     *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// RepoFrom extracts the repository from context.
func RepoFrom(ctx context.Context) store.Repository {
	if s := ServicesFrom(ctx); s != nil {
		return s.Repo
	}
	return nil
}

// CacheFrom extracts the response cache from context. A nil cache is
// valid and behaves as disabled.
func CacheFrom(ctx context.Context) *cache.Cache {
	if s := ServicesFrom(ctx); s != nil {
		return s.Cache
	}
	return nil
}

// SearcherFrom extracts the search strategy from context.
func SearcherFrom(ctx context.Context) search.Searcher {
	if s := ServicesFrom(ctx); s != nil {
		return s.Searcher
	}
	return nil
}

// IngestorFrom extracts the ingestion service from context.
func IngestorFrom(ctx context.Context) *ingest.Service {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingestor
	}
	return nil
}

// AdminFrom extracts the admin credentials from context.
func AdminFrom(ctx context.Context) auth.Credentials {
	if s := ServicesFrom(ctx); s != nil {
		return s.Admin
	}
	return auth.Credentials{}
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}

package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"biblio/internal/api"
	"biblio/internal/postgres"
	"biblio/internal/svcctx"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}

// pinger is the slice of the repository the readiness probe needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Liveness check
//	@Description	Returns ok while the HTTP server is accepting requests
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Readiness check
//	@Description	Returns ok once the database answers pings
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	repo := svcctx.RepoFrom(r.Context())
	p, ok := repo.(pinger)
	if repo == nil || !ok {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "degraded",
			Database: "not_initialized",
		})
		return
	}

	if err := p.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:   "degraded",
			Database: "unhealthy",
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "ok"})
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes database)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			if resp.Database != "" {
				fmt.Printf("Database: %s\n", resp.Database)
			}
			return nil
		},
	}
}

// StatusResponse reports the state of the server and its backends.
type StatusResponse struct {
	Server   string         `json:"server"`
	Database DatabaseStatus `json:"database"`
	Cache    CacheStatus    `json:"cache"`
}

// DatabaseStatus describes the Postgres backend.
type DatabaseStatus struct {
	Container string `json:"container"`
	Health    string `json:"health"`
}

// CacheStatus describes the Redis response cache.
type CacheStatus struct {
	Enabled bool   `json:"enabled"`
	Health  string `json:"health"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// PostgresManager is nil when the server uses an external database.
	PostgresManager *postgres.DockerManager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server status
//	@Description	Reports the server, database container, and cache state
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running"}

	resp.Database.Container = "external"
	if e.PostgresManager != nil {
		status, err := e.PostgresManager.Status(r.Context())
		if err != nil {
			resp.Database.Container = "unknown"
		} else {
			resp.Database.Container = string(status)
		}
	}

	resp.Database.Health = "unhealthy"
	if repo := svcctx.RepoFrom(r.Context()); repo != nil {
		if p, ok := repo.(pinger); ok && p.Ping(r.Context()) == nil {
			resp.Database.Health = "healthy"
		}
	}

	c := svcctx.CacheFrom(r.Context())
	resp.Cache.Enabled = c.Enabled()
	switch {
	case !c.Enabled():
		resp.Cache.Health = "disabled"
	case c.Ping(r.Context()) == nil:
		resp.Cache.Health = "healthy"
	default:
		resp.Cache.Health = "unhealthy"
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server and backend status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

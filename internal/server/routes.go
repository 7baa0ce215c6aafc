package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(s.authMw.Handler())
	api.GET("/stories", s.handleStories)
	api.POST("/stories", s.handleStories)

	s.router.GET("/health", s.handleHealth)

	if s.config.Observability.Metrics.Enabled {
		s.router.GET(s.config.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
}

// handleStories is the single GraphQL endpoint. Websocket upgrade
// requests go to the graphql-ws transport; everything else falls
// through to plain HTTP execution.
func (s *Server) handleStories(c *gin.Context) {
	s.wsHandler.ServeHTTP(c.Writer, c.Request)
}

// graphQLParams is the wire shape of a GraphQL request, from either the
// query string or a JSON body.
type graphQLParams struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName"`
	Variables     map[string]interface{} `json:"variables"`
}

// serveGraphQL executes a GraphQL request over plain HTTP. Browser GETs
// without a query get the GraphiQL explorer instead.
func (s *Server) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	params, err := parseGraphQLParams(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.Query == "" {
		if r.Method == http.MethodGet && wantsHTML(r) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(graphiqlHTML))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "no query provided")
		return
	}

	response := s.schema.Exec(r.Context(), params.Query, params.OperationName, params.Variables)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("failed to write graphql response", zap.Error(err))
	}
}

// parseGraphQLParams extracts the request from the query string (GET)
// or a JSON body (POST).
func parseGraphQLParams(r *http.Request) (graphQLParams, error) {
	var params graphQLParams

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		params.Query = q.Get("query")
		params.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &params.Variables); err != nil {
				return params, err
			}
		}
	default:
		if r.Body != nil {
			if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
				return params, err
			}
		}
	}

	return params, nil
}

// wantsHTML reports whether the client prefers an HTML response.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleHealth reports liveness, including database reachability.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

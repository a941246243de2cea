package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"promptd/internal/authz"
	"promptd/internal/config"
	"promptd/internal/oauth"
	"promptd/pkg/logging"
)

// serverStatus is the API representation of a configured MCP server and
// its current authorization state.
type serverStatus struct {
	Name       string        `json:"name"`
	URL        string        `json:"url"`
	Authorized bool          `json:"authorized"`
	Method     authz.Method  `json:"method"`
	Details    authz.Details `json:"details"`
}

// promptStatus is the API representation of a prompt, including the
// authorization state of every server it references.
type promptStatus struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Servers     []serverStatus `json:"servers"`
	Ready       bool           `json:"ready"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) serverStatusFor(r *http.Request, srv config.MCPServer) serverStatus {
	details := s.engine.Details(r.Context(), srv)
	return serverStatus{
		Name:       srv.Name,
		URL:        srv.URL,
		Authorized: details.Method != authz.MethodNone,
		Method:     details.Method,
		Details:    details,
	}
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg()

	prompts := make([]promptStatus, 0, len(cfg.Prompts))
	for _, prompt := range cfg.Prompts {
		status := promptStatus{
			Name:        prompt.Name,
			Description: prompt.Description,
			Servers:     make([]serverStatus, 0, len(prompt.Servers)),
			Ready:       true,
		}
		for _, name := range prompt.Servers {
			srv := cfg.ServerByName(name)
			if srv == nil {
				continue
			}
			serverState := s.serverStatusFor(r, *srv)
			if !serverState.Authorized {
				status.Ready = false
			}
			status.Servers = append(status.Servers, serverState)
		}
		prompts = append(prompts, status)
	}

	writeJSON(w, http.StatusOK, prompts)
}

func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	cfg := s.cfg()

	servers := make([]serverStatus, 0, len(cfg.MCPServers))
	for _, srv := range cfg.MCPServers {
		servers = append(servers, s.serverStatusFor(r, srv))
	}

	writeJSON(w, http.StatusOK, servers)
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("server")

	srv := s.cfg().ServerByName(name)
	if srv == nil {
		writeError(w, http.StatusNotFound, "unknown server: "+name)
		return
	}

	authorization, err := s.flow.Initiate(r.Context(), *srv)
	if err != nil {
		var alreadyAuthorized *oauth.AlreadyAuthorizedError
		if errors.As(err, &alreadyAuthorized) {
			writeError(w, http.StatusConflict, alreadyAuthorized.Error())
			return
		}
		var discoveryErr *oauth.DiscoveryError
		if errors.As(err, &discoveryErr) {
			writeError(w, http.StatusBadGateway, discoveryErr.Error())
			return
		}
		logging.Error("HTTP", err, "Failed to start authorization flow for server=%s", name)
		writeError(w, http.StatusInternalServerError, "failed to start authorization flow")
		return
	}

	writeJSON(w, http.StatusOK, authorization)
}

func (s *Server) handleDeleteToken(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("server")

	if s.cfg().ServerByName(name) == nil {
		writeError(w, http.StatusNotFound, "unknown server: "+name)
		return
	}

	s.tokens.Delete(name)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("HTTP", err, "Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// Package criblmock provides an in-process fake Cribl leader for tests.
//
// It serves both credential endpoints (Cribl.Cloud client credentials and
// self-hosted login), issues HS256 JWTs, rejects resource calls without a
// valid token, and keeps worker groups, pipelines and sources in memory.
package criblmock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Server is a fake Cribl leader. Create one with New and Close it when done.
type Server struct {
	*httptest.Server

	// ExpiresIn is reported by /oauth/token, in seconds.
	ExpiresIn int64
	// ExchangeDelay is slept inside every credential exchange.
	ExchangeDelay time.Duration

	secret    []byte
	exchanges atomic.Int32
	resources atomic.Int32

	mu        sync.Mutex
	authFail  *Failure
	override  map[string]Failure
	groups    []map[string]any
	pipelines map[string][]map[string]any
	sources   map[string][]map[string]any
	commits   int
	lastBody  map[string]any
}

// Failure is a canned error answer.
type Failure struct {
	Status      int
	ContentType string
	Body        string
}

// New starts a fake leader seeded with one Stream group ("default"),
// one Edge fleet ("default_fleet") and a couple of pipelines and sources.
func New() *Server {
	s := &Server{
		ExpiresIn: 3600,
		secret:    []byte("criblmock-signing-key"),
		override:  map[string]Failure{},
		groups: []map[string]any{
			{"id": "default", "description": "Stream group", "workerCount": 2, "configVersion": "abc123"},
			{"id": "default_fleet", "isFleet": true, "workerCount": 5},
		},
		pipelines: map[string][]map[string]any{
			"default": {
				{"id": "main", "conf": map[string]any{"functions": []any{}, "output": "default"}},
				{"id": "passthru", "conf": map[string]any{"functions": []any{}}},
			},
		},
		sources: map[string][]map[string]any{
			"default": {
				{"id": "in_syslog", "type": "syslog", "disabled": false},
				{"id": "in_http", "type": "http", "disabled": true},
			},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", s.handleClientCredentials)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("/api/v1/", s.authenticated(s.handleResource))
	s.Server = httptest.NewServer(mux)
	return s
}

// Exchanges returns how many credential exchanges were served.
func (s *Server) Exchanges() int { return int(s.exchanges.Load()) }

// ResourceCalls returns how many resource requests reached the server,
// authenticated or not.
func (s *Server) ResourceCalls() int { return int(s.resources.Load()) }

// FailAuth makes every credential exchange answer f. Pass nil to reset.
func (s *Server) FailAuth(f *Failure) {
	s.mu.Lock()
	s.authFail = f
	s.mu.Unlock()
}

// FailPath makes "METHOD /path" answer f instead of the normal handler.
func (s *Server) FailPath(method, path string, f Failure) {
	s.mu.Lock()
	s.override[method+" "+path] = f
	s.mu.Unlock()
}

// SetGroups replaces the worker group list.
func (s *Server) SetGroups(groups ...map[string]any) {
	s.mu.Lock()
	s.groups = groups
	s.mu.Unlock()
}

// LastBody returns the decoded JSON body of the last resource write.
func (s *Server) LastBody() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody
}

// IssueToken signs a token valid for ttl.
func (s *Server) IssueToken(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    "criblmock",
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) exchange(w http.ResponseWriter) bool {
	s.exchanges.Add(1)
	if s.ExchangeDelay > 0 {
		time.Sleep(s.ExchangeDelay)
	}
	s.mu.Lock()
	fail := s.authFail
	s.mu.Unlock()
	if fail != nil {
		writeFailure(w, *fail)
		return false
	}
	return true
}

func (s *Server) handleClientCredentials(w http.ResponseWriter, r *http.Request) {
	if !s.exchange(w) {
		return
	}
	var req struct {
		GrantType    string `json:"grant_type"`
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GrantType != "client_credentials" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_request"})
		return
	}
	token, err := s.IssueToken(time.Duration(s.ExpiresIn) * time.Second)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"expires_in":   s.ExpiresIn,
		"token_type":   "Bearer",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.exchange(w) {
		return
	}
	token, err := s.IssueToken(time.Hour)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": "Bearer " + token, "forcePasswordChange": false})
}

func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.resources.Add(1)
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid token"})
			return
		}
		next(w, r)
	}
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail, overridden := s.override[r.Method+" "+r.URL.Path]
	s.mu.Unlock()
	if overridden {
		writeFailure(w, fail)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/"), "/"), "/")
	switch {
	case r.Method == http.MethodGet && match(parts, "master", "groups"):
		s.mu.Lock()
		writeItems(w, s.groups)
		s.mu.Unlock()

	case r.Method == http.MethodPatch && len(parts) == 4 && match(parts[:2], "master", "groups") && parts[3] == "deploy":
		s.handleDeploy(w, r, parts[2])

	case r.Method == http.MethodPost && match(parts, "version", "commit"):
		s.handleCommit(w, r)

	case len(parts) >= 3 && parts[0] == "m":
		s.handleGroupResource(w, r, parts[1], parts[2:])

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	}
}

func (s *Server) handleGroupResource(w http.ResponseWriter, r *http.Request, group string, rest []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasGroup(group) {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": fmt.Sprintf("Group %s not found", group)})
		return
	}

	switch {
	case r.Method == http.MethodGet && match(rest, "pipelines"):
		writeItems(w, s.pipelines[group])

	case len(rest) == 2 && rest[0] == "pipelines":
		idx := indexByID(s.pipelines[group], rest[1])
		if idx < 0 {
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Item not found"})
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeItems(w, s.pipelines[group][idx:idx+1])
		case http.MethodPatch:
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid JSON"})
				return
			}
			s.lastBody = body
			s.pipelines[group][idx] = body
			writeItems(w, []map[string]any{body})
		default:
			writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "Method not allowed"})
		}

	case r.Method == http.MethodGet && match(rest, "system", "inputs"):
		writeItems(w, s.sources[group])

	case r.Method == http.MethodPost && match(rest, "system", "settings", "restart"):
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}, "count": 0})

	case r.Method == http.MethodGet && match(rest, "system", "metrics"):
		writeJSON(w, http.StatusOK, map[string]any{
			"filterExpr": r.URL.Query().Get("filterExpr"),
			"results":    []any{map[string]any{"name": "total.in_events", "value": 42}},
		})

	case r.Method == http.MethodGet && match(rest, "version", "status"):
		writeItems(w, []map[string]any{{"branch": "master", "ahead": s.commits, "behind": 0, "files": []any{}}})

	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found"})
	}
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid JSON"})
		return
	}
	s.mu.Lock()
	s.lastBody = body
	s.commits++
	n := s.commits
	s.mu.Unlock()
	writeItems(w, []map[string]any{{
		"branch":  "master",
		"commit":  fmt.Sprintf("c0ffee%02d", n),
		"summary": map[string]any{"changes": 1},
	}})
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request, group string) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid JSON"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBody = body
	for _, g := range s.groups {
		if g["id"] == group {
			g["configVersion"] = body["version"]
			writeItems(w, []map[string]any{g})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": fmt.Sprintf("Group %s not found", group)})
}

func (s *Server) hasGroup(id string) bool {
	return indexByID(s.groups, id) >= 0
}

func indexByID(items []map[string]any, id string) int {
	for i, item := range items {
		if item["id"] == id {
			return i
		}
	}
	return -1
}

func match(parts []string, want ...string) bool {
	if len(parts) != len(want) {
		return false
	}
	for i := range want {
		if parts[i] != want[i] {
			return false
		}
	}
	return true
}

func writeItems(w http.ResponseWriter, items []map[string]any) {
	if items == nil {
		items = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, f Failure) {
	ct := f.ContentType
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(f.Status)
	_, _ = w.Write([]byte(f.Body))
}

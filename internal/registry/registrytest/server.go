// Package registrytest runs an in-process fake of the registry service for
// tests. It keeps its tree state in memory and counts every call per route.
package registrytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"clearcrew/internal/registry"
)

// Routes, as counted by CallCount.
const (
	RouteLogin      = "POST /auth/login"
	RoutePublicKey  = "GET /zk/public-key"
	RouteRegister   = "POST /zk/register"
	RouteMerkleTree = "GET /zk/merkle-tree"
	RouteReport     = "POST /zk/report"
)

type failure struct {
	status  int
	message string
}

type Server struct {
	*httptest.Server

	mu         sync.Mutex
	token      string
	publicKey  string
	tree       registry.MerkleTreeResponse
	root       string
	leaves     []string
	reports    []registry.RelayRequest
	relay      registry.RelayResponse
	failures   map[string]failure
	calls      map[string]int
	requestIDs []string
}

// New starts a fake registry that accepts the bearer token "test-token" and
// is shut down when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		token:    "test-token",
		root:     "0",
		failures: make(map[string]failure),
		calls:    make(map[string]int),
		relay:    registry.RelayResponse{Message: "accepted", IpfsCID: "bafyrelay", TxHash: "0xrelay"},
	}
	r := chi.NewRouter()
	r.Post("/auth/login", s.handleLogin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/zk/public-key", s.handlePublicKey)
		r.Post("/zk/register", s.handleRegister)
		r.Get("/zk/merkle-tree", s.handleMerkleTree)
		r.Post("/zk/report", s.handleReport)
	})
	s.Server = httptest.NewServer(s.count(r))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) Token() string {
	return s.token
}

func (s *Server) SetPublicKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publicKey = key
}

// SetTree fixes the membership witness handed out by GET /zk/merkle-tree.
func (s *Server) SetTree(tree registry.MerkleTreeResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree = tree
}

// SetRoot fixes the root returned by register acknowledgements.
func (s *Server) SetRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
}

// FailWith makes route answer status with message until cleared with status 0.
func (s *Server) FailWith(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, route)
		return
	}
	s.failures[route] = failure{status: status, message: message}
}

func (s *Server) CallCount(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// TotalCalls counts every request, including unauthorized ones.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Leaves returns the registered commitments in insertion order.
func (s *Server) Leaves() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.leaves...)
}

func (s *Server) Reports() []registry.RelayRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]registry.RelayRequest(nil), s.reports...)
}

func (s *Server) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.calls[route]++
		s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
		f, failing := s.failures[route]
		s.mu.Unlock()
		if failing {
			writeJSON(w, f.status, map[string]string{"message": f.message})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ") != s.token {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registry.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email and password are required"})
		return
	}
	if req.Password != "password" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, registry.LoginResponse{
		Message: "ok",
		Token:   s.token,
		Role:    "USER",
		UserID:  "1",
		Name:    req.Email,
	})
}

func (s *Server) handlePublicKey(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	key := s.publicKey
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, registry.PublicKeyResponse{PublicKey: key})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registry.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Leaf == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "leaf is required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.leaves {
		if l == req.Leaf {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "leaf already registered"})
			return
		}
	}
	s.leaves = append(s.leaves, req.Leaf)
	writeJSON(w, http.StatusOK, registry.RegisterResponse{Message: "registered", Root: registry.Value(s.root)})
}

func (s *Server) handleMerkleTree(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	tree := s.tree
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, tree)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req registry.RelayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EncryptedContent == "" || req.ZKProof == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "encryptedContent and zkProof are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, prev := range s.reports {
		if prev.NullifierHash == req.NullifierHash {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "nullifier already used"})
			return
		}
	}
	s.reports = append(s.reports, req)
	writeJSON(w, http.StatusOK, s.relay)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

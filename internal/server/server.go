package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"jittr/internal/ratelimit"
	"jittr/internal/usertoken"
	"jittr/internal/util"
	"jittr/pkg/auth"
	"jittr/pkg/domain"
	"jittr/pkg/dto"
	"jittr/pkg/facade"
	"jittr/pkg/permission"
	"jittr/pkg/validate"
)

const maxBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	Jitters       *facade.JitterFacade
	Jittles       *facade.JittleFacade
	Research      *facade.ResearchFacade
	TokenVerifier *usertoken.Verifier
	WriteLimiter  *ratelimit.FixedWindowLimiter
}

// Server exposes the HTTP endpoints of the jittr backend.
type Server struct {
	jitters      *facade.JitterFacade
	jittles      *facade.JittleFacade
	research     *facade.ResearchFacade
	verifier     *usertoken.Verifier
	writeLimiter *ratelimit.FixedWindowLimiter
	mux          *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Jitters == nil || cfg.Jittles == nil || cfg.Research == nil {
		return nil, errors.New("server requires all three facades")
	}
	if cfg.TokenVerifier == nil {
		return nil, errors.New("server requires a token verifier")
	}
	s := &Server{
		jitters:      cfg.Jitters,
		jittles:      cfg.Jittles,
		research:     cfg.Research,
		verifier:     cfg.TokenVerifier,
		writeLimiter: cfg.WriteLimiter,
		mux:          http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("jittr", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// jitters
	s.mux.Handle("/api/jitters", s.withCaller(s.handleJitters))

	// jittles
	s.mux.Handle("/api/jittles", s.withCaller(s.handleJittles))
	s.mux.Handle("/api/jittles/", s.withCaller(s.handleJittleSub))

	// research
	s.mux.Handle("/api/researches", s.withCaller(s.handleResearches))
	s.mux.Handle("/api/researches/", s.withCaller(s.handleResearchByUsername))
	s.mux.Handle("/api/research", s.withCaller(s.handleResearchDefault))
	s.mux.Handle("/api/research/", s.withCaller(s.handleResearchByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerHandler receives the authenticated caller username. Identity
// resolution against the store stays inside the facades.
type callerHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withCaller(next callerHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "AUTH_INVALID_TOKEN")
			return
		}
		caller, err := s.verifier.VerifySubject(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "AUTH_INVALID_TOKEN")
			return
		}
		next(w, r, caller)
	})
}

func (s *Server) handleJitters(w http.ResponseWriter, r *http.Request, caller string) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJitter(w, r, caller)
	case http.MethodGet:
		jitter, err := s.jitters.FindByPrincipal(r.Context(), caller)
		if err != nil {
			writeFacadeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, jitter)
	case http.MethodPut:
		s.handleMergeJitter(w, r, caller)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateJitter(w http.ResponseWriter, r *http.Request, caller string) {
	if !s.allowWrite(w, r) {
		return
	}
	var d dto.JitterDTO
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_REQUEST")
		return
	}
	if err := hashCredential(&d); err != nil {
		slog.Error("hash credential", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", "SYSTEM_INTERNAL_ERROR")
		return
	}
	created, err := s.jitters.Create(r.Context(), caller, d)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleMergeJitter(w http.ResponseWriter, r *http.Request, caller string) {
	if !s.allowWrite(w, r) {
		return
	}
	var d dto.JitterDTO
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_REQUEST")
		return
	}
	if err := hashCredential(&d); err != nil {
		slog.Error("hash credential", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", "SYSTEM_INTERNAL_ERROR")
		return
	}
	merged, err := s.jitters.Merge(r.Context(), caller, d)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (s *Server) handleJittles(w http.ResponseWriter, r *http.Request, caller string) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJittles(w, r, caller)
	case http.MethodGet:
		jittles, err := s.jittles.FindAll(r.Context())
		if err != nil {
			writeFacadeError(w, err)
			return
		}
		writeList(w, jittles)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateJittles(w http.ResponseWriter, r *http.Request, caller string) {
	if !s.allowWrite(w, r) {
		return
	}
	var batch []*dto.JittleDTO
	if err := decodeJSON(w, r, &batch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_REQUEST")
		return
	}
	if err := s.jittles.CreateBatch(r.Context(), caller, batch); err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status": "created",
		"count":  len(batch),
	})
}

// /api/jittles/count, /api/jittles/pull, /api/jittles/recent or
// /api/jittles/{id}
func (s *Server) handleJittleSub(w http.ResponseWriter, r *http.Request, caller string) {
	path := strings.TrimPrefix(r.URL.Path, "/api/jittles/")
	switch path {
	case "count":
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		count, err := s.jittles.Count(r.Context())
		if err != nil {
			writeFacadeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"count": count})
	case "pull":
		s.handlePullJittles(w, r, caller)
	case "recent":
		s.handleRecentJittles(w, r)
	default:
		id, err := strconv.ParseInt(path, 10, 64)
		if err != nil {
			notFound(w, "not found")
			return
		}
		s.handleJittleByID(w, r, caller, id)
	}
}

// Pull removes what it returns, so it counts as a write for rate
// limiting even though the route is a GET.
func (s *Server) handlePullJittles(w http.ResponseWriter, r *http.Request, caller string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if !s.allowWrite(w, r) {
		return
	}
	var queue *domain.TargetQueue
	if raw := strings.TrimSpace(r.URL.Query().Get("queue")); raw != "" {
		q := domain.TargetQueue(raw)
		if !domain.ValidQueue(q) {
			writeError(w, http.StatusBadRequest, "invalid queue", "INVALID_REQUEST")
			return
		}
		queue = &q
	}
	pulled, err := s.jittles.Pull(r.Context(), caller, queue)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeList(w, pulled)
}

func (s *Server) handleRecentJittles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	count := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("count")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid count", "INVALID_REQUEST")
			return
		}
		count = n
	}
	recent, err := s.jittles.FindRecent(r.Context(), count)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeList(w, recent)
}

func (s *Server) handleJittleByID(w http.ResponseWriter, r *http.Request, caller string, id int64) {
	switch r.Method {
	case http.MethodGet:
		jittle, err := s.jittles.FindOne(r.Context(), id)
		if err != nil {
			writeFacadeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, jittle)
	case http.MethodDelete:
		if !s.allowWrite(w, r) {
			return
		}
		jitter, err := s.jittles.ResolveIdentity(r.Context(), caller)
		if err != nil {
			writeFacadeError(w, err)
			return
		}
		if err := s.jittles.RemoveOwned(r.Context(), permission.IdentityOf(jitter), id); err != nil {
			writeFacadeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleResearches(w http.ResponseWriter, r *http.Request, caller string) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateResearch(w, r, caller)
	case http.MethodGet:
		found, err := s.research.FindByUsernameDefault(r.Context())
		if err != nil {
			writeFacadeError(w, err)
			return
		}
		writeList(w, found)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateResearch(w http.ResponseWriter, r *http.Request, caller string) {
	if !s.allowWrite(w, r) {
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_REQUEST")
		return
	}
	d, err := dto.UnmarshalResearch(body)
	if err != nil {
		var stateErr *domain.UnsupportedStateError
		if errors.As(err, &stateErr) {
			writeFacadeError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_REQUEST")
		return
	}
	created, err := s.research.Create(r.Context(), caller, d)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// /api/researches/{username}
func (s *Server) handleResearchByUsername(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	username := strings.TrimPrefix(r.URL.Path, "/api/researches/")
	if username == "" || strings.Contains(username, "/") {
		notFound(w, "not found")
		return
	}
	found, err := s.research.FindByUsername(r.Context(), username)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeList(w, found)
}

func (s *Server) handleResearchDefault(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	found, err := s.research.FindOneDefault(r.Context())
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// /api/research/{id}
func (s *Server) handleResearchByID(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/research/")
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil {
		notFound(w, "not found")
		return
	}
	found, err := s.research.FindOne(r.Context(), id)
	if err != nil {
		writeFacadeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (s *Server) allowWrite(w http.ResponseWriter, r *http.Request) bool {
	if s.writeLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, nil)
	if s.writeLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many requests", "RATE_LIMITED")
	return false
}

// hashCredential replaces an incoming plain credential with its bcrypt
// hash before the representation enters the facade. Blank passwords pass
// through so the required-field check can report them.
func hashCredential(d *dto.JitterDTO) error {
	if strings.TrimSpace(d.Password) == "" {
		return nil
	}
	hashed, err := auth.HashPassword(d.Password)
	if err != nil {
		return err
	}
	d.Password = hashed
	return nil
}

func writeFacadeError(w http.ResponseWriter, err error) {
	var identityErr *facade.IdentityNotFoundError
	var notFoundErr *facade.NotFoundError
	var validationErr *facade.ValidationError
	var stateErr *domain.UnsupportedStateError
	var opErr *permission.UnsupportedOperationError
	switch {
	case errors.As(err, &identityErr):
		writeError(w, http.StatusNotFound, identityErr.Error(), "IDENTITY_NOT_FOUND")
	case errors.As(err, &notFoundErr):
		writeError(w, http.StatusNotFound, notFoundErr.Error(), "NOT_FOUND")
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:     validationErr.Error(),
			Code:      "VALIDATION_FAILED",
			RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
			Fields:    validationErr.Fields,
		})
	case errors.Is(err, facade.ErrDuplicateKey):
		writeError(w, http.StatusBadRequest, err.Error(), "DUPLICATE_KEY")
	case errors.Is(err, facade.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "FORBIDDEN")
	case errors.As(err, &stateErr), errors.As(err, &opErr):
		slog.Error("unsupported combination", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", "SYSTEM_INTERNAL_ERROR")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error", "SYSTEM_INTERNAL_ERROR")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed", "SYSTEM_METHOD_NOT_ALLOWED")
}

func notFound(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusNotFound, msg, "SYSTEM_NOT_FOUND")
}

func writeList[T any](w http.ResponseWriter, items []T) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string                `json:"error"`
	Code      string                `json:"code"`
	RequestID string                `json:"requestId,omitempty"`
	Fields    []validate.FieldError `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

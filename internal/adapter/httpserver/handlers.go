package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/haziqlabs/haziq-ai/internal/config"
	"github.com/haziqlabs/haziq-ai/internal/domain"
	"github.com/haziqlabs/haziq-ai/internal/usecase"
)

var errUnauthorizedSession = fmt.Errorf("op=http.auth: %w", domain.ErrUnauthorized)

// Server aggregates handler dependencies.
type Server struct {
	Cfg             config.Config
	Chat            usecase.ChatService
	SessionHistory  usecase.SessionService
	Auth            usecase.AuthService
	AppConfig       domain.AppConfigRepository
	StudentSessions *SessionManager
	DBCheck         func(ctx context.Context) error
	RedisCheck      func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, chat usecase.ChatService, history usecase.SessionService, auth usecase.AuthService, appConfig domain.AppConfigRepository, dbCheck, redisCheck func(context.Context) error) *Server {
	return &Server{
		Cfg:             cfg,
		Chat:            chat,
		SessionHistory:  history,
		Auth:            auth,
		AppConfig:       appConfig,
		StudentSessions: NewSessionManager(cfg.SessionSecret, "session", !cfg.IsDev()),
		DBCheck:         dbCheck,
		RedisCheck:      redisCheck,
	}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON decodes a capped request body and validates struct tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return fmt.Errorf("%w: validation failed (%v)", domain.ErrInvalidArgument, verrs)
	}
	return nil
}

// acceptsJSON rejects requests that explicitly refuse JSON responses.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
			Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
		}})
		return false
	}
	return true
}

// RegisterHandler creates an unverified student account.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			NIM      string `json:"nim" validate:"required,max=32"`
			Name     string `json:"name" validate:"required,max=100"`
			FullName string `json:"full_name" validate:"max=200"`
			Prodi    string `json:"prodi" validate:"max=100"`
			Username string `json:"username" validate:"required,max=64"`
			Password string `json:"password" validate:"required,min=8,max=128"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		id, err := s.Auth.Register(r.Context(), domain.Student{
			NIM:      req.NIM,
			Name:     req.Name,
			FullName: req.FullName,
			Prodi:    req.Prodi,
			Username: req.Username,
			Position: "mahasiswa",
		}, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": id, "is_verified": false})
	}
}

// LoginHandler authenticates a student and sets the session cookie.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			Login    string `json:"login" validate:"required,max=64"`
			Password string `json:"password" validate:"required,max=128"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		student, err := s.Auth.Login(r.Context(), req.Login, req.Password)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		token, err := s.StudentSessions.CreateSession(student.ID)
		if err != nil {
			writeError(w, r, fmt.Errorf("op=http.login: %w", err), nil)
			return
		}
		s.StudentSessions.SetSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       student.ID,
			"nim":      student.NIM,
			"name":     student.Name,
			"username": student.Username,
			"prodi":    student.Prodi,
		})
	}
}

// LogoutHandler clears the session cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.StudentSessions.ClearSessionCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ChatHandler runs one chat turn. An omitted session_id starts a new
// conversation; the response always carries the session id to continue it.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		var req struct {
			SessionID string `json:"session_id" validate:"omitempty,uuid4"`
			Message   string `json:"message" validate:"required"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		res, err := s.Chat.Send(r.Context(), SubjectFrom(r), req.SessionID, req.Message)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"session_id": res.SessionID,
			"reply":      res.Reply,
			"provider":   string(res.Provider),
			"model":      res.Model,
			"failed":     res.Failed,
		})
	}
}

// SessionsListHandler lists the student's conversations without turns.
func (s *Server) SessionsListHandler() http.HandlerFunc {
	type item struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := s.SessionHistory.List(r.Context(), SubjectFrom(r))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		items := make([]item, 0, len(sessions))
		for _, sess := range sessions {
			items = append(items, item{ID: sess.ID, Title: sess.Title, CreatedAt: sess.CreatedAt, UpdatedAt: sess.UpdatedAt})
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": items})
	}
}

// SessionGetHandler returns one full conversation.
func (s *Server) SessionGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		sess, err := s.SessionHistory.Get(r.Context(), SubjectFrom(r), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         sess.ID,
			"title":      sess.Title,
			"turns":      sess.Turns,
			"created_at": sess.CreatedAt,
			"updated_at": sess.UpdatedAt,
		})
	}
}

// SessionDeleteHandler removes one conversation.
func (s *Server) SessionDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		if err := s.SessionHistory.Delete(r.Context(), SubjectFrom(r), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// AppInfoHandler exposes the public parts of the admin-managed config:
// the app description and download link. API keys never leave the server.
func (s *Server) AppInfoHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := s.AppConfig.Get(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"description":   c.Description,
			"download_link": c.DownloadLink,
		})
	}
}

// HealthzHandler is a trivial liveness probe.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ReadyzHandler probes the database and, when configured, Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 2)
		if s.DBCheck != nil {
			if err := s.DBCheck(ctx); err != nil {
				checks = append(checks, check{Name: "db", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "db", OK: true})
			}
		}
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}

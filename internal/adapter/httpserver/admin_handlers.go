package httpserver

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haziqlabs/haziq-ai/internal/domain"
)

// AdminServer serves the operator API: student verification, account removal,
// and the app_config row (key pool, app description, download link). It is
// mounted only when admin credentials are configured.
type AdminServer struct {
	srv      *Server
	sessions *SessionManager
}

func NewAdminServer(s *Server) *AdminServer {
	return &AdminServer{
		srv:      s,
		sessions: NewSessionManager(s.Cfg.AdminSessionSecret, "admin_session", !s.Cfg.IsDev()),
	}
}

// MountAdmin attaches the admin routes when admin auth is configured.
func MountAdmin(r chi.Router, s *Server) {
	if !s.Cfg.AdminEnabled() {
		return
	}
	a := NewAdminServer(s)
	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", a.LoginHandler())
		r.Post("/logout", a.LogoutHandler())
		r.Group(func(r chi.Router) {
			r.Use(a.sessions.RequireAuth)
			r.Get("/students", a.StudentsListHandler())
			r.Post("/students/{id}/verify", a.StudentVerifyHandler())
			r.Delete("/students/{id}", a.StudentDeleteHandler())
			r.Get("/config", a.ConfigGetHandler())
			r.Put("/config", a.ConfigPutHandler())
		})
	})
}

// LoginHandler checks the static admin credentials in constant time.
func (a *AdminServer) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username" validate:"required"`
			Password string `json:"password" validate:"required"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(a.srv.Cfg.AdminUsername)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(req.Password), []byte(a.srv.Cfg.AdminPassword)) == 1
		if !userOK || !passOK {
			writeError(w, r, fmt.Errorf("op=admin.login: %w", domain.ErrUnauthorized), nil)
			return
		}
		token, err := a.sessions.CreateSession("admin")
		if err != nil {
			writeError(w, r, fmt.Errorf("op=admin.login: %w", err), nil)
			return
		}
		a.sessions.SetSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (a *AdminServer) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		a.sessions.ClearSessionCookie(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// StudentsListHandler returns every registered account, verified or not.
// Password hashes are never serialized.
func (a *AdminServer) StudentsListHandler() http.HandlerFunc {
	type item struct {
		ID         string `json:"id"`
		NIM        string `json:"nim"`
		Name       string `json:"name"`
		FullName   string `json:"full_name"`
		Prodi      string `json:"prodi"`
		Username   string `json:"username"`
		Position   string `json:"position"`
		IsVerified bool   `json:"is_verified"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := a.srv.Auth.ListStudents(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		items := make([]item, 0, len(students))
		for _, st := range students {
			items = append(items, item{
				ID: st.ID, NIM: st.NIM, Name: st.Name, FullName: st.FullName,
				Prodi: st.Prodi, Username: st.Username, Position: st.Position,
				IsVerified: st.IsVerified,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"students": items})
	}
}

// StudentVerifyHandler flips the verification flag. The body selects the
// direction so one route serves verify and unverify.
func (a *AdminServer) StudentVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		var req struct {
			Verified *bool `json:"verified" validate:"required"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := a.srv.Auth.SetVerified(r.Context(), id, *req.Verified); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "is_verified": *req.Verified})
	}
}

func (a *AdminServer) StudentDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.srv.Auth.DeleteStudent(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ConfigGetHandler returns the full app_config row including the stored key
// pool; this route sits behind admin auth.
func (a *AdminServer) ConfigGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := a.srv.AppConfig.Get(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"description":   c.Description,
			"download_link": c.DownloadLink,
			"api_keys":      c.APIKeys,
			"updated_at":    c.UpdatedAt,
		})
	}
}

// ConfigPutHandler replaces the app_config row. Stored keys take effect on
// the next dispatch; no restart is needed.
func (a *AdminServer) ConfigPutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Description  string `json:"description" validate:"max=4000"`
			DownloadLink string `json:"download_link" validate:"omitempty,url,max=1000"`
			APIKeys      string `json:"api_keys" validate:"max=8000"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := a.srv.AppConfig.Put(r.Context(), domain.AppConfig{
			Description:  req.Description,
			DownloadLink: req.DownloadLink,
			APIKeys:      req.APIKeys,
		}); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

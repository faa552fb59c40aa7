// Package fakeapp is an in-process stand-in for the notes practice API.
//
// It reproduces the routes, the response envelope and the validation
// messages of the real application closely enough to run the API catalog
// offline. It is not a reimplementation of the web UI.
package fakeapp

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kuitang/notes-e2e/internal/errs"
	"github.com/kuitang/notes-e2e/internal/notesapi"
	"github.com/kuitang/notes-e2e/internal/obs"
	"github.com/kuitang/notes-e2e/internal/ratelimit"
)

// BasePath is where the API is mounted, matching the public deployment.
const BasePath = "/notes/api"

// Options configures a Server.
type Options struct {
	Clock     Clock
	Hasher    PasswordHasher
	Secret    []byte
	TokenTTL  time.Duration
	RateLimit *ratelimit.Config
}

// Server serves the fake API.
type Server struct {
	store   *Store
	hasher  PasswordHasher
	tokens  tokenIssuer
	limiter *ratelimit.RateLimiter
	router  chi.Router
}

// New builds a server with its own in-memory database.
func New(opts Options) (*Server, error) {
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.Hasher == nil {
		opts.Hasher = BcryptHasher{}
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte(newObjectID() + newObjectID())
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	rl := ratelimit.DefaultConfig
	if opts.RateLimit != nil {
		rl = *opts.RateLimit
	}

	store, err := OpenStore(opts.Clock)
	if err != nil {
		return nil, err
	}
	s := &Server{
		store:   store,
		hasher:  opts.Hasher,
		tokens:  tokenIssuer{secret: opts.Secret, ttl: opts.TokenTTL, clock: opts.Clock},
		limiter: ratelimit.NewRateLimiter(rl),
	}
	s.router = s.routes()
	return s, nil
}

// Close stops background work and releases the database.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.store.Close()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(obs.RequestContextMiddleware)
	r.Use(func(next http.Handler) http.Handler { return obs.AccessLogMiddleware("fakeapp", next) })
	r.Use(recoverJSON)
	r.Use(ratelimit.Middleware(s.limiter, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusTooManyRequests, notesapi.MsgTooManyRequests, nil)
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, "Not Found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, "Not Found", nil)
	})

	r.Route(BasePath, func(r chi.Router) {
		r.Use(contentFormat)
		r.Get("/health-check", s.healthCheck)

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", s.register)
			r.Post("/login", s.login)
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)
				r.Get("/profile", s.profile)
				r.Patch("/profile", s.updateProfile)
				r.Post("/change-password", s.changePassword)
				r.Delete("/logout", s.logout)
				r.Delete("/delete-account", s.deleteAccount)
			})
		})

		r.Route("/notes", func(r chi.Router) {
			r.Use(s.authenticate)
			r.Get("/", s.listNotes)
			r.Post("/", s.createNote)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(noteID)
				r.Get("/", s.getNote)
				r.Put("/", s.updateNote)
				r.Patch("/", s.patchNote)
				r.Delete("/", s.deleteNote)
			})
		})
	})
	return r
}

type envelope struct {
	Success bool   `json:"success"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeEnvelope(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Success: status >= 200 && status < 300,
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// writeError maps a coded error onto the envelope. Untyped errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	msg := errs.MessageOf(err)
	if code == errs.Internal || status >= 500 {
		obs.From(r.Context()).Error("fakeapp_internal_error", "path", r.URL.Path, "error", err)
		msg = notesapi.MsgInternalServerError
	}
	if code == errs.Unauthenticated {
		msg = notesapi.MsgUnauthorized
	}
	writeEnvelope(w, status, msg, nil)
}

func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				obs.From(r.Context()).Error("fakeapp_panic", "path", r.URL.Path, "panic", rec)
				writeEnvelope(w, http.StatusInternalServerError, notesapi.MsgInternalServerError, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// contentFormat rejects any X-Content-Format other than application/json.
func contentFormat(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if v, ok := r.Header[http.CanonicalHeaderKey(notesapi.HeaderContentFormat)]; ok {
			if len(v) == 0 || strings.TrimSpace(v[0]) != "application/json" {
				writeEnvelope(w, http.StatusBadRequest, notesapi.MsgInvalidContentFmt, nil)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

type userIDKey struct{}
type sessionKey struct{}

func userIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

func sessionFrom(ctx context.Context) string {
	jti, _ := ctx.Value(sessionKey{}).(string)
	return jti
}

// authenticate resolves X-Auth-Token to a live session.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimSpace(r.Header.Get(notesapi.HeaderAuthToken))
		if token == "" {
			writeEnvelope(w, http.StatusUnauthorized, notesapi.MsgUnauthorized, nil)
			return
		}
		sub, jti, err := s.tokens.parse(token)
		if err != nil {
			writeEnvelope(w, http.StatusUnauthorized, notesapi.MsgUnauthorized, nil)
			return
		}
		owner, err := s.store.SessionUser(r.Context(), jti)
		if err != nil || owner != sub {
			writeEnvelope(w, http.StatusUnauthorized, notesapi.MsgUnauthorized, nil)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey{}, sub)
		ctx = context.WithValue(ctx, sessionKey{}, jti)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func noteID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !validNoteID(chi.URLParam(r, "id")) {
			writeEnvelope(w, http.StatusBadRequest, notesapi.MsgInvalidNoteID, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"timed-quiz-service/internal/app"
)

// RouterDeps wires the HTTP surface.
type RouterDeps struct {
	Quiz           *app.QuizService
	Accounts       *app.AccountService
	Tokens         TokenParser
	Logger         *slog.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter builds the REST API and the websocket endpoint.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	origins := deps.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	h := &Handler{quiz: deps.Quiz, accounts: deps.Accounts, logger: logger}
	ws := NewWSHandler(deps.Quiz, logger)
	authn := authenticator{tokens: deps.Tokens}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))
		r.Use(authn.optional)

		r.Post("/users", h.Register)
		r.Get("/users/nickname", h.NicknameAvailable)
		r.Post("/login", h.Login)
		r.Get("/categories", h.Categories)
		r.Get("/rankings", h.Rankings)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Get("/me", h.Me)
			r.Get("/me/accuracy", h.Accuracy)
			r.Get("/me/progress", h.Progress)
			r.Get("/me/results/{category}", h.LastResult)
			r.Post("/review", h.StartReview)
		})

		r.Post("/sessions", h.StartQuiz)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.Snapshot)
			r.Delete("/", h.Leave)
			r.Post("/answer", h.Answer)
			r.Post("/next", h.Next)
			r.Get("/result", h.Result)
		})
	})

	// websockets outlive the request timeout
	r.With(authn.optional).Get("/ws/sessions/{sessionID}", ws.ServeWS)
	return r
}

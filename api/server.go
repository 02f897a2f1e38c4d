// Package api exposes the forum over HTTP: a chi router with CORS,
// bearer-token auth on mutating routes, request validation, and a
// single error boundary translating domain errors to status codes.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/jacentio/arbor/auth"
	"github.com/jacentio/arbor/forum"
)

// Server wires the domain service to the HTTP surface.
type Server struct {
	service  *forum.Service
	tokens   *auth.Tokens
	validate *validator.Validate
	logger   *slog.Logger
}

// NewServer builds a Server.
func NewServer(service *forum.Service, tokens *auth.Tokens, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		service:  service,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Router returns the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/categories", s.getCategories)
	r.Get("/category/{categoryId}", s.getCategory)
	r.Get("/forums", s.getForums)
	r.Get("/forum/{forumId}", s.getForum)
	r.Get("/topic/{topicId}", s.getTopic)
	r.Get("/topicPosts/{topicId}", s.getTopicPosts)
	r.Get("/posts", s.getPosts)
	r.Get("/post/{postId}", s.getPost)
	r.Get("/users", s.getUsers)
	r.Get("/user/{userId}", s.getUser)

	r.Put("/auth/signup", s.signup)
	r.Post("/auth/login", s.login)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/category", s.createCategory)
		r.Put("/category/{categoryId}", s.updateCategory)
		r.Delete("/category/{categoryId}", s.deleteCategory)

		r.Post("/forum", s.createForum)
		r.Put("/forum/{forumId}", s.updateForum)
		r.Delete("/forum/{forumId}", s.deleteForum)

		r.Post("/topic", s.createTopic)
		r.Put("/topic/{topicId}", s.updateTopic)
		r.Delete("/topic/{topicId}", s.deleteTopic)

		r.Post("/post", s.createPost)
		r.Put("/post/{postId}", s.updatePost)
		r.Delete("/post/{postId}", s.deletePost)

		r.Put("/user/{userId}", s.updateUser)
		r.Delete("/user/{userId}", s.deleteUser)
	})

	return r
}

// Package api implements the development job board backend over Fuego.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blockedby/kandra/internal/filter"
	"github.com/blockedby/kandra/internal/logger"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"
)

// Server represents the Fuego API server.
type Server struct {
	fuego *fuego.Server
	deps  *Dependencies
	port  int
	log   *logger.Logger
}

// Dependencies contains all service dependencies.
type Dependencies struct {
	Users        UsersRepository
	Jobs         JobsRepository
	Applications ApplicationsRepository
	Bookmarks    BookmarksRepository
	Stats        StatsRepository
	Files        FileStore
	Domain       filter.Domain
	Log          *logger.Logger
}

// Config holds API server configuration.
type Config struct {
	Port        int
	Title       string
	Description string
	Version     string
}

// NewServer creates a new Fuego API server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				JSONFilePath:     "openapi.json",
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg)
				},
			}),
		),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Logger)
	fuego.Use(s, middleware.Recoverer)

	if deps.Domain == (filter.Domain{}) {
		deps.Domain = filter.DefaultDomain
	}

	srv := &Server{
		fuego: s,
		deps:  deps,
		port:  cfg.Port,
		log:   logger.OrGet(deps.Log).Component("api"),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	fuego.Get(s.fuego, "/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API"),
		option.Tags("System"),
	)

	api := fuego.Group(s.fuego, "/api")

	// Auth API
	fuego.Post(api, "/auth/login", s.login,
		option.Summary("Login"),
		option.Description("Exchanges email and password for a bearer token"),
		option.Tags("Auth"),
	)

	fuego.Post(api, "/auth/register", s.register,
		option.Summary("Register"),
		option.Description("Creates a candidate or company account and returns a bearer token"),
		option.Tags("Auth"),
	)

	fuego.Get(api, "/auth/me", s.me,
		option.Summary("Current Account"),
		option.Description("Returns the account behind the bearer token"),
		option.Tags("Auth"),
	)

	// Offers API
	fuego.Get(api, "/opportunites", s.listJobs,
		option.Summary("List Offers"),
		option.Description("Returns a page of published offers matching the filter"),
		option.Tags("Offers"),
		option.Query("offset", "Index of the first offer (default: 0)"),
		option.Query("limit", "Page size (default: 12, max: 100)"),
		option.Query(filter.ParamQuery, "Free-text search"),
		option.Query(filter.ParamCategory, "Category, or any"),
		option.Query(filter.ParamTypes, "Comma-separated offer kinds"),
		option.Query(filter.ParamLevels, "Comma-separated experience levels"),
		option.Query(filter.ParamSalaryOptions, "Comma-separated salary buckets: under_100, 100_1k, hourly"),
		option.Query(filter.ParamSalaryMin, "Salary range lower bound, in thousands"),
		option.Query(filter.ParamSalaryMax, "Salary range upper bound, in thousands"),
		option.Query(filter.ParamProposals, "Proposal bucket: lt_5, 5_10, 10_20, 20_50, 50_plus"),
	)

	fuego.Post(api, "/opportunites", s.createJob,
		option.Summary("Create Offer"),
		option.Description("Creates an offer owned by the signed-in company"),
		option.Tags("Offers"),
	)

	fuego.Get(api, "/opportunites/{id}", s.getJob,
		option.Summary("Get Offer"),
		option.Description("Returns a single offer by ID"),
		option.Tags("Offers"),
	)

	fuego.Put(api, "/opportunites/{id}/status", s.updateJobStatus,
		option.Summary("Update Offer Status"),
		option.Description("Moves an offer between draft, published and expired"),
		option.Tags("Offers"),
	)

	fuego.Get(api, "/opportunites/{id}/applications", s.listJobApplications,
		option.Summary("List Applicants"),
		option.Description("Returns the applications received for an offer"),
		option.Tags("Offers"),
	)

	fuego.Get(api, "/company/opportunites", s.listCompanyJobs,
		option.Summary("List Company Offers"),
		option.Description("Returns every offer of the signed-in company, drafts included"),
		option.Tags("Company"),
	)

	fuego.Get(api, "/company/stats", s.companyStats,
		option.Summary("Company Statistics"),
		option.Description("Returns offer and application counts for the signed-in company"),
		option.Tags("Company"),
	)

	// Applications API
	fuego.Post(api, "/applications", s.createApplication,
		option.Summary("Submit Application"),
		option.Description("Multipart form: job_id, cover_letter, resume (file), optional motivation, portfolio_url, linkedin_url, portfolio (file)"),
		option.Tags("Applications"),
	)

	fuego.Get(api, "/applications/user", s.listMyApplications,
		option.Summary("My Applications"),
		option.Description("Returns the signed-in candidate's applications, newest first"),
		option.Tags("Applications"),
	)

	fuego.Get(api, "/applications/{id}", s.getApplication,
		option.Summary("Get Application"),
		option.Description("Returns a single application with every field"),
		option.Tags("Applications"),
	)

	fuego.Put(api, "/applications/{id}/status", s.updateApplicationStatus,
		option.Summary("Update Application Status"),
		option.Description("Sets pending, in_review, accepted or rejected; offer owner only"),
		option.Tags("Applications"),
	)

	// Bookmarks API
	fuego.Get(api, "/candidatures/bookmark", s.listBookmarks,
		option.Summary("List Bookmarks"),
		option.Tags("Bookmarks"),
	)

	fuego.Post(api, "/candidatures/bookmark", s.addBookmark,
		option.Summary("Bookmark Offer"),
		option.Tags("Bookmarks"),
	)

	fuego.Delete(api, "/candidatures/bookmark/{id}", s.removeBookmark,
		option.Summary("Remove Bookmark"),
		option.Tags("Bookmarks"),
	)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("api listening")
	return s.fuego.Run()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.fuego.Server.Shutdown(ctx)
}

// Mux returns the underlying ServeMux for mounting additional routes.
func (s *Server) Mux() *http.ServeMux {
	return s.fuego.Mux
}

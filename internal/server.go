package internal

import (
	"context"
	"database/sql"
	"embed"
	"log"
	"net/http"
	"os"
	"time"

	"sitekeeper-api/internal/auth"
	"sitekeeper-api/internal/config"
	"sitekeeper-api/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed openapi
var openapiFS embed.FS

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Config     *config.Config
}

func NewServer(dsn string, cfg *config.Config) *Server {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("Database ping failed:", err)
	}

	// Also create a pgxpool for the importer
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatal("Failed to create pgxpool:", err)
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		log.Fatal("JWT configuration validation failed:", err)
	}

	metrics := NewMetrics()

	s := &Server{
		DB:         db,
		Pool:       pool,
		Router:     chi.NewRouter(),
		JWTManager: jwtManager,
		Metrics:    metrics,
		Config:     cfg,
	}

	s.mountRoutes(os.Getenv("ENABLE_METRICS") == "true")

	return s
}

// mountRoutes wires the full route tree. The metrics middleware has to go
// on the mux before the first route is registered; chi rejects Use calls
// after that.
func (s *Server) mountRoutes(metricsEnabled bool) {
	if metricsEnabled {
		s.Router.Use(s.Metrics.Middleware())
	}

	// Mount public routes FIRST (no auth middleware)
	s.Router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// The public token gate: QR codes resolve here. Anything printed on a
	// label must keep working without credentials.
	s.Router.Get("/a/{token}", s.resolveAssetToken)
	s.Router.Get("/asset/{id}/qr.png", s.assetQRPNG)
	s.Router.Get("/asset/{id}/label.pdf", s.assetLabelPDF)

	// Public auth routes (no JWT required)
	s.Router.Post("/auth/login", s.loginUser)
	s.mountDocs(s.Router)

	if metricsEnabled {
		s.Router.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Create a protected route group with middleware
	s.Router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))
		s.mountProtectedRoutes(r)
	})
}

// Close properly shuts down the server and cleans up resources
func (s *Server) Close(ctx context.Context) error {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// mountDocs serves the OpenAPI spec and Swagger UI
func (s *Server) mountDocs(mux *chi.Mux) {
	if os.Getenv("ENABLE_SWAGGER") != "true" {
		return
	}

	// Serve the raw YAML
	mux.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		data, err := openapiFS.ReadFile("openapi/openapi.yaml")
		if err != nil {
			http.Error(w, "Failed to read OpenAPI spec", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/x-yaml")
		if _, err := w.Write(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	// Serve Swagger UI page
	mux.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(200)
		w.Write([]byte(`<!doctype html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Sitekeeper API - Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css">
    <style>
        body { margin: 0; background: #f7f7f7; }
        .swagger-ui .topbar { background: #1f2937; border-bottom: 3px solid #3b82f6; }
        .swagger-ui .topbar .download-url-wrapper { display: none; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: '/openapi.yaml',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIBundle.presets.standalone
                ],
                layout: "StandaloneLayout",
                tryItOutEnabled: true
            });
        };
    </script>
</body>
</html>`))
	})
}

// mountProtectedRoutes mounts all protected routes that require authentication
func (s *Server) mountProtectedRoutes(r chi.Router) {
	// Sites - require admin role for write operations
	r.Get("/sites", s.listSites)
	r.Get("/sites/{id}", s.getSite)
	r.Get("/sites/{id}/stats", s.getSiteStats)
	r.Post("/sites", auth.MustRole("admin")(http.HandlerFunc(s.createSite)).(http.HandlerFunc))
	r.Put("/sites/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateSite)).(http.HandlerFunc))
	r.Delete("/sites/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteSite)).(http.HandlerFunc))

	// Assets - token issued on create, delete is a soft delete
	r.Get("/assets", s.listAssets)
	r.Get("/assets/{id}", s.getAsset)
	r.Post("/assets", auth.MustRole("admin")(http.HandlerFunc(s.createAsset)).(http.HandlerFunc))
	r.Put("/assets/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateAsset)).(http.HandlerFunc))
	r.Delete("/assets/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteAsset)).(http.HandlerFunc))

	// Interventions - caretakers execute, admins manage
	r.Get("/interventions", s.listInterventions)
	r.Get("/interventions/{id}", s.getIntervention)
	r.Get("/interventions/{id}/report.pdf", s.interventionReportPDF)
	r.Post("/interventions", auth.MustRole("admin")(http.HandlerFunc(s.createIntervention)).(http.HandlerFunc))
	r.Put("/interventions/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateIntervention)).(http.HandlerFunc))
	r.Delete("/interventions/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteIntervention)).(http.HandlerFunc))
	r.Post("/interventions/{id}/items", auth.MustRole("admin")(http.HandlerFunc(s.addChecklistItem)).(http.HandlerFunc))
	r.Post("/interventions/{id}/checklist-from-template", auth.MustRole("admin")(http.HandlerFunc(s.applyTemplate)).(http.HandlerFunc))
	r.Post("/interventions/{id}/complete", auth.MustRole("admin", "caretaker")(http.HandlerFunc(s.completeIntervention)).(http.HandlerFunc))
	r.Post("/interventions/{id}/skip", auth.MustRole("admin", "caretaker")(http.HandlerFunc(s.skipInterventionHandler)).(http.HandlerFunc))

	// Checklist templates
	r.Get("/templates", s.listTemplates)
	r.Get("/templates/{id}", s.getTemplate)
	r.Post("/templates", auth.MustRole("admin")(http.HandlerFunc(s.createTemplate)).(http.HandlerFunc))
	r.Put("/templates/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateTemplate)).(http.HandlerFunc))
	r.Delete("/templates/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteTemplate)).(http.HandlerFunc))

	// Maintenance plans
	r.Get("/plans", s.listPlans)
	r.Get("/plans/{id}", s.getPlan)
	r.Post("/plans", auth.MustRole("admin")(http.HandlerFunc(s.createPlan)).(http.HandlerFunc))
	r.Put("/plans/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updatePlan)).(http.HandlerFunc))
	r.Delete("/plans/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deletePlan)).(http.HandlerFunc))
	r.Post("/plans/{id}/materialize", auth.MustRole("admin", "caretaker")(http.HandlerFunc(s.materializePlan)).(http.HandlerFunc))

	// Dashboard counters
	r.Get("/dashboard", s.getDashboard)

	// Photo uploads for checklist answers
	uploads := handlers.NewUploadsHandler(s.DB, s.Config.MediaDir)
	r.Post("/uploads", auth.MustRole("admin", "caretaker")(http.HandlerFunc(uploads.UploadPhoto)).(http.HandlerFunc))
	r.Get("/uploads/{handle}", uploads.GetPhoto)

	// Excel import - bulk asset creation
	importsHandler := handlers.NewImportsHandler(s.Pool)
	r.Post("/imports/excel", auth.MustRole("admin")(http.HandlerFunc(importsHandler.UploadExcel)).(http.HandlerFunc))

	// User management - admin only
	r.Post("/users", auth.MustRole("admin")(http.HandlerFunc(s.createUser)).(http.HandlerFunc))
	r.Get("/users", auth.MustRole("admin")(http.HandlerFunc(s.listUsers)).(http.HandlerFunc))
	r.Get("/users/{id}", auth.MustRole("admin")(http.HandlerFunc(s.getUser)).(http.HandlerFunc))
	r.Put("/users/{id}", auth.MustRole("admin")(http.HandlerFunc(s.updateUser)).(http.HandlerFunc))
	r.Delete("/users/{id}", auth.MustRole("admin")(http.HandlerFunc(s.deleteUser)).(http.HandlerFunc))

	// Self-service routes
	r.Get("/auth/profile", s.getUserProfile)
	r.Put("/auth/profile", s.updateUserProfile)
	r.Put("/auth/change-password", s.changePassword)
}

package handlers

import (
	"log/slog"
	"slices"
	"time"

	"diabcare/internal/metrics"
	"diabcare/internal/middleware"
	"diabcare/internal/predictor"
	"diabcare/internal/repository"
	"diabcare/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// RouterDeps is everything the HTTP surface is built from.
type RouterDeps struct {
	DB            *gorm.DB
	Predictor     *predictor.Adapter
	Authenticator *middleware.Authenticator
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger
	CORSOrigins   []string
}

// NewRouter wires repositories, the patient service and every route.
func NewRouter(d RouterDeps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger.With("component", "http")))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(cors.New(corsConfig(d.CORSOrigins)))

	patientRepo := repository.NewPatientRepository(d.DB)
	doctorRepo := repository.NewDoctorRepository(d.DB)
	svc := service.NewPatientService(patientRepo, d.Predictor, d.Metrics, d.Logger.With("component", "patients"))

	patients := NewPatientHandler(svc)
	authH := NewAuthHandler(doctorRepo, d.Authenticator, d.Logger.With("component", "auth"))
	health := NewHealthHandler(d.DB, d.Predictor)

	r.GET("/health", health.Health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.POST("/register", authH.Register)
	r.POST("/login", authH.Login)
	r.POST("/token", authH.Token)
	r.GET("/logout", authH.Logout)

	// Browser routes fall back to the login page.
	browser := r.Group("/", d.Authenticator.RequireDoctor(true))
	{
		browser.POST("/submit", patients.SubmitForm)
		browser.GET("/patients", patients.Dashboard)
		browser.POST("/delete/:id", patients.DeleteForm)
	}

	api := r.Group("/", d.Authenticator.RequireDoctor(false))
	{
		api.DELETE("/account", authH.DeleteAccount)

		v1 := api.Group("/api/v1")
		v1.POST("/patients", patients.CreatePatient)
		v1.GET("/patients", patients.Dashboard)
		v1.GET("/patients/:id", patients.GetPatient)
		v1.DELETE("/patients/:id", patients.DeletePatient)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

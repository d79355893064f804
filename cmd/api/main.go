package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/avalia-edu/avalia-api/api/swagger"
	"github.com/avalia-edu/avalia-api/internal/handler"
	"github.com/avalia-edu/avalia-api/internal/middleware"
	"github.com/avalia-edu/avalia-api/internal/repository"
	"github.com/avalia-edu/avalia-api/internal/service"
	"github.com/avalia-edu/avalia-api/pkg/cache"
	"github.com/avalia-edu/avalia-api/pkg/config"
	"github.com/avalia-edu/avalia-api/pkg/database"
	"github.com/avalia-edu/avalia-api/pkg/logger"
	corsmiddleware "github.com/avalia-edu/avalia-api/pkg/middleware/cors"
	reqidmiddleware "github.com/avalia-edu/avalia-api/pkg/middleware/requestid"
)

// @title Avalia API
// @version 1.0.0
// @description Moderated academic review platform
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, metrics caching disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	institutionRepo := repository.NewInstitutionRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, courseRepo, validate, logr)
	institutionSvc := service.NewInstitutionService(institutionRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, institutionRepo, validate, logr)
	professorSvc := service.NewProfessorService(professorRepo, courseRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, courseRepo, validate, logr)
	reviewSvc := service.NewReviewService(reviewRepo, institutionRepo, courseRepo, professorRepo, subjectRepo,
		cacheRepo, cfg.Metrics.CacheTTL, validate, logr)
	commentSvc := service.NewCommentService(commentRepo, reviewSvc, userRepo, validate, logr)
	changeRequestSvc := service.NewChangeRequestService(changeRequestRepo,
		service.NewCatalogAppliers(institutionSvc, courseSvc, professorSvc, subjectSvc), logr)
	exportSvc := service.NewExportService(reviewRepo, changeRequestRepo, nil, nil, logr)

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metricsSvc != nil {
		r.Use(middleware.Metrics(metricsSvc))
		r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	}

	r.GET("/health", handler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router := &handler.Router{
		Auth:           handler.NewAuthHandler(authSvc),
		Users:          handler.NewUserHandler(userSvc),
		Institutions:   handler.NewInstitutionHandler(institutionSvc),
		Courses:        handler.NewCourseHandler(courseSvc),
		Professors:     handler.NewProfessorHandler(professorSvc),
		Subjects:       handler.NewSubjectHandler(subjectSvc),
		Reviews:        handler.NewReviewHandler(reviewSvc),
		Comments:       handler.NewCommentHandler(commentSvc),
		ChangeRequests: handler.NewChangeRequestHandler(changeRequestSvc),
		Exports:        handler.NewExportHandler(exportSvc),
		RequireAuth:    middleware.JWT(authSvc, userRepo),
		OptionalAuth:   middleware.OptionalJWT(authSvc, userRepo),
		Moderator:      middleware.RequireModerator(),
	}
	router.Register(r, cfg.APIPrefix)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

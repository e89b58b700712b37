package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yukikurage/hierarchy-api/internal/auth"
	"github.com/yukikurage/hierarchy-api/internal/authz"
	"github.com/yukikurage/hierarchy-api/internal/config"
	"github.com/yukikurage/hierarchy-api/internal/constants"
	"github.com/yukikurage/hierarchy-api/internal/database"
	"github.com/yukikurage/hierarchy-api/internal/handlers"
	"github.com/yukikurage/hierarchy-api/internal/middleware"
	"github.com/yukikurage/hierarchy-api/internal/notify"
	"github.com/yukikurage/hierarchy-api/internal/repository"
	"github.com/yukikurage/hierarchy-api/internal/services"
	"github.com/yukikurage/hierarchy-api/internal/storage"
)

func main() {
	log := logrus.New()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	configureLogger(log, cfg)

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(db, log); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	defer redisClient.Close()

	// Notification sender
	var sender notify.Sender
	switch cfg.Notify.Sender {
	case "amqp":
		conn, ch, err := notify.DialAMQP(cfg.Notify.AMQPURL, cfg.Notify.Exchange)
		if err != nil {
			log.Fatalf("Failed to set up notifications: %v", err)
		}
		defer conn.Close()
		sender = notify.NewAMQPSender(ch, cfg.Notify.Exchange, cfg.Notify.RoutingKey)
	default:
		sender = notify.NewLogSender(log)
	}

	blobs, err := storage.NewDiskStore(cfg.Storage.UploadPath)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	gate, err := authz.NewRoleGate(authz.DefaultPolicies())
	if err != nil {
		log.Fatalf("Failed to build role gate: %v", err)
	}

	// Initialize services
	store := repository.NewStore(db)
	resolver := services.NewScopeResolver(store, services.OrphanPolicy(cfg.OrphanPolicy))
	identityService := services.NewIdentityService(store, auth.NewBcryptHasher(0), sender, resolver)
	hierarchyService := services.NewHierarchyService(store, resolver)
	assignmentService := services.NewAssignmentService(store, resolver)
	cascadeService := services.NewCascadeService(store, resolver, blobs)
	productService := services.NewProductService(store, resolver, blobs, cfg.Storage.MaxUploadBytes)
	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(identityService, tokens, cfg.Notify.ResetURL)
	hierarchyHandler := handlers.NewHierarchyHandler(hierarchyService, cascadeService)
	userHandler := handlers.NewUserHandler(identityService, assignmentService, cascadeService)
	productHandler := handlers.NewProductHandler(productService, cascadeService)

	// Initialize Gin router
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.RequestDeadline(cfg.RequestTimeout))

	sessionStore, err := newSessionStore(cfg)
	if err != nil {
		log.Fatalf("Failed to create session store: %v", err)
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	// Health check endpoint
	r.GET("/health", handlers.Health(db))
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.RequireAuth(tokens, identityService)
	can := func(obj, act string) gin.HandlerFunc {
		return middleware.RequirePermission(gate, obj, act)
	}

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth routes
		authRoutes := api.Group("/auth")
		if cfg.RateLimit.Enabled {
			limit, err := middleware.RateLimit(cfg.RateLimit.Rate, middleware.NewRateLimitStore(cfg.RateLimit, redisClient, log))
			if err != nil {
				log.Fatalf("Failed to configure rate limit: %v", err)
			}
			authRoutes.Use(limit)
		}
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/logout", requireAuth, authHandler.Logout)
			authRoutes.GET("/me", requireAuth, authHandler.GetCurrentUser)
			authRoutes.PUT("/changepassword", requireAuth, authHandler.ChangePassword)
			authRoutes.PUT("/forgotpassword", authHandler.ForgotPassword)
			authRoutes.PUT("/resetpassword/:token", authHandler.ResetPassword)
		}

		// Parent routes
		parents := api.Group("/parents")
		parents.Use(requireAuth)
		{
			parents.GET("", can(authz.ObjectParents, authz.ActionRead), hierarchyHandler.GetParent)
			parents.POST("", can(authz.ObjectParents, authz.ActionCreate), hierarchyHandler.CreateParent)
			parents.PUT("", can(authz.ObjectParents, authz.ActionUpdate), hierarchyHandler.UpdateParent)
			parents.DELETE("", can(authz.ObjectParents, authz.ActionDelete), hierarchyHandler.DeleteParent)
		}

		// Branch routes
		branches := api.Group("/branches")
		branches.Use(requireAuth)
		{
			branches.GET("", can(authz.ObjectBranches, authz.ActionRead), hierarchyHandler.ListBranches)
			branches.GET("/:id", can(authz.ObjectBranches, authz.ActionRead), hierarchyHandler.GetBranch)
			branches.POST("", can(authz.ObjectBranches, authz.ActionCreate), hierarchyHandler.CreateBranch)
			branches.PUT("/:id", can(authz.ObjectBranches, authz.ActionUpdate), hierarchyHandler.UpdateBranch)
			branches.PUT("/:id/manager", can(authz.ObjectBranches, authz.ActionSetManager), hierarchyHandler.SetBranchManager)
			branches.DELETE("/:id", can(authz.ObjectBranches, authz.ActionDelete), hierarchyHandler.DeleteBranch)
		}

		// User routes
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.GET("", can(authz.ObjectUsers, authz.ActionRead), userHandler.ListUsers)
			users.GET("/:id", can(authz.ObjectUsers, authz.ActionRead), userHandler.GetUser)
			users.POST("", can(authz.ObjectUsers, authz.ActionCreate), userHandler.CreateUser)
			users.DELETE("/:id", can(authz.ObjectUsers, authz.ActionDelete), userHandler.DeleteUser)
			users.PUT("/:id/activate", can(authz.ObjectUsers, authz.ActionActivate), userHandler.SetActive)
			users.PUT("/:id/parents/:parentId/assign", can(authz.ObjectUsers, authz.ActionAssignParent), userHandler.AssignParent)
			users.PUT("/:id/parents/:parentId/unassign", can(authz.ObjectUsers, authz.ActionAssignParent), userHandler.UnassignParent)
			users.PUT("/:id/branches/:branchId/assign", can(authz.ObjectUsers, authz.ActionAssignBranch), userHandler.AssignBranch)
			users.PUT("/:id/branches/:branchId/unassign", can(authz.ObjectUsers, authz.ActionAssignBranch), userHandler.UnassignBranch)
		}

		// Product routes
		products := api.Group("/products")
		products.Use(requireAuth)
		{
			products.GET("", can(authz.ObjectProducts, authz.ActionRead), productHandler.ListProducts)
			products.GET("/:id", can(authz.ObjectProducts, authz.ActionRead), productHandler.GetProduct)
			products.POST("", can(authz.ObjectProducts, authz.ActionCreate), productHandler.CreateProduct)
			products.PUT("/:id", can(authz.ObjectProducts, authz.ActionUpdate), productHandler.UpdateProduct)
			products.PUT("/:id/photo", can(authz.ObjectProducts, authz.ActionUpdate), productHandler.UploadPhoto)
			products.DELETE("/:id", can(authz.ObjectProducts, authz.ActionDelete), productHandler.DeleteProduct)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.IsRelease() {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.JWT.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsRelease(), // true in production (HTTPS), false in development
		SameSite: http.SameSiteLaxMode,
	}

	if cfg.Session.Store == "cookie" {
		store := cookie.NewStore([]byte(cfg.Session.Secret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		10,                 // Redis pool size
		"tcp",              // network type
		cfg.Redis.Addr(),   // Redis address from config
		"",                 // username (empty for default user)
		cfg.Redis.Password, // password (empty = no password)
		[]byte(cfg.Session.Secret),
	)
	if err != nil {
		return nil, err
	}
	store.Options(options)
	return store, nil
}

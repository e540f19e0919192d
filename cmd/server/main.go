package main

import (
	"github.com/gin-gonic/gin"
	"github.com/ayumu-k/teamboard-api/internal/config"
	"github.com/ayumu-k/teamboard-api/internal/database"
	"github.com/ayumu-k/teamboard-api/internal/handlers"
	"github.com/ayumu-k/teamboard-api/internal/logger"
	"github.com/ayumu-k/teamboard-api/internal/middleware"
	"github.com/ayumu-k/teamboard-api/internal/repository"
	"github.com/ayumu-k/teamboard-api/internal/services"
	"github.com/ayumu-k/teamboard-api/internal/storage"
	"github.com/ayumu-k/teamboard-api/internal/token"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	logger.Init(cfg.GinMode)
	defer logger.Sync()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		logger.L().Fatal("failed to connect to database", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(db); err != nil {
		logger.L().Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.AddIndexes(db); err != nil {
		logger.L().Fatal("failed to add indexes", zap.Error(err))
	}

	store, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		logger.L().Fatal("failed to prepare upload directory", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	teamRepo := repository.NewTeamRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	// Services
	tokens := token.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	authService := services.NewAuthService(userRepo)
	teamService := services.NewTeamService(teamRepo, userRepo, taskRepo)
	taskService := services.NewTaskService(taskRepo, teamRepo)
	commentService := services.NewCommentService(commentRepo, taskRepo, teamRepo)
	attachmentService := services.NewAttachmentService(attachmentRepo, taskRepo, teamRepo, store, cfg.MaxUploadBytes)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, tokens)
	teamHandler := handlers.NewTeamHandler(teamService)
	taskHandler := handlers.NewTaskHandler(taskService)
	commentHandler := handlers.NewCommentHandler(commentService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService, taskRepo, teamRepo)

	// Initialize Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Teamboard API is running",
		})
	})

	requireAuth := middleware.RequireAuth(tokens)
	teamAccess := middleware.RequireTeamAccess(teamRepo)
	teamAdmin := middleware.RequireTeamAdmin()
	taskAccess := middleware.RequireTaskAccess(taskRepo, teamRepo, "id")

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public except /me and /password)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.PUT("/password", requireAuth, authHandler.ChangePassword)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(requireAuth)
		{
			users.PUT("/profile", authHandler.UpdateProfile)
			users.GET("/search", authHandler.SearchUsers)
		}

		// Team routes (protected)
		teams := api.Group("/teams")
		teams.Use(requireAuth)
		{
			teams.POST("", teamHandler.CreateTeam)
			teams.GET("", teamHandler.ListTeams)
			teams.GET("/:id", teamAccess, teamHandler.GetTeam)
			teams.PUT("/:id", teamAccess, teamAdmin, teamHandler.UpdateTeam)
			teams.DELETE("/:id", teamAccess, teamAdmin, teamHandler.DeleteTeam)
			teams.GET("/:id/stats", teamAccess, teamHandler.GetStats)
			teams.GET("/:id/members", teamAccess, teamHandler.ListMembers)
			teams.POST("/:id/members", teamAccess, teamAdmin, teamHandler.AddMember)
			teams.DELETE("/:id/members/:userId", teamAccess, teamHandler.RemoveMember)
			teams.PUT("/:id/members/:userId", teamAccess, teamAdmin, teamHandler.UpdateMemberRole)
			teams.POST("/:id/tasks", teamAccess, taskHandler.CreateTask)
			teams.GET("/:id/tasks", teamAccess, taskHandler.ListTasks)
			teams.PUT("/:id/tasks/reorder", teamAccess, taskHandler.ReorderTasks)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("/my", taskHandler.ListMyTasks)
			tasks.GET("/:id", taskAccess, taskHandler.GetTask)
			tasks.PUT("/:id", taskAccess, taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskAccess, taskHandler.DeleteTask)
			tasks.PUT("/:id/status", taskAccess, taskHandler.UpdateStatus)
			tasks.PUT("/:id/move", taskAccess, taskHandler.MoveTask)
			tasks.PUT("/:id/assign", taskAccess, taskHandler.AssignTask)
			tasks.POST("/:id/comments", taskAccess, commentHandler.CreateComment)
			tasks.GET("/:id/comments", taskAccess, commentHandler.ListComments)
			tasks.POST("/:id/attachments", taskAccess, attachmentHandler.Upload)
			tasks.GET("/:id/attachments", taskAccess, attachmentHandler.List)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(requireAuth)
		{
			comments.PUT("/:id", commentHandler.UpdateComment)
			comments.DELETE("/:id", commentHandler.DeleteComment)
		}

		// Attachment routes (protected)
		attachments := api.Group("/attachments")
		attachments.Use(requireAuth)
		{
			attachments.GET("/:id/download", attachmentHandler.Download)
			attachments.DELETE("/:id", attachmentHandler.Delete)
		}
	}

	// Start server
	logger.L().Info("server starting", zap.String("port", cfg.ServerPort))
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		logger.L().Fatal("failed to start server", zap.Error(err))
	}
}

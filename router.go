package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/config"
	"github.com/kendall-kelly/barter-api/controllers"
	"github.com/kendall-kelly/barter-api/middleware"
	"github.com/kendall-kelly/barter-api/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// App holds the collaborators the HTTP layer is built from
type App struct {
	Config    *config.Config
	Identity  services.IdentityDirectory
	Catalog   services.ItemCatalog
	Trades    services.TradeLedger
	Chat      services.NegotiationChannel
	Images    services.ImageService
	Media     *services.MediaResolver
	Avatars   *services.AvatarCatalog
	UserInfo  services.UserInfoProvider
	UploadDir string
	Auth      gin.HandlerFunc

	closers []func() error
}

// newApp builds the services for cfg over db. Redis, Kafka and S3 are used
// when configured; otherwise in-process locks, no events and local uploads.
func newApp(ctx context.Context, cfg *config.Config, db *gorm.DB) (*App, error) {
	app := &App{Config: cfg}

	var locker services.Locker
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		app.closers = append(app.closers, client.Close)
		locker = services.NewRedisLocker(client, cfg.LockTTL)
		slog.Info("using redis locks", "addr", cfg.RedisAddr)
	} else {
		locker = services.NewLocalLocker()
	}

	var publisher services.EventPublisher = services.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTradeTopic)
		app.closers = append(app.closers, kafka.Close)
		publisher = kafka
		slog.Info("publishing trade events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTradeTopic)
	}

	if cfg.UsesS3() {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		app.Images = services.NewS3ImageService(s3Service)
	} else {
		app.Images = services.NewLocalImageService(cfg.UploadDir, cfg.PublicBaseURL)
		app.UploadDir = cfg.UploadDir
	}
	app.Media = services.NewMediaResolver(app.Images, cfg.PublicBaseURL)
	app.Avatars = services.NewAvatarCatalog(cfg.AvatarDir, app.Media)

	identity := services.NewUserDirectory(db)
	catalog := services.NewItemCatalog(db)
	app.Identity = identity
	app.Catalog = catalog

	deps := services.Deps{
		DB:        db,
		Catalog:   catalog,
		Identity:  identity,
		Locker:    locker,
		Publisher: publisher,
		Policy:    services.NewTransitionPolicy(cfg.TradeTransitions),
		Media:     app.Media,
		LockWait:  cfg.LockWait,
	}
	app.Trades = services.NewTradeService(deps)
	app.Chat = services.NewChatService(deps)

	if cfg.AuthMode == config.AuthModeAuth0 {
		app.UserInfo = services.NewAuth0Service(cfg.Auth0Domain)
	}
	app.Auth = middleware.Authenticate(cfg)

	return app, nil
}

// Close releases the connections opened by newApp
func (a *App) Close() {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
}

// setupRouter creates and configures the router
func setupRouter(app *App) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.CORS(app.Config.CORSAllowedOrigins),
	)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if app.Config.AvatarDir != "" {
		router.Static("/"+services.AvatarPathPrefix, app.Config.AvatarDir)
	}

	trades := controllers.NewTradeController(app.Trades)
	chat := controllers.NewChatController(app.Chat)
	items := controllers.NewItemController(app.Catalog, app.Images, app.Media)
	users := controllers.NewUserController(app.Identity, app.UserInfo, app.Media)
	uploads := controllers.NewUploadController(app.Images, app.UploadDir)
	avatars := controllers.NewAvatarController(app.Avatars)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/uploads/:filename", uploads.GetUploadedImage)
		v1.GET("/avatars", avatars.ListAvatars)

		api := v1.Group("")
		api.Use(app.Auth)
		if app.Config.Auth0Scope != "" {
			api.Use(middleware.RequireScope(app.Config.Auth0Scope))
		}

		// registering is the one call allowed before a profile exists
		api.POST("/users", users.CreateUser)

		authed := api.Group("")
		authed.Use(middleware.RequireCaller(app.Identity))
		{
			authed.GET("/users", users.ListUsers)
			authed.GET("/users/me", users.GetMyProfile)
			authed.PUT("/users/me", users.UpdateMyProfile)

			authed.POST("/items", items.CreateItem)
			authed.GET("/items", items.ListItems)
			authed.GET("/items/mine", items.ListMyItems)
			authed.GET("/items/user/:user_id", items.ListUserItems)
			authed.GET("/items/:id", items.GetItem)
			authed.DELETE("/items/:id", items.DeleteItem)

			authed.POST("/uploads", uploads.UploadImage)

			authed.POST("/trades", trades.CreateTrade)
			authed.POST("/trades/check", trades.CheckExistingTrade)
			authed.GET("/trades/sent", trades.ListSentTrades)
			authed.GET("/trades/received", trades.ListReceivedTrades)
			authed.GET("/trades/:id", trades.GetTrade)
			authed.POST("/trades/:id/status", trades.UpdateTradeStatus)
			authed.GET("/trades/:id/messages", chat.ListMessages)

			authed.POST("/chat/messages", chat.SendMessage)
		}
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Barter API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}

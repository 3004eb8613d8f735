// Package api contains all endpoints available
package api

import (
	"fmt"
	"time"

	s3store "skdev/storage-api/aws"
	"skdev/storage-api/db"
	"skdev/storage-api/middleware"
	"skdev/storage-api/service"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store persist.CacheStore = persist.NewMemoryStore(time.Minute)

type API struct {
	DB     *gorm.DB
	Router *gin.Engine
	S3     *s3store.S3Client

	// Store is the same client behind the ObjectStore interface the
	// engine consumes, kept separate so handlers stay testable
	Store    service.ObjectStore
	Resolver *service.Resolver
	Meta     *service.MetadataCache
	Lister   *service.Lister
	Tiers    *service.TierManager
	Usage    *service.Aggregator
}

func NewRouter() (*API, error) {
	a := &API{}

	d, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	a.DB = d

	makeLogger()

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{"http://localhost:5173"},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	a.Router.MaxMultipartMemory = 5 << 20

	s3, err := s3store.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	a.S3 = s3
	a.Store = s3

	a.Resolver = &service.Resolver{DB: d}
	a.Meta = &service.MetadataCache{
		DB:    d,
		Store: s3,
		TTL:   viper.GetDuration("cache.metadata_ttl"),
	}
	a.Lister = &service.Lister{
		DB:             d,
		Store:          s3,
		Meta:           a.Meta,
		Pages:          service.NewResponseCache(viper.GetDuration("cache.response_ttl")),
		BucketURL:      s3store.BucketURL(),
		RecencyWindow:  viper.GetDuration("listing.recency_window"),
		MaxConcurrency: viper.GetInt("aws.max_concurrency"),
	}
	a.Tiers = &service.TierManager{Meta: a.Meta, Store: s3}
	a.Usage = &service.Aggregator{
		DB:             d,
		Meta:           a.Meta,
		MaxConcurrency: viper.GetInt("aws.max_concurrency"),
	}

	if viper.GetBool("cache.redis.enabled") {
		store = persist.NewRedisStore(redis.NewClient(&redis.Options{
			Addr: viper.GetString("cache.redis.addr"),
		}))
	}

	jwt := middleware.NewJWTMiddleware()
	limit := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: viper.GetInt("host.rps"),
		Burst:             viper.GetInt("host.burst"),
	})
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", a.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, a.Validate)
	}

	files := main.Group("/files", jwt, limit)
	{
		// GET /api/files		-> Paginated listing of a user's files
		files.GET("", a.FileList)

		// POST /api/files		-> Uploads a file straight through the server
		files.POST("", middleware.BodySizeLimiter(maxUploadSize), a.FileUpload)

		// GET /api/files/presign	-> Issues a presigned upload URL and a pending record
		files.GET("/presign", a.FilePresign)

		// GET /api/files/:id		-> Returns details of a single file
		files.GET("/:id", a.FileDetails)

		// POST /api/files/:id/confirm	-> Marks a presigned upload as complete
		files.POST("/:id/confirm", a.FileConfirm)

		// POST /api/files/:id/refresh	-> Forces a live metadata refresh
		files.POST("/:id/refresh", a.FileRefresh)

		// PUT /api/files/:id/tier	-> Moves a file between storage tiers
		files.PUT("/:id/tier", a.FileTier)

		// GET /api/files/:id/download	-> Issues a presigned download URL
		files.GET("/:id/download", a.FileDownload)

		// DELETE /api/files/:id	-> Deletes a file owned by a user
		files.DELETE("/:id", a.FileDelete)
	}

	users := main.Group("/users")
	{
		// GET /api/users/usage		-> Returns the user's storage usage summary
		users.GET("/usage", jwt, cacheFor(30), a.UserUsage)
	}

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	if lvl, err := zapcore.ParseLevel(viper.GetString("app.log_level")); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}

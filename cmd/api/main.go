package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rollcall/internal/cloudinary"
	"rollcall/internal/config"
	"rollcall/internal/httpmiddleware"
	"rollcall/internal/ledger"
	"rollcall/internal/ocr"
	"rollcall/internal/queue"
	"rollcall/internal/registration"
	"rollcall/internal/report"
	"rollcall/internal/roster"
	"rollcall/internal/scan"
	"rollcall/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, logger); err != nil {
		logger.Fatal("http server failed", zap.Error(err))
	}
}

func newLogger(cfg config.App) *zap.Logger {
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.LogLevel))); err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	var zcfg zap.Config
	if cfg.Env == "production" || cfg.Env == "prod" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = lvl
	return zap.Must(zcfg.Build())
}

func openBlob(cfg config.App, logger *zap.Logger) (store.Blob, *store.RedisBlob, func()) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("postgres connect failed", zap.Error(err))
		}
		return pg, nil, func() { _ = pg.Close() }
	case "memory":
		logger.Warn("using in-memory store, data will not survive a restart")
		return store.NewMemory(), nil, func() {}
	default:
		r := store.NewRedis(cfg.RedisAddr)
		return r, r, func() { _ = r.Client.Close() }
	}
}

func runHTTP(cfg config.App, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blob, redisClient, closeBlob := openBlob(cfg, logger)
	defer closeBlob()

	var q queue.Queue
	inlineConsumer := false
	if cfg.QueueBackend == "memory" {
		// No worker sees an in-process channel, so the api drains it
		// itself; otherwise accepted jobs would vanish.
		q = queue.NewInMemory(64)
		inlineConsumer = true
	} else {
		if redisClient == nil {
			redisClient = store.NewRedis(cfg.RedisAddr)
		}
		q = queue.NewRedisQueue(redisClient.Client, "rollcall:registrations")
	}

	students, err := roster.New(ctx, blob, logger.Named("roster"))
	if err != nil {
		return err
	}
	led, err := ledger.New(ctx, blob, logger.Named("ledger"))
	if err != nil {
		return err
	}
	session := scan.NewSession(students, led, cfg.ScanCooldown, nil, logger.Named("scan"))

	ocrClient := ocr.New(cfg.OCRServiceURL, cfg.OCRSkip)

	var uploader registration.Uploader
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		uploader = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		logger.Info("cloudinary configured", zap.String("cloud", cfg.CloudinaryCloudName))
	} else {
		logger.Info("cloudinary not configured, records will carry no image URLs")
	}
	registrar := registration.New(students, ocrClient, uploader, logger.Named("registration"))

	if inlineConsumer {
		go func() {
			if err := registration.Consume(ctx, q, registrar, logger.Named("registration")); err != nil {
				logger.Error("inline registration consumer failed", zap.Error(err))
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		healthy := blob.Healthy(c.Request.Context())
		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "store": healthy, "session": session.State()})
	})

	v1 := r.Group("/v1")

	v1.POST("/students", func(c *gin.Context) {
		var req struct {
			Name       string `json:"name" binding:"required"`
			FatherName string `json:"father_name"`
			SchoolName string `json:"school_name"`
			Class      string `json:"class"`
			Section    string `json:"section"`
			RollNumber string `json:"roll_number"`
			Gender     string `json:"gender"`
			Photo      string `json:"photo"` // base64 data URL, optional
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		fields := ocr.Normalize(&ocr.CardFields{
			Name:       optional(req.Name),
			FatherName: optional(req.FatherName),
			SchoolName: optional(req.SchoolName),
			Class:      optional(req.Class),
			Section:    optional(req.Section),
			RollNumber: optional(req.RollNumber),
			Gender:     optional(req.Gender),
		})
		rec, err := registrar.FromFields(c.Request.Context(), fields, req.Photo)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, rec)
	})

	// Async card registration: the image goes onto the queue, the
	// worker finishes OCR, code rendering and the roster write.
	v1.POST("/registrations", func(c *gin.Context) {
		var job registration.Job
		if err := c.ShouldBindJSON(&job); err != nil || job.Image == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "provide {\"image\": \"<base64 data URL>\"}"})
			return
		}
		body, _ := json.Marshal(job)
		if err := q.Publish(c.Request.Context(), queue.Message{Type: registration.JobType, Body: body}); err != nil {
			logger.Error("queue publish failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "registration queue unavailable"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	v1.GET("/students", func(c *gin.Context) {
		all, err := students.All(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": all})
	})

	v1.GET("/students/:id", func(c *gin.Context) {
		rec, err := students.FindByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, roster.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rec)
	})

	// Administrative escape hatch; presence events for the id stay in
	// the ledger as orphans.
	v1.DELETE("/students/:id", func(c *gin.Context) {
		if err := students.Remove(c.Request.Context(), c.Param("id")); err != nil {
			if errors.Is(err, roster.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	})

	v1.POST("/session/start", func(c *gin.Context) {
		session.Start()
		c.JSON(http.StatusOK, gin.H{"state": session.State()})
	})

	v1.POST("/session/stop", func(c *gin.Context) {
		session.Stop()
		c.JSON(http.StatusOK, gin.H{"state": session.State()})
	})

	v1.GET("/session", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"state": session.State()})
	})

	v1.POST("/scans", func(c *gin.Context) {
		var req struct {
			Text string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		out := session.OnDecode(c.Request.Context(), req.Text)
		c.JSON(scanStatus(out.Code), out)
	})

	v1.POST("/scans/error", func(c *gin.Context) {
		var req struct {
			Kind string `json:"kind" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		session.OnDeviceError(scan.DeviceErrorKind(req.Kind))
		c.JSON(http.StatusOK, gin.H{"state": session.State()})
	})

	v1.GET("/events", func(c *gin.Context) {
		var events []ledger.PresenceEvent
		var err error
		if date := c.Query("date"); date != "" {
			events, err = led.ByDate(c.Request.Context(), date)
		} else {
			events, err = led.All(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	})

	buildReport := func(c *gin.Context, start, end string) (report.Report, bool) {
		all, err := students.All(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return report.Report{}, false
		}
		events, err := led.All(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return report.Report{}, false
		}
		return report.Build(all, events, start, end), true
	}

	v1.GET("/reports", func(c *gin.Context) {
		start, end, ok := reportRange(c)
		if !ok {
			return
		}
		rep, ok := buildReport(c, start, end)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	v1.GET("/reports/export", func(c *gin.Context) {
		start, end, ok := reportRange(c)
		if !ok {
			return
		}
		rep, ok := buildReport(c, start, end)
		if !ok {
			return
		}
		data, err := report.ExportXLSX(rep)
		if err != nil {
			logger.Error("xlsx export failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="attendance_`+start+`_`+end+`.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// An in-flight scan finishes or the event is not recorded; either
	// way the ledger stays consistent.
	session.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// scanStatus maps an outcome to an HTTP status. Duplicate and cooldown
// are expected outcomes, not errors.
func scanStatus(code scan.Code) int {
	switch code {
	case scan.CodeRecorded:
		return http.StatusCreated
	case scan.CodeNotFound:
		return http.StatusNotFound
	case scan.CodeInactive:
		return http.StatusConflict
	case scan.CodeStorageError:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// reportRange reads ?start=&end= with today as the default for both
// ends, rejecting anything that is not zero-padded YYYY-MM-DD.
func reportRange(c *gin.Context) (string, string, bool) {
	today := time.Now().Format(ledger.DateLayout)
	start := c.DefaultQuery("start", today)
	end := c.DefaultQuery("end", today)
	for _, d := range []string{start, end} {
		if _, err := time.Parse(ledger.DateLayout, d); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dates must be YYYY-MM-DD"})
			return "", "", false
		}
	}
	return start, end, true
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// @title           Mace RFQ API
// @version         1.0
// @description     Quote requests, vendor replies and awards for construction materials.

// @BasePath  /

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// @schemes http https
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"mace-backend/config"
	"mace-backend/docs"
	"mace-backend/handlers"
	"mace-backend/repository"
	"mace-backend/services"
	"mace-backend/storage"
	"mace-backend/utils"
)

func CORSConfig(origins []string) cors.Config {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Content-Type", "Content-Length", "Accept-Encoding", "Accept", "Origin",
		"X-Requested-With", "Authorization", handlers.APIKeyHeader, "Cache-Control",
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition", "X-PO-Number"}
	corsConfig.MaxAge = 12 * time.Hour
	return corsConfig
}

// app holds the wired services.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	db        *gorm.DB
	files     services.FileStore
	closers   []func() error
	rfqs      *services.RFQService
	replies   *services.ReplyService
	awards    *services.AwardService
	vendors   *services.VendorService
	catalog   *services.CatalogService
	sync      *services.SyncService
	templates *services.TemplateService
	sheets    *services.SheetsService
}

func newFileStore(ctx context.Context, cfg *config.Config) (services.FileStore, func() error, error) {
	switch cfg.StorageProvider {
	case config.StorageProviderGCS:
		store, err := services.NewGCSFileStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StorageProviderLocal:
		return services.NewLocalFileStore(cfg.UploadDir, cfg.MaxUploadSize, cfg.PublicBaseURL), nil, nil
	default:
		store, err := services.NewDriveFileStore(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	db, err := storage.InitGormDB(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, db: db}

	files, closeFiles, err := newFileStore(ctx, cfg)
	if err != nil {
		storage.Close(db)
		return nil, fmt.Errorf("file store %s: %w", cfg.StorageProvider, err)
	}
	a.files = files
	if closeFiles != nil {
		a.closers = append(a.closers, closeFiles)
	}

	rfqRepo := repository.NewRFQRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	replyRepo := repository.NewReplyRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	templateRepo := repository.NewEmailTemplateRepository(db)

	tokens := utils.NewTokenManager(cfg.TokenSecret)
	links := services.Links{BaseURL: cfg.FrontendBaseURL}
	mailer := services.NewEmailService(cfg, templateRepo, logger)
	a.sheets = services.NewSheetsService(ctx, cfg, logger)
	if !a.sheets.Configured() {
		logger.Warn("google sheet is not configured; sheet mirroring and sheet sync are disabled")
	}

	a.rfqs = services.NewRFQService(rfqRepo, vendorRepo, mailer, a.sheets, files, tokens, links, cfg.DefaultPhoneRegion, logger)
	a.replies = services.NewReplyService(rfqRepo, vendorRepo, replyRepo, mailer, a.sheets, files, tokens, logger)
	a.awards = services.NewAwardService(rfqRepo, vendorRepo, replyRepo, mailer, tokens, links, logger)
	a.vendors = services.NewVendorService(vendorRepo, cfg.DefaultPhoneRegion, logger)
	a.catalog = services.NewCatalogService(materialRepo, files, logger)
	a.sync = services.NewSyncService(rfqRepo, a.vendors, a.catalog, a.sheets, logger)
	a.templates = services.NewTemplateService(templateRepo, logger)

	if cfg.RedisAddress != "" {
		if locker := a.connectRedis(ctx); locker != nil {
			a.sync.WithLock(locker)
		}
	}
	return a, nil
}

// connectRedis returns a lock client, or nil when redis can't be reached.
// Scheduled jobs then fall back to the in-process guard.
func (a *app) connectRedis(ctx context.Context) *redislock.Client {
	rdb := redis.NewClient(&redis.Options{Addr: a.cfg.RedisAddress, PoolSize: 10})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		config.LogError(a.log, "main", "connectRedis", "redis unavailable, scheduled jobs are not locked across replicas", a.cfg.RedisAddress, err)
		rdb.Close()
		return nil
	}
	a.closers = append(a.closers, rdb.Close)
	a.log.WithField("addr", a.cfg.RedisAddress).Info("connected to redis")
	return redislock.New(rdb)
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			config.LogError(a.log, "main", "close", "closing resource", nil, err)
		}
	}
	if err := storage.Close(a.db); err != nil {
		config.LogError(a.log, "main", "close", "closing database", nil, err)
	}
}

func (a *app) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(a.log))
	r.MaxMultipartMemory = 8 << 20
	r.Use(cors.New(CORSConfig(a.cfg.CORSOrigins)))
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/files"})))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// RFQ workflow
	r.POST("/rfqs", handlers.CreateRFQ(a.rfqs))
	r.GET("/rfqs/:rfqId/vendor-items/:token", handlers.GetVendorItems(a.rfqs))
	r.POST("/rfqs/:rfqId/vendor-reply/:token", handlers.SubmitVendorReply(a.replies))
	r.GET("/rfqs/:rfqId/award-items/:token", handlers.GetAwardItems(a.awards))
	r.GET("/rfqs/:rfqId/award-items/:token/export", handlers.ExportAwardItems(a.awards))
	r.POST("/rfqs/:rfqId/award/:token", handlers.AwardItem(a.awards))
	r.POST("/rfqs/:rfqId/purchase-order/:token", handlers.GeneratePurchaseOrder(a.awards))

	// Catalog and directory reads
	r.GET("/api/vendors", handlers.GetVendors(a.vendors))
	r.GET("/api/materials", handlers.GetMaterials(a.catalog))
	r.GET("/api/materials/categories", handlers.GetMaterialCategories(a.catalog))
	if local, ok := a.files.(*services.LocalFileStore); ok {
		r.GET("/api/files", handlers.ServeFile(local.Root()))
	}

	admin := r.Group("/api", handlers.RequireAPIKey(a.cfg.AdminAPIKeyHash))
	admin.POST("/vendors", handlers.CreateVendor(a.vendors))
	admin.DELETE("/vendors/:name", handlers.DeleteVendor(a.vendors))
	admin.POST("/materials/import", handlers.ImportMaterials(a.catalog))
	admin.POST("/sync/vendors", handlers.SyncVendors(a.sync))
	admin.POST("/sync/materials", handlers.SyncMaterials(a.sync))
	admin.POST("/sync/rfqs", handlers.SyncRFQs(a.sync))
	admin.GET("/email-templates", handlers.GetEmailTemplates(a.templates))
	admin.GET("/email-templates/:id", handlers.GetEmailTemplateByID(a.templates))
	admin.POST("/email-templates", handlers.CreateEmailTemplate(a.templates))
	admin.PUT("/email-templates/:id", handlers.UpdateEmailTemplate(a.templates))
	admin.DELETE("/email-templates/:id", handlers.DeleteEmailTemplate(a.templates))

	docs.Register(docs.NewRouteDoc(r, "Mace RFQ API", routeDocs))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("request failed")
			return
		}
		entry.Info("request")
	}
}

var vendorSyncRunning int32

// safeGo runs a scheduled job, skipping it while a previous run is active
// and recovering panics.
func safeGo(logger *logrus.Logger, name string, fn func()) {
	if !atomic.CompareAndSwapInt32(&vendorSyncRunning, 0, 1) {
		logger.WithField("job", name).Warn("previous run still active, skipping")
		return
	}
	go func() {
		defer atomic.StoreInt32(&vendorSyncRunning, 0)
		defer func() {
			if r := recover(); r != nil {
				logger.WithFields(logrus.Fields{"job": name, "stack": string(debug.Stack())}).
					Errorf("PANIC in %s: %v", name, r)
			}
		}()
		fn()
	}()
}

func (a *app) startCron() (*cron.Cron, error) {
	if a.cfg.VendorSyncCron == "" {
		return nil, nil
	}
	if !a.sheets.Configured() {
		a.log.Warn("VENDOR_SYNC_CRON is set but the google sheet is not configured; vendor sync not scheduled")
		return nil, nil
	}
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(a.log.WithField("module", "cron"))))
	_, err := c.AddFunc(a.cfg.VendorSyncCron, func() {
		safeGo(a.log, "VendorSheetSync", a.sync.RunScheduledVendorSync)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid VENDOR_SYNC_CRON %q: %w", a.cfg.VendorSyncCron, err)
	}
	c.Start()
	a.log.WithField("schedule", a.cfg.VendorSyncCron).Info("vendor sheet sync scheduled")
	return c, nil
}

var routeDocs = map[string]docs.Operation{
	"POST /rfqs":                                 {Summary: "Create an RFQ and email its vendors", Tag: "RFQ", Consumes: "multipart/form-data"},
	"GET /rfqs/:rfqId/vendor-items/:token":       {Summary: "Items addressed to the link's vendor", Tag: "RFQ"},
	"POST /rfqs/:rfqId/vendor-reply/:token":      {Summary: "Submit a vendor reply", Tag: "Vendor Reply", Consumes: "multipart/form-data"},
	"GET /rfqs/:rfqId/award-items/:token":        {Summary: "Vendor quotes grouped by item", Tag: "Award"},
	"GET /rfqs/:rfqId/award-items/:token/export": {Summary: "Quote comparison workbook", Tag: "Award", Produces: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"POST /rfqs/:rfqId/award/:token":             {Summary: "Award an item to a vendor", Tag: "Award", Consumes: "application/json"},
	"POST /rfqs/:rfqId/purchase-order/:token":    {Summary: "Purchase order PDF", Tag: "Award", Consumes: "application/json", Produces: "application/pdf"},
	"GET /api/vendors":                           {Summary: "List vendors", Tag: "Vendors"},
	"POST /api/vendors":                          {Summary: "Create vendor", Tag: "Vendors", Consumes: "application/json", Admin: true},
	"DELETE /api/vendors/:name":                  {Summary: "Delete vendor", Tag: "Vendors", Admin: true},
	"GET /api/materials":                         {Summary: "List materials", Tag: "Materials"},
	"GET /api/materials/categories":              {Summary: "Material categories", Tag: "Materials"},
	"POST /api/materials/import":                 {Summary: "Import materials workbook", Tag: "Materials", Consumes: "multipart/form-data", Admin: true},
	"GET /api/files":                             {Summary: "Serve a stored file", Tag: "Files", Produces: "application/octet-stream"},
	"POST /api/sync/vendors":                     {Summary: "Replace vendors from sheet rows", Tag: "Sync", Consumes: "application/json", Admin: true},
	"POST /api/sync/materials":                   {Summary: "Upsert materials from sheet rows", Tag: "Sync", Consumes: "application/json", Admin: true},
	"POST /api/sync/rfqs":                        {Summary: "Recreate RFQs from sheet rows", Tag: "Sync", Consumes: "application/json", Admin: true},
	"GET /api/email-templates":                   {Summary: "List email templates", Tag: "Email Templates", Admin: true},
	"GET /api/email-templates/:id":               {Summary: "Get email template", Tag: "Email Templates", Admin: true},
	"POST /api/email-templates":                  {Summary: "Create email template", Tag: "Email Templates", Consumes: "application/json", Admin: true},
	"PUT /api/email-templates/:id":               {Summary: "Update email template", Tag: "Email Templates", Consumes: "application/json", Admin: true},
	"DELETE /api/email-templates/:id":            {Summary: "Delete email template", Tag: "Email Templates", Admin: true},
}

func main() {
	logger := config.GetLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	config.SetLogLevel(cfg.LogLevel)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("startup failed")
	}
	defer a.close()

	c, err := a.startCron()
	if err != nil {
		logger.WithError(err).Fatal("scheduling failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if c != nil {
		<-c.Stop().Done()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("server forced to shutdown")
	}
	logger.Info("server exiting")
}

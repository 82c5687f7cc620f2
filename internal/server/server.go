package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/catalogd/internal/config"
	importjobdomain "github.com/smallbiznis/catalogd/internal/importjob/domain"
	obsmetrics "github.com/smallbiznis/catalogd/internal/observability/metrics"
	productdomain "github.com/smallbiznis/catalogd/internal/product/domain"
	"github.com/smallbiznis/catalogd/internal/taskqueue"
	webhookdomain "github.com/smallbiznis/catalogd/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, m *obsmetrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(obsmetrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	queue      *taskqueue.Queue
	productSvc productdomain.Service
	importSvc  importjobdomain.Service
	webhookSvc webhookdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Queue      *taskqueue.Queue
	ProductSvc productdomain.Service
	ImportSvc  importjobdomain.Service
	WebhookSvc webhookdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		queue:      p.Queue,
		productSvc: p.ProductSvc,
		importSvc:  p.ImportSvc,
		webhookSvc: p.WebhookSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Import pipeline --------
	api.POST("/upload", s.UploadProducts)
	api.GET("/imports/:id", s.GetImportJob)
	api.GET("/tasks/:id", s.GetTaskStatus)

	// -------- Products --------
	api.GET("/products", s.ListProducts)
	api.POST("/products", s.CreateProduct)
	api.GET("/products/:id", s.GetProductByID)
	api.PUT("/products/:id", s.UpdateProduct)
	api.DELETE("/products/:id", s.DeleteProduct)
	api.POST("/bulk-delete", s.BulkDeleteProducts)

	// -------- Webhooks --------
	api.GET("/webhooks", s.ListWebhooks)
	api.POST("/webhooks", s.CreateWebhook)
	api.GET("/webhooks/:id", s.GetWebhookByID)
	api.PUT("/webhooks/:id", s.UpdateWebhook)
	api.DELETE("/webhooks/:id", s.DeleteWebhook)
	api.POST("/webhooks/:id/test", s.TestWebhook)
}

func run(lc fx.Lifecycle, cfg config.Config, _ *Server, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

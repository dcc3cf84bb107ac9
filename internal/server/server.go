package restapi

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gadzhilaev/smile-ai-tg/internal/core"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
	"github.com/gadzhilaev/smile-ai-tg/internal/plugins/blob"
	"github.com/gadzhilaev/smile-ai-tg/internal/server/docs"
)

const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 5000
	DefaultMaxUploadBytes = 10 << 20

	shutdownTimeout = 10 * time.Second
)

type Config struct {
	Host           string
	Port           int
	APIKey         string
	MaxUploadBytes int64
}

func (c Config) Addr() string {
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	port := c.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Services are the collaborators the HTTP handlers call into.
type Services struct {
	Relay   *core.Relay
	Greeter *core.Greeter
	Arbiter *core.Arbiter
	Store   core.Store
	Hub     *Hub
	// Uploads serves stored photos back; nil when photos live elsewhere.
	Uploads *blob.Local
	// Ping reports database health.
	Ping func(ctx context.Context) error
}

type Server struct {
	cfg    Config
	svc    Services
	engine *gin.Engine
}

func New(cfg Config, svc Services) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if svc.Hub == nil {
		svc.Hub = NewHub()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", apiKeyHeader},
		MaxAge:          12 * time.Hour,
	}))
	// multipart parts beyond this spill to temp files
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	s := &Server{cfg: cfg, svc: svc, engine: r}

	r.GET("/health", s.Health)
	docs.SwaggerInfo.BasePath = "/"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/", APIKeyMiddleware(cfg.APIKey))
	api.POST("/send_message", s.SendMessage)
	api.POST("/register_device", s.RegisterDevice)
	api.GET("/message_history/:user_id", s.MessageHistory)
	api.GET("/check_device/:user_id", s.CheckDevice)
	api.GET("/support_mode/:user_id", s.GetSupportMode)
	api.POST("/support_mode/:user_id", s.SetSupportMode)
	api.GET("/ws", svc.Hub.Serve)
	if svc.Uploads != nil {
		r.GET("/uploads/:name", s.Upload)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debuglog.Log("server listening on %s\n", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.svc.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		debuglog.Debug(debuglog.Detailed, "%s %s -> %d (%s)\n", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8080,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// Server HTTP服务器
type Server struct {
	server *http.Server
	log    *zap.Logger
}

// NewServer 创建HTTP服务器。业务路由走完整中间件链，
// websocket 升级路径绕过超时和压缩中间件。
func NewServer(cfg ServerConfig, api *API, hub *Hub, logger *zap.Logger) *Server {
	if cfg.Port == 0 {
		cfg = DefaultServerConfig()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	mux := http.NewServeMux()
	api.Register(mux)

	chain := Chain(
		RecoveryMiddleware(logger),
		LoggerMiddleware(logger),
		SecurityHeadersMiddleware,
		CORSMiddleware(cfg.AllowedOrigins),
		TimeoutMiddleware(cfg.Timeout),
		GzipMiddleware,
	)

	root := http.NewServeMux()
	if hub != nil {
		root.HandleFunc("GET /api/ws/dashboard", hub.HandleWebSocket)
	}
	root.Handle("/", chain(mux))

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  cfg.Timeout,
			WriteTimeout: cfg.Timeout,
			IdleTimeout:  120 * time.Second,
		},
		log: logger,
	}
}

// Start 启动服务器
func (s *Server) Start() error {
	s.log.Info("starting http server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.log.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}

package debugapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/chunkstore/internal/logging"
	"github.com/annel0/chunkstore/internal/mesher"
	"github.com/annel0/chunkstore/internal/world"
)

// Report - состояние хранилища, которое владелец мира публикует каждый тик
type Report struct {
	Tick          uint64       `json:"tick"`
	World         world.Stats  `json:"world"`
	Mesher        mesher.Stats `json:"mesher"`
	IngestPending int          `json:"ingest_pending"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// StatsBox хранит последний Report. Владелец мира пишет, HTTP-обработчики читают.
type StatsBox struct {
	mu     sync.RWMutex
	report Report
}

// Publish сохраняет отчёт
func (b *StatsBox) Publish(r Report) {
	b.mu.Lock()
	b.report = r
	b.mu.Unlock()
}

// Latest возвращает копию последнего отчёта
func (b *StatsBox) Latest() Report {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.report
}

// GenericResponse - общий формат ответа API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Config содержит конфигурацию отладочного сервера
type Config struct {
	Addr       string                // адрес для запуска сервера
	Stats      *StatsBox             // источник отчётов
	Registerer prometheus.Registerer // куда регистрировать HTTP-метрики
	Gatherer   prometheus.Gatherer   // что отдавать на /metrics
	Logger     *logging.Logger
}

// Server - отладочный HTTP API: /health, /stats, /metrics
type Server struct {
	router  *gin.Engine
	http    *http.Server
	stats   *StatsBox
	process *ProcessMetrics
	log     *logging.Logger
}

// NewServer создаёт сервер; слушать порт он начинает в Start
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8089"
	}
	if cfg.Stats == nil {
		cfg.Stats = &StatsBox{}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.GetDebugAPILogger()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("chunkstore_debug"))
	router.Use(NewRequestLogger(cfg.Logger).Handler())
	router.Use(NewPrometheusMiddleware("chunkstore_debug", cfg.Registerer).Handler())

	s := &Server{
		router:  router,
		stats:   cfg.Stats,
		process: NewProcessMetrics(),
		log:     cfg.Logger,
	}
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	return s
}

// Handler возвращает http.Handler сервера
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start запускает сервер в отдельной горутине
func (s *Server) Start() {
	go func() {
		s.log.Info("Debug API listening on %s", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Debug API stopped: %v", err)
		}
	}()
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "ok",
		Data: map[string]interface{}{
			"uptime": s.process.GetUptime(),
		},
	})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data: map[string]interface{}{
			"store":   s.stats.Latest(),
			"process": s.process.Collect(),
		},
	})
}

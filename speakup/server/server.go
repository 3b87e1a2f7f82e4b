// Package server exposes the HTTP API and the generated artifacts.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/makeitchaccha/speakup/speakup/history"
	"github.com/makeitchaccha/speakup/speakup/pipeline"
	"github.com/makeitchaccha/speakup/speakup/task"
	"github.com/makeitchaccha/speakup/speakup/voice"
)

const (
	defaultExchanges = 5
	minExchanges     = 1
	maxExchanges     = 10
	maxTopicRunes    = 200
)

// ServiceFactory builds a fresh service snapshot for an API key.
type ServiceFactory func(apiKey string) (*pipeline.Services, error)

type JobSubmitter interface {
	Submit(job pipeline.Job) error
}

type HistoryStore interface {
	List() ([]history.Entry, error)
	Delete(filename string) error
}

type Options struct {
	Registry   task.Registry
	Dispatcher JobSubmitter
	History    HistoryStore
	Presets    *voice.Registry
	Overrides  voice.OverrideRepository
	Voices     voice.Resolver
	Factory    ServiceFactory
	// Services is the initial snapshot; nil until an API key is configured.
	Services *pipeline.Services

	GeneratedDir string
	AudioDir     string
	Version      string
}

type Server struct {
	echo       *echo.Echo
	registry   task.Registry
	dispatcher JobSubmitter
	history    HistoryStore
	presets    *voice.Registry
	overrides  voice.OverrideRepository
	voices     voice.Resolver
	factory    ServiceFactory
	services   atomic.Pointer[pipeline.Services]
	version    string
}

func New(opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:       e,
		registry:   opts.Registry,
		dispatcher: opts.Dispatcher,
		history:    opts.History,
		presets:    opts.Presets,
		overrides:  opts.Overrides,
		voices:     opts.Voices,
		factory:    opts.Factory,
		version:    opts.Version,
	}
	if opts.Services != nil {
		s.services.Store(opts.Services)
	}

	e.HTTPErrorHandler = s.handleError
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	api := e.Group("/api")
	api.GET("/health", s.Health)
	api.GET("/config", s.GetConfig)
	api.POST("/config", s.SetConfig)

	api.POST("/generate", s.Generate)
	api.GET("/tasks/:id", s.GetTask)

	api.GET("/history", s.ListHistory)
	api.DELETE("/history/:filename", s.DeleteHistory)

	api.POST("/dialogue/generate", s.GenerateDialogue)
	api.POST("/generate-full", s.GenerateFull)
	api.POST("/translate", s.Translate)
	api.POST("/tts", s.Synthesize)
	api.POST("/tts/dialogue", s.SynthesizeDialogue)
	api.POST("/save-html", s.SaveHTML)

	api.GET("/voices", s.ListVoices)
	api.GET("/voices/:speaker", s.GetVoice)
	api.PUT("/voices/:speaker", s.SetVoice)
	api.DELETE("/voices/:speaker", s.DeleteVoice)

	if opts.GeneratedDir != "" {
		e.Static("/generated", opts.GeneratedDir)
	}
	if opts.AudioDir != "" {
		e.Static("/audio", opts.AudioDir)
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start serves on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	slog.Info("HTTP server listening", slog.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// currentServices is the snapshot new work is started with.
func (s *Server) currentServices() *pipeline.Services {
	return s.services.Load()
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, errorResponse{Success: false, Error: msg})
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		slog.Error("request failed", slog.String("path", c.Path()), slog.Any("err", err))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = fail(c, code, msg)
	}
	if err != nil {
		slog.Warn("failed to write error response", slog.Any("err", err))
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.Any("err", v.Error))
				slog.LogAttrs(context.Background(), slog.LevelWarn, "request", attrs...)
				return nil
			}
			slog.LogAttrs(context.Background(), slog.LevelDebug, "request", attrs...)
			return nil
		},
	})
}

func (s *Server) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/makeitchaccha/speakup/speakup/pipeline"
	"github.com/makeitchaccha/speakup/speakup/task"
)

type generateRequest struct {
	Topic        string `json:"topic"`
	NumExchanges *int   `json:"num_exchanges"`
}

// validate trims the topic and applies the default exchange count.
func (r *generateRequest) validate() (topic string, exchanges int, err error) {
	topic = strings.TrimSpace(r.Topic)
	if topic == "" {
		return "", 0, errors.New("Topic is required")
	}
	if utf8.RuneCountInString(topic) > maxTopicRunes {
		return "", 0, fmt.Errorf("topic must be at most %d characters", maxTopicRunes)
	}
	exchanges = defaultExchanges
	if r.NumExchanges != nil {
		exchanges = *r.NumExchanges
	}
	if exchanges < minExchanges || exchanges > maxExchanges {
		return "", 0, fmt.Errorf("num_exchanges must be between %d and %d", minExchanges, maxExchanges)
	}
	return topic, exchanges, nil
}

type generateResponse struct {
	Success bool        `json:"success"`
	TaskID  string      `json:"task_id"`
	Status  task.Status `json:"status"`
}

// Generate validates the request, registers a task and queues the job.
// The response is sent before any remote call is made.
func (s *Server) Generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid request body")
	}
	topic, exchanges, err := req.validate()
	if err != nil {
		return fail(c, http.StatusBadRequest, err.Error())
	}

	svc := s.currentServices()
	if svc == nil {
		return fail(c, http.StatusBadRequest, msgNotInitialized)
	}

	ctx := c.Request().Context()
	t, err := s.registry.Create(ctx, topic, exchanges)
	if err != nil {
		if errors.Is(err, task.ErrRegistryFull) {
			return fail(c, http.StatusServiceUnavailable, "too many tasks, try again later")
		}
		return err
	}

	err = s.dispatcher.Submit(pipeline.Job{
		TaskID:    t.ID,
		Topic:     topic,
		Exchanges: exchanges,
		Services:  svc,
	})
	if err != nil {
		msg := "server is busy, try again later"
		if errors.Is(err, pipeline.ErrStopped) {
			msg = "server is shutting down"
		}
		if uerr := s.registry.Update(ctx, t.ID, task.StatusFailed, task.WithError(msg)); uerr != nil {
			slog.Warn("failed to mark rejected task", slog.String("task", t.ID), slog.Any("err", uerr))
		}
		return fail(c, http.StatusServiceUnavailable, msg)
	}

	slog.Info("Accepted generation", slog.String("task", t.ID), slog.String("topic", topic), slog.Int("exchanges", exchanges))
	return c.JSON(http.StatusAccepted, generateResponse{
		Success: true,
		TaskID:  t.ID,
		Status:  t.Status,
	})
}

func (s *Server) GetTask(c echo.Context) error {
	t, err := s.registry.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			return fail(c, http.StatusNotFound, "task not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, t)
}

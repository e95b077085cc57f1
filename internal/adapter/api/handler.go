package api

import (
	"errors"
	"estimator-core/internal/domain/entity"
	"estimator-core/internal/logger"
	"estimator-core/internal/metrics"
	"estimator-core/internal/usecase"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// HeaderClientID names the caller for quota purposes. It is only honoured when
// a gateway in front of the service sets it.
const HeaderClientID = "X-Client-ID"

type EstimateHandler struct {
	orchestrator  *usecase.Orchestrator
	trustClientID bool
}

// NewEstimateHandler builds the handler. With trustClientID false, quotas are
// keyed by the remote IP and X-Client-ID is ignored.
func NewEstimateHandler(orch *usecase.Orchestrator, trustClientID bool) *EstimateHandler {
	return &EstimateHandler{orchestrator: orch, trustClientID: trustClientID}
}

func (h *EstimateHandler) HandleEstimate(c *fiber.Ctx) error {
	var req entity.EstimationRequest
	if err := c.BodyParser(&req); err != nil {
		metrics.RequestsTotal.WithLabelValues("400").Inc()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	req.ClientID = h.clientID(c)
	req.UserAgent = c.Get(fiber.HeaderUserAgent)

	// The Delivery layer maps the business error to HTTP status codes
	resp, err := h.orchestrator.Execute(c.UserContext(), req)
	if err != nil {
		switch {
		case errors.Is(err, entity.ErrInvalidRequest):
			metrics.RequestsTotal.WithLabelValues("400").Inc()
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, entity.ErrRateLimitExceeded):
			metrics.RequestsTotal.WithLabelValues("429").Inc()
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
		}
		logger.Get(c.UserContext()).Error().Err(err).Msg("estimate failed")
		metrics.RequestsTotal.WithLabelValues("500").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      entity.ErrInternalServer.Error(),
			"request_id": logger.GetRequestID(c.UserContext()),
		})
	}

	c.Set("X-Estimator-Cache-Hit", strconv.FormatBool(resp.Cached))
	c.Set("X-Estimator-Model-Used", strconv.FormatBool(resp.ModelUsed))

	metrics.RequestsTotal.WithLabelValues("200").Inc()
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *EstimateHandler) HandleStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.orchestrator.Engine().Status())
}

// HandleReset drops the cached classifier and the cached estimates it produced,
// so the next estimate reloads the model.
func (h *EstimateHandler) HandleReset(c *fiber.Ctx) error {
	log := logger.Get(c.UserContext())
	if err := h.orchestrator.Reset(c.UserContext()); err != nil {
		log.Error().Err(err).Msg("estimator reset incomplete")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      entity.ErrInternalServer.Error(),
			"request_id": logger.GetRequestID(c.UserContext()),
		})
	}
	log.Info().Msg("classifier and estimate cache reset")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *EstimateHandler) clientID(c *fiber.Ctx) string {
	if h.trustClientID {
		if id := c.Get(HeaderClientID); id != "" {
			return id
		}
	}
	return c.IP()
}

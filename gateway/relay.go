package gateway

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/lanternhq/lantern/pkg/fault"
)

// generateResponse is the success envelope for the generation endpoints.
type generateResponse struct {
	Response string `json:"response"`
}

// errorEnvelope is the error contract for every endpoint.
type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps a fault kind to its HTTP status.
func statusOf(kind fault.Kind) int {
	switch kind {
	case fault.UnsupportedMediaType:
		return fiber.StatusUnsupportedMediaType
	case fault.PayloadTooLarge:
		return fiber.StatusRequestEntityTooLarge
	case fault.EmptyRequest:
		return fiber.StatusBadRequest
	case fault.UpstreamUnavailable:
		return fiber.StatusServiceUnavailable
	case fault.UpstreamRejected:
		return fiber.StatusBadRequest
	case fault.InternalStagingFailure:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadGateway
	}
}

// relayError translates a classified error into the endpoint's error
// envelope. Full error detail, including wrapped vendor causes, goes to
// the log; clients only ever see the client-safe message.
func (g *Gateway) relayError(c *fiber.Ctx, err error) error {
	kind := fault.KindOf(err)
	status := statusOf(kind)

	if status >= 500 {
		g.logger.Error("request failed",
			zap.String("route", c.Path()),
			zap.String("code", string(kind)),
			zap.Error(err),
		)
	} else {
		g.logger.Debug("request rejected",
			zap.String("route", c.Path()),
			zap.String("code", string(kind)),
			zap.Error(err),
		)
	}

	if kind == fault.UpstreamUnavailable {
		// Not retried here; retry guidance is left to the client.
		c.Set(fiber.HeaderRetryAfter, "5")
	}

	return c.Status(status).JSON(errorEnvelope{
		Error: fault.MessageOf(err),
		Code:  string(kind),
	})
}

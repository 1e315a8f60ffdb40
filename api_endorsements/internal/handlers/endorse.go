package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/DiscordHubDev/DiscordHub-sub000/api_endorsements/internal/endorse"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/auth"
	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/logging"
)

// errInvalidRequest is returned for bodies that are not JSON at all. It is
// a transport error and never produced by the service.
const errInvalidRequest = "INVALID_REQUEST"

type EndorsementHandler struct {
	service EndorsementService
	logger  logging.Logger
	metrics *EndorsementMetrics
}

func NewEndorsementHandler(service EndorsementService, logger logging.Logger, metrics *EndorsementMetrics) *EndorsementHandler {
	return &EndorsementHandler{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
}

// actionBody is optional. Timestamp is the client clock in epoch milliseconds.
type actionBody struct {
	SecurityToken *string `json:"securityToken"`
	ItemName      *string `json:"itemName"`
	Timestamp     *int64  `json:"timestamp"`
}

func (h *EndorsementHandler) HandleEndorse(c *gin.Context) {
	h.handleAction(c, "endorse", h.service.Endorse)
}

func (h *EndorsementHandler) HandlePin(c *gin.Context) {
	h.handleAction(c, "pin", h.service.Pin)
}

func (h *EndorsementHandler) handleAction(c *gin.Context, action string, run func(ctx context.Context, req endorse.Request) endorse.Result) {
	var body actionBody
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			h.metrics.IncRequest(action, "bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": errInvalidRequest})
			return
		}
	}

	req := endorse.Request{
		ActorID:       auth.ActorID(c),
		ItemID:        c.Param("id"),
		ItemType:      c.Param("type"),
		SecurityToken: body.SecurityToken,
		ItemName:      body.ItemName,
	}
	if body.Timestamp != nil {
		ts := time.UnixMilli(*body.Timestamp).UTC()
		req.Timestamp = &ts
	}

	result := run(c.Request.Context(), req)
	h.metrics.IncRequest(action, outcome(result.Success, result.Error))

	if result.Error == endorse.ErrCooldown && result.Remaining != nil {
		c.Header("Retry-After", strconv.FormatInt(retryAfterSeconds(*result.Remaining), 10))
	}
	c.JSON(StatusFor(result.Success, result.Error), result)
}

func (h *EndorsementHandler) HandlePinToken(c *gin.Context) {
	result := h.service.IssuePinToken(c.Request.Context(), auth.ActorID(c), c.Param("id"), c.Param("type"))
	h.metrics.IncRequest("pin_token", outcome(result.Success, result.Error))
	c.JSON(StatusFor(result.Success, result.Error), result)
}

func (h *EndorsementHandler) HandleStatus(c *gin.Context) {
	result := h.service.Status(c.Request.Context(), auth.ActorID(c), c.Param("id"), c.Param("type"))
	c.Header("Cache-Control", "no-store")
	c.JSON(StatusFor(result.Success, result.Error), result)
}

// StatusFor maps a service outcome onto an HTTP status
func StatusFor(success bool, kind endorse.ErrorKind) int {
	if success {
		return http.StatusOK
	}
	switch kind {
	case endorse.ErrInvalidIDFormat, endorse.ErrInvalidType, endorse.ErrRequestExpired:
		return http.StatusBadRequest
	case endorse.ErrNotLoggedIn:
		return http.StatusUnauthorized
	case endorse.ErrNotOwner, endorse.ErrItemNameMismatch, endorse.ErrSecurityViolation:
		return http.StatusForbidden
	case endorse.ErrNotFound:
		return http.StatusNotFound
	case endorse.ErrCooldown:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func outcome(success bool, kind endorse.ErrorKind) string {
	if success {
		return "success"
	}
	return string(kind)
}

func retryAfterSeconds(remainingMs int64) int64 {
	secs := (remainingMs + 999) / 1000
	if secs < 1 {
		secs = 1
	}
	return secs
}

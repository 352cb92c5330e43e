package handlers

import (
	"net/http"
	"strings"
	"time"

	"coop-ledger/internal/pkg/apperrors"
	"coop-ledger/internal/pkg/consts"
	"coop-ledger/internal/pkg/log_messages"
	"coop-ledger/internal/pkg/logger"
	"coop-ledger/internal/service/interfaces"
	"coop-ledger/internal/service/payment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultRecoveryGrace = time.Minute

type PaymentsHandler struct {
	service        PaymentService
	idempotency    interfaces.RedisStoreInterface
	idempotencyTTL time.Duration
}

// NewPaymentsHandler builds the payment endpoints. idempotency may be nil,
// in which case Idempotency-Key headers are ignored.
func NewPaymentsHandler(service PaymentService, idempotency interfaces.RedisStoreInterface, ttl time.Duration) *PaymentsHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PaymentsHandler{service: service, idempotency: idempotency, idempotencyTTL: ttl}
}

func (h *PaymentsHandler) Process(c *gin.Context) {
	ctx := c.Request.Context()
	var body payment.Request
	if err := c.ShouldBindJSON(&body); err != nil {
		writeBindError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(consts.IdempotencyHeader))
	claimed := ""
	if key != "" && h.idempotency != nil {
		redisKey := consts.IdempotencyKeyPrefix + key
		ok, err := h.idempotency.Claim(ctx, redisKey, time.Now().UTC().Format(time.RFC3339), h.idempotencyTTL)
		if err != nil {
			logger.CtxError(ctx, log_messages.IdempotencyCheckFailed, err, zap.String("idempotency_key", key))
			writeError(c, apperrors.NewStoreError("claim idempotency key", err))
			return
		}
		if !ok {
			logger.CtxWarn(ctx, log_messages.DuplicatePaymentRequest, zap.String("idempotency_key", key))
			writeError(c, &apperrors.DuplicateRequestError{Key: key})
			return
		}
		claimed = redisKey
	}

	result, err := h.service.Process(ctx, body)
	if err != nil {
		// Nothing was written, so the key may be reused for a corrected request.
		h.release(c, claimed)
		writeError(c, err)
		return
	}
	if result.Unchanged() {
		h.release(c, claimed)
	}
	c.JSON(http.StatusOK, result)
}

func (h *PaymentsHandler) release(c *gin.Context, redisKey string) {
	if redisKey == "" {
		return
	}
	ctx := c.Request.Context()
	if err := h.idempotency.Delete(ctx, redisKey); err != nil {
		logger.CtxError(ctx, log_messages.IdempotencyCheckFailed, err)
		return
	}
	logger.CtxInfo(ctx, log_messages.IdempotencyKeyReleased, zap.String("idempotency_key", redisKey))
}

// Recover resolves pending ledger transactions older than the grace period
// given in the "grace" query parameter (a Go duration, default 1m).
func (h *PaymentsHandler) Recover(c *gin.Context) {
	grace := defaultRecoveryGrace
	if raw := c.Query("grace"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeError(c, apperrors.NewValidationError("grace", "must be a non-negative duration such as 30s or 5m"))
			return
		}
		grace = d
	}
	summary, err := h.service.Recover(c.Request.Context(), grace)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

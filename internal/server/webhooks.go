package server

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/editorbridge/internal/platform"
	"go.uber.org/zap"
)

const (
	headerWebhookHMAC  = "X-Platform-Hmac-Sha256"
	headerWebhookShop  = "X-Platform-Shop-Domain"
	headerWebhookTopic = "X-Platform-Topic"

	maxWebhookBody = 1 << 20
)

// VerifyWebhookHMAC authenticates webhook deliveries against the shared app
// secret before any parsing happens. The raw body is restored for the
// downstream handler.
func (s *Server) VerifyWebhookHMAC() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if s.cfg.WebhookSecret == "" {
			c.Next()
			return
		}

		mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
		mac.Write(body)
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
		got := strings.TrimSpace(c.GetHeader(headerWebhookHMAC))
		if got == "" || !hmac.Equal([]byte(expected), []byte(got)) {
			s.incWebhook(c, "unauthorized")
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

// HandleOrderPaid is the orders/paid delivery endpoint. Once a delivery is
// authenticated the platform always gets a 200: malformed or irrelevant
// payloads are acknowledged as ignored, and processing failures are logged
// rather than surfaced, so redelivery never amplifies a downstream outage.
func (s *Server) HandleOrderPaid(c *gin.Context) {
	shop := strings.TrimSpace(c.GetHeader(headerWebhookShop))
	if shop == "" {
		s.incWebhook(c, "ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var order platform.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		s.log.Warn("malformed order webhook",
			zap.String("shop", shop),
			zap.Error(err),
		)
		s.incWebhook(c, "ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	results, err := s.orderSvc.ProcessPaidOrder(c.Request.Context(), shop, order)
	if err != nil {
		s.log.Error("order processing failed",
			zap.String("shop", shop),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		s.incWebhook(c, "failed")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	s.incWebhook(c, "processed")
	c.JSON(http.StatusOK, gin.H{"status": "ok", "results": results})
}

// HandleAppUninstalled erases everything recorded for the shop. Erasure is
// idempotent, so redeliveries are harmless.
func (s *Server) HandleAppUninstalled(c *gin.Context) {
	shop := strings.TrimSpace(c.GetHeader(headerWebhookShop))
	if shop == "" {
		s.incWebhook(c, "ignored")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := s.shopRepo.Erase(c.Request.Context(), s.db, shop); err != nil {
		s.log.Error("shop erasure failed",
			zap.String("shop", shop),
			zap.Error(err),
		)
		s.incWebhook(c, "failed")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	s.incWebhook(c, "processed")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) incWebhook(c *gin.Context, outcome string) {
	topic := strings.TrimSpace(c.GetHeader(headerWebhookTopic))
	if topic == "" {
		topic = strings.TrimPrefix(c.FullPath(), "/webhooks/")
	}
	s.metrics.IncWebhook(topic, outcome)
}

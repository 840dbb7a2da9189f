package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Job endpoints back external cron triggers. Unlike the webhook boundary they
// surface failures as non-2xx so the caller's alerting sees them.

func (s *Server) SeedRates(c *gin.Context) {
	if err := s.refresher.SeedRates(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) RefreshRates(c *gin.Context) {
	if err := s.refresher.RefreshRates(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type runBillingRequest struct {
	// Shop limits the run to one shop; empty sweeps all installed shops.
	Shop string `json:"shop"`
	// Since overrides the default period start (first day of the previous
	// month, UTC).
	Since *time.Time `json:"since"`
}

func (s *Server) RunBilling(c *gin.Context) {
	var req runBillingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	since := s.defaultBillingSince()
	if req.Since != nil {
		since = req.Since.UTC()
	}

	var err error
	if shop := strings.TrimSpace(req.Shop); shop != "" {
		err = s.billingSvc.ReconcileShop(c.Request.Context(), shop, since)
	} else {
		err = s.billingSvc.ReconcileAll(c.Request.Context(), since)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "since": since})
}

func (s *Server) defaultBillingSince() time.Time {
	now := s.clock.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/editorbridge/internal/fasteditor"
)

type smartLinkRequest struct {
	Shop       string `json:"shop" binding:"required"`
	SKU        string `json:"sku" binding:"required"`
	Language   string `json:"language"`
	Currency   string `json:"currency"`
	Country    string `json:"country"`
	ProjectKey string `json:"project_key"`
}

// CreateSmartLink hands the storefront a FastEditor customization URL.
// Language, currency and country fall back to the shop's settings.
func (s *Server) CreateSmartLink(c *gin.Context) {
	var req smartLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	settings, err := s.shopRepo.Get(c.Request.Context(), s.db, strings.TrimSpace(req.Shop))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	client, err := s.feFactory.ForShop(settings)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	link, err := client.CreateSmartLink(c.Request.Context(), fasteditor.SmartLinkRequest{
		SKU:        req.SKU,
		Language:   coalesce(req.Language, settings.Locale),
		Currency:   coalesce(req.Currency, settings.Currency),
		Country:    coalesce(req.Country, settings.Country),
		ProjectKey: req.ProjectKey,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": link.URL})
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	shopdomain "github.com/smallbiznis/editorbridge/internal/shop/domain"
)

var validate = validator.New()

type shopSettingsRequest struct {
	Shop                   string `json:"shop" validate:"required,fqdn"`
	APIKey                 string `json:"api_key" validate:"required"`
	APISecret              string `json:"api_secret" validate:"required"`
	PlatformToken          string `json:"platform_token" validate:"required"`
	Locale                 string `json:"locale" validate:"omitempty,bcp47_language_tag"`
	Currency               string `json:"currency" validate:"omitempty,iso4217"`
	Country                string `json:"country" validate:"omitempty,iso3166_1_alpha2"`
	SubscriptionLineItemID string `json:"subscription_line_item_id"`
}

// UpsertShop registers a shop on install or updates its credentials. The
// platform install flow calls this once the OAuth exchange completes.
func (s *Server) UpsertShop(c *gin.Context) {
	var req shopSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if err := validate.Struct(req); err != nil {
		AbortWithError(c, validationErrorsFrom(err))
		return
	}

	settings := &shopdomain.ShopSettings{
		ID:                     s.genID.Generate(),
		Shop:                   strings.TrimSpace(req.Shop),
		APIKey:                 strings.TrimSpace(req.APIKey),
		APISecret:              strings.TrimSpace(req.APISecret),
		PlatformToken:          strings.TrimSpace(req.PlatformToken),
		Locale:                 coalesce(req.Locale, "en"),
		Currency:               strings.ToUpper(coalesce(req.Currency, s.cfg.BillingCurrency)),
		Country:                strings.ToUpper(strings.TrimSpace(req.Country)),
		SubscriptionLineItemID: strings.TrimSpace(req.SubscriptionLineItemID),
		Installed:              true,
	}
	if err := s.shopRepo.Upsert(c.Request.Context(), s.db, settings); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (s *Server) GetShop(c *gin.Context) {
	settings, err := s.shopRepo.Get(c.Request.Context(), s.db, c.Param("shop"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) ListBillingHistory(c *gin.Context) {
	history, err := s.ledgerRepo.ListHistory(c.Request.Context(), s.db, c.Param("shop"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}

func validationErrorsFrom(err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range fieldErrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   strings.ToLower(fe.Field()),
			Code:    "invalid_" + strings.ToLower(fe.Field()),
			Message: "invalid value",
		})
	}
	return out
}

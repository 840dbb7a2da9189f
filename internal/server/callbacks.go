package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orderprocdomain "github.com/smallbiznis/editorbridge/internal/orderproc/domain"
	"go.uber.org/zap"
)

// HandleEditorCallback receives FastEditor's asynchronous processing result.
// The shop is carried in the query string because FastEditor echoes the
// callback URL we handed it at notification time.
func (s *Server) HandleEditorCallback(c *gin.Context) {
	var cb orderprocdomain.EditorCallback
	if err := c.ShouldBindJSON(&cb); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if shop := strings.TrimSpace(c.Query("shop")); shop != "" {
		cb.Shop = shop
	}
	if strings.TrimSpace(cb.Shop) == "" {
		AbortWithError(c, newValidationError("shop", "invalid_shop", "shop is required"))
		return
	}

	if err := s.orderSvc.HandleEditorCallback(c.Request.Context(), cb); err != nil {
		s.log.Error("editor callback failed",
			zap.String("shop", cb.Shop),
			zap.String("order_id", cb.OrderID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

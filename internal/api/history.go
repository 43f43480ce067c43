package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fridgechef/backend/internal/model"
	"github.com/pageza/fridgechef/backend/internal/service"
	"github.com/pageza/fridgechef/backend/internal/types"
)

// HistoryHandler lists past analyses
type HistoryHandler struct {
	history service.IHistoryService
	log     logrus.FieldLogger
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(history service.IHistoryService, log logrus.FieldLogger) *HistoryHandler {
	return &HistoryHandler{history: history, log: log.WithField("component", "api")}
}

// HistoryResponse is the body of GET /api/v1/analyses
type HistoryResponse struct {
	Analyses []model.Analysis `json:"analyses"`
}

// RegisterRoutes registers the history routes
func (h *HistoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/analyses", h.List)
}

// List handles GET /analyses?limit=N
func (h *HistoryHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, types.ErrorResponse{Error: "Invalid limit", Message: "limit must be a positive integer"})
			return
		}
		limit = n
	}

	analyses, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		h.log.WithError(err).Error("failed to list analyses")
		c.JSON(http.StatusInternalServerError, types.ErrorResponse{Error: types.ErrMsgInternal})
		return
	}
	if analyses == nil {
		analyses = []model.Analysis{}
	}

	c.JSON(http.StatusOK, HistoryResponse{Analyses: analyses})
}

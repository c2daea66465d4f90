package presenter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"transcript-advisor/internal/shared/server/middleware"
	"transcript-advisor/internal/shared/server/respond"
	"transcript-advisor/internal/transfer"
)

// Handler serves the standalone results view.
type Handler struct {
	Slots transfer.SlotStore
}

func NewHandler(slots transfer.SlotStore) *Handler {
	return &Handler{Slots: slots}
}

// RegisterRoutes attaches the results route to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/results", h.results)
}

func (h *Handler) results(c *gin.Context) {
	sessionID := middleware.SessionIDFromContext(c)
	view, err := Activate(c.Request.Context(), transfer.NewChannel(h.Slots, sessionID))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read results", nil)
		return
	}
	respond.OK(c, view)
}

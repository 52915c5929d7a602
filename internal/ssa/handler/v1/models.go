package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ModelHandler handles GET /v1/models. The agent is the only model; its
// owner is the completion provider behind it.
type ModelHandler struct {
	model    string
	provider func() string
}

func NewModelHandler(model string, provider func() string) *ModelHandler {
	return &ModelHandler{model: model, provider: provider}
}

func (h *ModelHandler) List(c *gin.Context) {
	owner := h.provider()
	if owner == "" {
		owner = "simulation"
	}
	c.JSON(http.StatusOK, ModelListResponse{
		Object: "list",
		Data:   []ModelObject{{ID: h.model, Object: "model", OwnedBy: owner}},
	})
}

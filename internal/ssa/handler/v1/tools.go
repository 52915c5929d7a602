package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/kiosk404/sankhya-agent/internal/pkg/core"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/tools"
	"github.com/kiosk404/sankhya-agent/pkg/errorx"
)

// ToolHandler lists and reloads the tool registry.
type ToolHandler struct {
	reg *tools.Registry
}

func NewToolHandler(reg *tools.Registry) *ToolHandler {
	return &ToolHandler{reg: reg}
}

// List handles GET /v1/tools with the current snapshot.
func (h *ToolHandler) List(c *gin.Context) {
	core.WriteResponse(c, nil, snapshotResponse(h.reg.Snapshot()))
}

// Reload handles POST /v1/tools/reload.
func (h *ToolHandler) Reload(c *gin.Context) {
	if err := h.reg.Reload(c.Request.Context()); err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrToolsReload, "reload tools"), nil)
		return
	}
	core.WriteResponse(c, nil, snapshotResponse(h.reg.Snapshot()))
}

func snapshotResponse(snap *tools.Snapshot) ToolListResponse {
	resp := ToolListResponse{
		Version:  snap.Version(),
		LoadedAt: FormatTime(snap.LoadedAt()),
		Tools:    make([]ToolResponse, 0, snap.Len()),
	}
	for _, t := range snap.List() {
		tr := ToolResponse{Name: t.Name, Source: t.Source, Description: t.DocSummary()}
		for _, p := range t.Params {
			tr.Params = append(tr.Params, ParamResponse{
				Name:     p.Name,
				Type:     string(p.Kind),
				Required: p.Required,
				Default:  p.Default,
			})
		}
		resp.Tools = append(resp.Tools, tr)
	}
	for _, e := range snap.Errors() {
		resp.Errors = append(resp.Errors, LoadErrorInfo{Source: e.Source, Module: e.Module, Error: e.Err.Error()})
	}
	return resp
}

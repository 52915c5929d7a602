package v1

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/sankhya-agent/internal/pkg/core"
	"github.com/kiosk404/sankhya-agent/internal/ssa/service/rules"
	"github.com/kiosk404/sankhya-agent/pkg/errorx"
)

// RuleHandler exposes the business rule store.
type RuleHandler struct {
	store rules.Store
}

func NewRuleHandler(store rules.Store) *RuleHandler {
	return &RuleHandler{store: store}
}

// List handles GET /v1/rules.
func (h *RuleHandler) List(c *gin.Context) {
	doc, err := h.store.List(c.Request.Context())
	if err != nil {
		core.WriteResponse(c, errorx.WrapC(err, ErrRuleList, "list rules"), nil)
		return
	}
	resp := RuleListResponse{
		Active:  make([]RuleResponse, 0, len(doc.MappingRules)),
		Pending: make([]RuleResponse, 0, len(doc.ProposedRules)),
	}
	for _, r := range doc.MappingRules {
		resp.Active = append(resp.Active, toRuleResponse(r))
	}
	for _, r := range doc.ProposedRules {
		resp.Pending = append(resp.Pending, toRuleResponse(r))
	}
	core.WriteResponse(c, nil, resp)
}

// Approve handles POST /v1/rules/:id/approve.
func (h *RuleHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	r, err := h.store.Approve(c.Request.Context(), id)
	switch {
	case errors.Is(err, rules.ErrRuleNotFound):
		core.WriteResponse(c, errorx.WrapC(err, ErrRuleNotFound, "approve rule %q", id), nil)
	case err != nil:
		core.WriteResponse(c, errorx.WrapC(err, ErrRuleApprove, "approve rule %q", id), nil)
	default:
		core.WriteResponse(c, nil, toRuleResponse(r))
	}
}

func toRuleResponse(r rules.Rule) RuleResponse {
	return RuleResponse{
		ID:          r.ID,
		Condition:   r.Condition,
		Description: r.Description,
		Category:    r.Category,
		Status:      string(r.Status),
		ProposedAt:  formatTimePtr(r.ProposedAt),
		ApprovedAt:  formatTimePtr(r.ApprovedAt),
	}
}

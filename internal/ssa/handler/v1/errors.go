package v1

import (
	"net/http"

	"github.com/kiosk404/sankhya-agent/pkg/errorx"
)

// Handler error codes.
// Code format: 1XXYYZ
//   - 1:  module prefix (ssa handler)
//   - XX: resource group (00=common, 01=chat, 02=tools, 03=rules)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (100xxx).
	ErrBind = 100001

	// Chat completions errors (1001xx).
	ErrMessagesEmpty = 100101
	ErrNoUserMessage = 100102
	ErrEncodeChunk   = 100103

	// Tool registry errors (1002xx).
	ErrToolsReload = 100201

	// Rule errors (1003xx).
	ErrRuleNotFound = 100301
	ErrRuleList     = 100302
	ErrRuleApprove  = 100303
)

func init() {
	errorx.MustRegister(errorx.NewCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))

	errorx.MustRegister(errorx.NewCoder(ErrMessagesEmpty, http.StatusBadRequest, "Messages array is required and must not be empty"))
	errorx.MustRegister(errorx.NewCoder(ErrNoUserMessage, http.StatusBadRequest, "No user message found in messages array"))
	errorx.MustRegister(errorx.NewCoder(ErrEncodeChunk, http.StatusInternalServerError, "Failed to encode the response"))

	errorx.MustRegister(errorx.NewCoder(ErrToolsReload, http.StatusInternalServerError, "Tool registry reload failed"))

	errorx.MustRegister(errorx.NewCoder(ErrRuleNotFound, http.StatusNotFound, "Rule not found or not pending approval"))
	errorx.MustRegister(errorx.NewCoder(ErrRuleList, http.StatusInternalServerError, "Failed to list rules"))
	errorx.MustRegister(errorx.NewCoder(ErrRuleApprove, http.StatusInternalServerError, "Failed to approve rule"))
}

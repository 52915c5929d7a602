// Package core renders API responses. Errors use the OpenAI error envelope
// so OpenAI clients surface them as-is.
package core

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiosk404/sankhya-agent/pkg/errorx"
	"github.com/kiosk404/sankhya-agent/pkg/logger"
)

// ErrResponse is the error envelope.
type ErrResponse struct {
	Error ErrBody `json:"error"`
}

type ErrBody struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
	// Reference points to the documentation of the code, if any.
	Reference string `json:"reference,omitempty"`
}

// WriteResponse writes data as JSON, or the coded error when err is set.
// The wrapped cause is logged, never sent.
func WriteResponse(c *gin.Context, err error, data any) {
	if err != nil {
		coder := errorx.ParseCoder(err)
		logger.ErrorX("http", "%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(coder.HTTPStatus(), ErrResponse{Error: ErrBody{
			Message:   coder.String(),
			Type:      errorType(coder.HTTPStatus()),
			Code:      coder.Code(),
			Reference: coder.Reference(),
		}})
		return
	}
	c.JSON(http.StatusOK, data)
}

func errorType(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "authentication_error"
	case status == http.StatusNotFound:
		return "not_found_error"
	case status < http.StatusInternalServerError:
		return "invalid_request_error"
	default:
		return "server_error"
	}
}

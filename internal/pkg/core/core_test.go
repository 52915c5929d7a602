package core

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/sankhya-agent/pkg/errorx"
	"github.com/kiosk404/sankhya-agent/pkg/utils/json"
)

const errCoreTestNotFound = 990404

func init() {
	errorx.MustRegister(errorx.NewCoder(errCoreTestNotFound, http.StatusNotFound, "Thing not found"))
}

func TestWriteResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name       string
		err        error
		data       any
		wantStatus int
		wantType   string
		wantMsg    string
	}{
		{name: "data", data: gin.H{"ok": true}, wantStatus: http.StatusOK},
		{
			name:       "registered code hides the cause",
			err:        errorx.WrapC(errors.New("bolt: bucket missing"), errCoreTestNotFound, "load thing"),
			wantStatus: http.StatusNotFound,
			wantType:   "not_found_error",
			wantMsg:    "Thing not found",
		},
		{
			name:       "plain error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "server_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/x", nil)

			WriteResponse(c, tt.err, tt.data)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.err == nil {
				assert.JSONEq(t, `{"ok":true}`, w.Body.String())
				return
			}
			var got ErrResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantType, got.Error.Type)
			assert.NotContains(t, got.Error.Message, "bolt")
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, got.Error.Message)
			}
		})
	}
}

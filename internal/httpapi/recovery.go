package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"bondbridge/internal/faultlog"
	"bondbridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const msgInternal = "an unexpected error occurred, please try again later"

// Recovery turns panics into a generic 500. The panic value and stack are logged
// and, when faults is non-nil, persisted to the fault log. Neither reaches the client.
func Recovery(faults *faultlog.Service) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		value := fmt.Sprint(recovered)
		stack := string(debug.Stack())
		log := logger.FromGin(c)
		log.Error("panic recovered", "panic", value, "path", c.Request.URL.Path)

		if faults != nil {
			if err := faults.RecordPanic(c.Request.Context(), logger.RequestID(c), value, stack); err != nil {
				log.Error("fault log write failed", "err", err)
			}
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"status": http.StatusInternalServerError, "error": msgInternal})
	})
}

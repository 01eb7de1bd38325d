package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/product-studio/internal/models"
)

// RequireMultipart rejects uploads that are not multipart/form-data.
// Per-file type checks happen during intake.
func RequireMultipart() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		contentType := ctx.GetHeader("Content-Type")

		if !strings.HasPrefix(strings.ToLower(contentType), "multipart/form-data") {
			ctx.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.APIResponse{
				Success: false,
				Error:   "Images must be uploaded as multipart/form-data",
			})
			return
		}

		ctx.Next()
	}
}

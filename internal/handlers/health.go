package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/hierarchy-api/internal/errors"
	"gorm.io/gorm"
)

// Health reports whether the API can reach its database.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			apierrors.ServiceUnavailable(c, "Database unavailable")
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Hierarchy API is running",
		})
	}
}

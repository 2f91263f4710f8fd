package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-box-api/internal/middleware"
	"github.com/noah-isme/grievance-box-api/internal/models"
	appErrors "github.com/noah-isme/grievance-box-api/pkg/errors"
)

func sessionFromContext(c *gin.Context) *models.Session {
	return middleware.SessionFromContext(c)
}

// pathID parses a positive integer path parameter.
func pathID(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, appErrors.Validation(err, "invalid "+name)
	}
	return id, nil
}

func bindError(err error, message string) error {
	return appErrors.Validation(err, message)
}

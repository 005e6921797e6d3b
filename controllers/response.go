package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/barter-api/middleware"
	"github.com/kendall-kelly/barter-api/services"
	"github.com/kendall-kelly/barter-api/utils"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondFailure(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// respondError maps a service error kind to an HTTP status. Storage failures
// are logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondFailure(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
		return
	}

	var se *services.ServiceError
	if !errors.As(err, &se) || se.Kind == services.KindStorageFailure {
		slog.Error("request failed",
			"path", c.FullPath(),
			"request_id", middleware.GetRequestID(c),
			"error", err)
		respondFailure(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch se.Kind {
	case services.KindUnauthorized:
		status = http.StatusUnauthorized
	case services.KindForbidden:
		status = http.StatusForbidden
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindValidation:
		status = http.StatusBadRequest
	case services.KindConflict:
		status = http.StatusConflict
	}
	respondFailure(c, status, se.Code, se.Message)
}

func respondInvalidRequest(c *gin.Context, message string) {
	respondFailure(c, http.StatusBadRequest, "INVALID_REQUEST", message)
}

// parseID reads a positive integer path parameter, answering 400 otherwise
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		respondInvalidRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

// requireCaller reads the caller set by middleware.RequireCaller
func requireCaller(c *gin.Context) (uint, bool) {
	id, err := middleware.GetCallerID(c)
	if err != nil {
		respondFailure(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return 0, false
	}
	return id, true
}

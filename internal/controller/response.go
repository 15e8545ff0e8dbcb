package controller

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/service"
)

// respondError 业务错误到 HTTP 状态码的统一映射
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(404, gin.H{"status": "error", "message": "Resource not found"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(422, gin.H{"status": "error", "message": "The email has already been taken"})
	case errors.Is(err, service.ErrSKUTaken):
		c.JSON(422, gin.H{"status": "error", "message": "The SKU has already been taken"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(401, gin.H{"status": "error", "message": "Invalid credentials"})
	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(403, gin.H{"status": "error", "message": "Account is inactive"})
	case errors.Is(err, service.ErrPasswordIncorrect):
		c.JSON(422, gin.H{"status": "error", "message": "Current password is incorrect"})
	case errors.Is(err, service.ErrInsufficientStock):
		c.JSON(422, gin.H{"status": "error", "message": "Insufficient stock"})
	// 同步前置条件错误统一 400
	case errors.Is(err, service.ErrNoConnection):
		c.JSON(400, gin.H{"status": "error", "message": "No active Lazada connection found"})
	case errors.Is(err, service.ErrConnectionInvalid):
		c.JSON(400, gin.H{"status": "error", "message": "Lazada connection is invalid or expired"})
	case errors.Is(err, service.ErrNotYetSynced):
		c.JSON(400, gin.H{"status": "error", "message": "Product has not been synced to Lazada yet"})
	case service.IsUpstreamError(err):
		c.JSON(502, gin.H{"status": "error", "message": err.Error()})
	default:
		c.JSON(500, gin.H{"status": "error", "message": err.Error()})
	}
}

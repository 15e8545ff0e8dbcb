package controller

import (
	"encoding/json"
	"strconv"

	"github.com/gin-gonic/gin"

	"lazada_sync_v1_202608/internal/api/dto"
	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/service"
)

type ConnectionController struct {
	connService service.ConnectionService
}

func NewConnectionController(connService service.ConnectionService) *ConnectionController {
	return &ConnectionController{connService: connService}
}

func toConnectionInfo(c *model.PlatformConnection) *dto.ConnectionInfo {
	return &dto.ConnectionInfo{
		ID:             c.ID,
		PlatformName:   c.PlatformName,
		Status:         c.Status,
		TokenExpiresAt: c.TokenExpiresAt,
		ConnectionData: json.RawMessage(c.ConnectionData),
		ConnectedAt:    c.ConnectedAt,
		LastSyncAt:     c.LastSyncAt,
		CreatedAt:      c.CreatedAt,
	}
}

func connectionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"status": "error", "message": "Invalid connection ID"})
		return 0, false
	}
	return id, true
}

// List 连接列表
// @Summary 获取平台连接列表
// @Tags Connection
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ConnectionInfo
// @Router /api/v1/connections [get]
func (ctrl *ConnectionController) List(c *gin.Context) {
	conns, err := ctrl.connService.List(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]*dto.ConnectionInfo, 0, len(conns))
	for i := range conns {
		list = append(list, toConnectionInfo(&conns[i]))
	}
	c.JSON(200, gin.H{"status": "success", "data": list})
}

// Stats 连接统计
// @Summary 获取平台连接统计
// @Tags Connection
// @Produce json
// @Security BearerAuth
// @Success 200 {object} repository.ConnectionStats
// @Router /api/v1/connections/statistics [get]
func (ctrl *ConnectionController) Stats(c *gin.Context) {
	stats, err := ctrl.connService.Stats(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": stats})
}

// AuthURL 生成授权链接
// @Summary 获取 Lazada 授权跳转链接
// @Tags Connection
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.AuthURLResponse
// @Router /api/v1/connections/lazada/auth-url [get]
func (ctrl *ConnectionController) AuthURL(c *gin.Context) {
	url := ctrl.connService.AuthorizationURL(middleware.GetMerchantID(c))
	c.JSON(200, dto.AuthURLResponse{AuthURL: url})
}

// Callback Lazada 授权回调
// @Summary Lazada 授权回调
// @Description 接收 Lazada 返回的 code 和 state，换取 Token 并入库
// @Tags Connection
// @Produce json
// @Param code query string true "授权码"
// @Param state query string true "携带商家 ID 的 state"
// @Success 200 {object} dto.ConnectionInfo
// @Failure 400 {object} map[string]string "拒绝授权/参数错误"
// @Router /api/v1/connections/lazada/callback [get]
func (ctrl *ConnectionController) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(400, gin.H{"status": "error", "message": "Authorization was denied", "detail": errParam})
		return
	}
	if code == "" || state == "" {
		c.JSON(400, gin.H{"status": "error", "message": "Missing code or state parameter"})
		return
	}

	conn, err := ctrl.connService.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{
		"status":  "success",
		"message": "Lazada account connected successfully",
		"data":    toConnectionInfo(conn),
	})
}

// Test 连接探活
// @Summary 测试平台连接
// @Tags Connection
// @Produce json
// @Security BearerAuth
// @Param id path int true "连接ID"
// @Success 200 {object} dto.TestConnectionResponse
// @Router /api/v1/connections/{id}/test [post]
func (ctrl *ConnectionController) Test(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}

	valid, conn, err := ctrl.connService.Test(c.Request.Context(), middleware.GetMerchantID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, dto.TestConnectionResponse{
		Valid:      valid,
		Connection: toConnectionInfo(conn),
	})
}

// Disconnect 断开连接
// @Summary 断开平台连接
// @Tags Connection
// @Produce json
// @Security BearerAuth
// @Param id path int true "连接ID"
// @Success 200 {object} map[string]string
// @Router /api/v1/connections/{id} [delete]
func (ctrl *ConnectionController) Disconnect(c *gin.Context) {
	id, ok := connectionID(c)
	if !ok {
		return
	}

	if err := ctrl.connService.Disconnect(c.Request.Context(), middleware.GetMerchantID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "message": "Connection disconnected"})
}

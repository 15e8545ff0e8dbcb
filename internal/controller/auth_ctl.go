package controller

import (
	"github.com/gin-gonic/gin"

	"lazada_sync_v1_202608/internal/api/dto"
	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/service"
)

type AuthController struct {
	authService service.AuthService
}

func NewAuthController(authService service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func toMerchantInfo(m *model.Merchant) *dto.MerchantInfo {
	return &dto.MerchantInfo{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Phone:     m.Phone,
		Address:   m.Address,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}

// Register 商家注册
// @Summary 商家注册
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterRequest true "注册参数"
// @Success 201 {object} dto.AuthResponse
// @Failure 422 {object} map[string]string "邮箱已被占用/参数错误"
// @Router /api/v1/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	merchant, tokens, err := ctrl.authService.Register(c.Request.Context(), &service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(201, dto.AuthResponse{
		Merchant:     toMerchantInfo(merchant),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
	})
}

// Login 商家登录
// @Summary 商家登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "登录参数"
// @Success 200 {object} dto.AuthResponse
// @Failure 401 {object} map[string]string "凭证错误"
// @Failure 403 {object} map[string]string "账号已停用"
// @Router /api/v1/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	merchant, tokens, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, dto.AuthResponse{
		Merchant:     toMerchantInfo(merchant),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		TokenType:    tokens.TokenType,
	})
}

// Me 当前商家资料
// @Summary 获取当前商家资料
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MerchantInfo
// @Router /api/v1/auth/me [get]
func (ctrl *AuthController) Me(c *gin.Context) {
	merchant, err := ctrl.authService.GetProfile(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": toMerchantInfo(merchant)})
}

// UpdateProfile 更新商家资料
// @Summary 更新商家资料
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.UpdateProfileRequest true "资料字段"
// @Success 200 {object} dto.MerchantInfo
// @Router /api/v1/auth/me [put]
func (ctrl *AuthController) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	merchant, err := ctrl.authService.UpdateProfile(c.Request.Context(), middleware.GetMerchantID(c), &service.UpdateProfileRequest{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": toMerchantInfo(merchant)})
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ChangePasswordRequest true "密码参数"
// @Success 200 {object} map[string]string
// @Failure 422 {object} map[string]string "当前密码不正确"
// @Router /api/v1/auth/password [put]
func (ctrl *AuthController) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	err := ctrl.authService.ChangePassword(c.Request.Context(),
		middleware.GetMerchantID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "message": "Password updated successfully"})
}

// Logout 登出
// @Summary 商家登出
// @Description 令牌为无状态 JWT，服务端不保留会话，客户端丢弃令牌即失效
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/v1/auth/logout [post]
func (ctrl *AuthController) Logout(c *gin.Context) {
	c.JSON(200, gin.H{"status": "success", "message": "Logged out successfully"})
}

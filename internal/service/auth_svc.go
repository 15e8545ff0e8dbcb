package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
)

// ==================== 接口定义 ====================

// AuthService 商家认证服务
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*model.Merchant, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*model.Merchant, *TokenPair, error)
	GetProfile(ctx context.Context, merchantID int64) (*model.Merchant, error)
	UpdateProfile(ctx context.Context, merchantID int64, req *UpdateProfileRequest) (*model.Merchant, error)
	ChangePassword(ctx context.Context, merchantID int64, currentPassword, newPassword string) error
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
	Address  string
}

// UpdateProfileRequest 资料更新请求，nil 字段表示不修改
type UpdateProfileRequest struct {
	Name    *string
	Phone   *string
	Address *string
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// ==================== 实现 ====================

type authService struct {
	merchantRepo repository.MerchantRepository
}

// NewAuthService 创建认证服务
func NewAuthService(merchantRepo repository.MerchantRepository) AuthService {
	return &authService{merchantRepo: merchantRepo}
}

// Register 注册新商家
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*model.Merchant, *TokenPair, error) {
	exists, err := s.merchantRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, err
	}

	merchant := &model.Merchant{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Phone:    req.Phone,
		Address:  req.Address,
		Status:   model.MerchantStatusActive,
	}
	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, nil, err
	}

	tokens, err := issueTokens(merchant)
	if err != nil {
		return nil, nil, err
	}
	return merchant, tokens, nil
}

// Login 商家登录
func (s *authService) Login(ctx context.Context, email, password string) (*model.Merchant, *TokenPair, error) {
	merchant, err := s.merchantRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	// 停用账号统一返回固定错误，不泄露密码是否正确
	if !merchant.IsActive() {
		return nil, nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(merchant.Password), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := issueTokens(merchant)
	if err != nil {
		return nil, nil, err
	}
	return merchant, tokens, nil
}

// GetProfile 获取商家资料
func (s *authService) GetProfile(ctx context.Context, merchantID int64) (*model.Merchant, error) {
	return s.merchantRepo.GetByID(ctx, merchantID)
}

// UpdateProfile 更新商家资料
func (s *authService) UpdateProfile(ctx context.Context, merchantID int64, req *UpdateProfileRequest) (*model.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if req.Name != nil {
		fields["name"] = *req.Name
	}
	if req.Phone != nil {
		fields["phone"] = *req.Phone
	}
	if req.Address != nil {
		fields["address"] = *req.Address
	}
	if len(fields) == 0 {
		return merchant, nil
	}

	if err := s.merchantRepo.UpdateFields(ctx, merchantID, fields); err != nil {
		return nil, err
	}
	return s.merchantRepo.GetByID(ctx, merchantID)
}

// ChangePassword 修改密码
func (s *authService) ChangePassword(ctx context.Context, merchantID int64, currentPassword, newPassword string) error {
	merchant, err := s.merchantRepo.GetByID(ctx, merchantID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(merchant.Password), []byte(currentPassword)); err != nil {
		return ErrPasswordIncorrect
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.merchantRepo.UpdateFields(ctx, merchantID, map[string]interface{}{
		"password": string(hashed),
	})
}

func issueTokens(merchant *model.Merchant) (*TokenPair, error) {
	access, err := middleware.GenerateAccessToken(merchant.ID, merchant.Email)
	if err != nil {
		return nil, err
	}
	refresh, err := middleware.GenerateRefreshToken(merchant.ID, merchant.Email)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
	}, nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
)

// ==================== 接口定义 ====================

// ConnectionService 平台授权连接管理
type ConnectionService interface {
	List(ctx context.Context, merchantID int64) ([]model.PlatformConnection, error)
	Get(ctx context.Context, merchantID, connID int64) (*model.PlatformConnection, error)
	// ActiveConnection 取商家当前有效的 Lazada 连接，没有则返回 ErrNoConnection
	ActiveConnection(ctx context.Context, merchantID int64) (*model.PlatformConnection, error)

	// AuthorizationURL 生成 Lazada 授权跳转链接
	AuthorizationURL(merchantID int64) string
	// HandleCallback OAuth 回调：code 换 Token，拉卖家信息，落库（同平台覆盖旧连接）
	HandleCallback(ctx context.Context, code, state string) (*model.PlatformConnection, error)

	// Test 连接探活（需要时顺带刷新 Token）
	Test(ctx context.Context, merchantID, connID int64) (bool, *model.PlatformConnection, error)
	// Disconnect 断开连接并清空凭证
	Disconnect(ctx context.Context, merchantID, connID int64) error

	Stats(ctx context.Context, merchantID int64) (*repository.ConnectionStats, error)
}

type connectionService struct {
	connRepo repository.ConnectionRepository
	lazada   *LazadaService
}

// NewConnectionService 创建连接服务
func NewConnectionService(connRepo repository.ConnectionRepository, lazada *LazadaService) ConnectionService {
	return &connectionService{connRepo: connRepo, lazada: lazada}
}

// ==================== 实现 ====================

func (s *connectionService) List(ctx context.Context, merchantID int64) ([]model.PlatformConnection, error) {
	return s.connRepo.ListByMerchant(ctx, merchantID)
}

func (s *connectionService) Get(ctx context.Context, merchantID, connID int64) (*model.PlatformConnection, error) {
	return s.connRepo.GetForMerchant(ctx, merchantID, connID)
}

func (s *connectionService) ActiveConnection(ctx context.Context, merchantID int64) (*model.PlatformConnection, error) {
	conn, err := s.connRepo.FindActive(ctx, merchantID, model.PlatformLazada)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoConnection
		}
		return nil, err
	}
	return conn, nil
}

func (s *connectionService) AuthorizationURL(merchantID int64) string {
	return s.lazada.AuthorizationURL(merchantID)
}

// HandleCallback 回调落库流程
func (s *connectionService) HandleCallback(ctx context.Context, code, state string) (*model.PlatformConnection, error) {
	merchantID, err := s.lazada.DecodeState(state)
	if err != nil {
		return nil, err
	}

	tok, err := s.lazada.ExchangeCodeForToken(ctx, code)
	if err != nil {
		return nil, err
	}

	info := model.ConnectionInfo{
		AccountPlatform: tok.AccountPlatform,
		CountryUserInfo: tok.CountryUserInfo,
	}
	// 卖家信息拿不到不阻断授权，留空后续探活再补
	if seller, err := s.lazada.GetSellerInfo(ctx, tok.AccessToken); err == nil {
		if raw, err := json.Marshal(seller); err == nil {
			info.SellerInfo = raw
		}
	} else {
		log.Printf("[Connection] 商家 %d 授权后拉取卖家信息失败: %v", merchantID, err)
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	conn := &model.PlatformConnection{
		MerchantID:     merchantID,
		PlatformName:   model.PlatformLazada,
		AccessToken:    tok.AccessToken,
		RefreshToken:   tok.RefreshToken,
		TokenExpiresAt: &expiresAt,
		Status:         model.ConnectionStatusActive,
		ConnectedAt:    &now,
	}
	conn.SetInfo(info)

	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return nil, err
	}

	log.Printf("[Connection] 商家 %d 完成 Lazada 授权", merchantID)
	return conn, nil
}

// Test 探活。返回校验结果与最新连接状态
func (s *connectionService) Test(ctx context.Context, merchantID, connID int64) (bool, *model.PlatformConnection, error) {
	conn, err := s.connRepo.GetForMerchant(ctx, merchantID, connID)
	if err != nil {
		return false, nil, err
	}

	ok := s.lazada.ValidateAndRefresh(ctx, conn)

	// ValidateAndRefresh 内部已落库，重读拿最新状态
	fresh, err := s.connRepo.GetByID(ctx, conn.ID)
	if err != nil {
		return ok, conn, nil
	}
	return ok, fresh, nil
}

// Disconnect 断开连接，清空凭证
func (s *connectionService) Disconnect(ctx context.Context, merchantID, connID int64) error {
	conn, err := s.connRepo.GetForMerchant(ctx, merchantID, connID)
	if err != nil {
		return err
	}

	return s.connRepo.UpdateFields(ctx, conn.ID, map[string]interface{}{
		"access_token":     "",
		"refresh_token":    "",
		"token_expires_at": nil,
		"status":           model.ConnectionStatusDisconnected,
	})
}

func (s *connectionService) Stats(ctx context.Context, merchantID int64) (*repository.ConnectionStats, error) {
	return s.connRepo.Stats(ctx, merchantID)
}

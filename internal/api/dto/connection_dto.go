package dto

import (
	"encoding/json"
	"time"
)

// ConnectionInfo 连接信息（凭证不下发）
type ConnectionInfo struct {
	ID             int64           `json:"id"`
	PlatformName   string          `json:"platform_name"`
	Status         string          `json:"status"`
	TokenExpiresAt *time.Time      `json:"token_expires_at"`
	ConnectionData json.RawMessage `json:"connection_data,omitempty"`
	ConnectedAt    *time.Time      `json:"connected_at"`
	LastSyncAt     *time.Time      `json:"last_sync_at"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AuthURLResponse 授权跳转链接响应
type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
}

// TestConnectionResponse 连接探活响应
type TestConnectionResponse struct {
	Valid      bool            `json:"valid"`
	Connection *ConnectionInfo `json:"connection"`
}

package utils

import (
	"time"

	"github.com/go-resty/resty/v2"
)

// NewAPIClient 创建配置好超时的 Resty 客户端
// 全系统出站请求统一走这里
func NewAPIClient(timeout time.Duration) *resty.Client {
	return resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "Lazada-Sync-Go/1.0")
}

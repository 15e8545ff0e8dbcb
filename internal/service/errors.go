package service

import (
	"errors"
	"fmt"
)

// 同步前置条件错误（哨兵值，controller 侧映射为 400）
var (
	// ErrNoConnection 商家没有处于 active 状态的平台连接
	ErrNoConnection = errors.New("no active platform connection found for merchant")
	// ErrConnectionInvalid 连接校验/刷新失败
	ErrConnectionInvalid = errors.New("failed to validate platform connection")
	// ErrNotYetSynced 商品尚未在平台建档，无法做存量更新
	ErrNotYetSynced = errors.New("product not synced with platform yet")
)

// 商品/账号业务错误
var (
	// ErrInsufficientStock 扣减数量超过当前库存
	ErrInsufficientStock = errors.New("insufficient stock for this operation")
	// ErrSKUTaken SKU 已被占用（全局唯一）
	ErrSKUTaken = errors.New("the sku has already been taken")
	// ErrEmailTaken 邮箱已注册
	ErrEmailTaken = errors.New("the email has already been taken")
	// ErrInvalidCredentials 登录凭证错误
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive 账号已停用
	ErrAccountInactive = errors.New("account is inactive")
	// ErrPasswordIncorrect 原密码不匹配
	ErrPasswordIncorrect = errors.New("current password is incorrect")
)

// UpstreamError 平台侧拒绝（HTTP 非 2xx 或业务码非 0）
type UpstreamError struct {
	// Auth 为 true 表示发生在 OAuth 握手/刷新阶段
	Auth       bool
	HTTPStatus int
	Code       string // 平台返回的业务错误码
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Auth {
		return fmt.Sprintf("lazada auth error (status %d, code %s): %s", e.HTTPStatus, e.Code, e.Message)
	}
	return fmt.Sprintf("lazada api error (status %d, code %s): %s", e.HTTPStatus, e.Code, e.Message)
}

// IsUpstreamError 是否为平台侧错误（sync worker 据此判断可否重试）
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
	"lazada_sync_v1_202608/pkg/utils"
)

// Lazada 开放平台端点
const (
	lazadaEndpointTokenCreate   = "/auth/token/create"
	lazadaEndpointTokenRefresh  = "/auth/token/refresh"
	lazadaEndpointSellerGet     = "/seller/get"
	lazadaEndpointProductCreate = "/product/create"
	lazadaEndpointProductUpdate = "/product/update"
	lazadaEndpointStockUpdate   = "/product/price_quantity/update"
)

// LazadaConfig 平台应用配置，构造时注入，无全局状态
type LazadaConfig struct {
	APIBaseURL  string // 如 https://api.lazada.com/rest
	AuthBaseURL string // 如 https://auth.lazada.com
	AppKey      string
	AppSecret   string
	RedirectURI string
	Timeout     time.Duration
}

// LazadaService 平台客户端：OAuth 握手 + 签名业务调用
type LazadaService struct {
	cfg      *LazadaConfig
	client   *resty.Client
	connRepo repository.ConnectionRepository

	// 每个连接一把锁，避免并发任务同时刷新同一份 Token
	refreshMu sync.Map
}

// NewLazadaService 工厂方法
func NewLazadaService(cfg *LazadaConfig, connRepo repository.ConnectionRepository) *LazadaService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &LazadaService{
		cfg:      cfg,
		client:   utils.NewAPIClient(cfg.Timeout),
		connRepo: connRepo,
	}
}

// ==================== OAuth ====================

// authState 授权跳转携带的 state，base64(JSON)，回调时无损还原
type authState struct {
	MerchantID int64 `json:"merchant_id"`
}

// AuthorizationURL 生成授权跳转链接
func (s *LazadaService) AuthorizationURL(merchantID int64) string {
	raw, _ := json.Marshal(authState{MerchantID: merchantID})

	params := url.Values{}
	params.Set("response_type", "code")
	params.Set("force_auth", "true")
	params.Set("redirect_uri", s.cfg.RedirectURI)
	params.Set("client_id", s.cfg.AppKey)
	params.Set("state", base64.StdEncoding.EncodeToString(raw))

	return s.cfg.AuthBaseURL + "/oauth/authorize?" + params.Encode()
}

// DecodeState 还原 state 中的商家 ID
func (s *LazadaService) DecodeState(state string) (int64, error) {
	raw, err := base64.StdEncoding.DecodeString(state)
	if err != nil {
		return 0, fmt.Errorf("invalid state parameter: %w", err)
	}
	var st authState
	if err := json.Unmarshal(raw, &st); err != nil || st.MerchantID == 0 {
		return 0, errors.New("invalid state parameter")
	}
	return st.MerchantID, nil
}

// TokenResult 换取/刷新 Token 的结果
type TokenResult struct {
	AccessToken     string
	RefreshToken    string
	ExpiresIn       int
	AccountPlatform string
	CountryUserInfo json.RawMessage
}

type lazadaTokenResp struct {
	Code            string          `json:"code"`
	Message         string          `json:"message"`
	AccessToken     string          `json:"access_token"`
	RefreshToken    string          `json:"refresh_token"`
	ExpiresIn       int             `json:"expires_in"`
	AccountPlatform string          `json:"account_platform"`
	CountryUserInfo json.RawMessage `json:"country_user_info"`
}

// ExchangeCodeForToken 授权码换 Token
func (s *LazadaService) ExchangeCodeForToken(ctx context.Context, code string) (*TokenResult, error) {
	params := map[string]string{
		"grant_type":    "authorization_code",
		"code":          code,
		"redirect_uri":  s.cfg.RedirectURI,
		"client_id":     s.cfg.AppKey,
		"client_secret": s.cfg.AppSecret,
		"timestamp":     s.timestamp(),
	}
	params["sign"] = s.sign("POST", lazadaEndpointTokenCreate, params)

	res, err := s.postTokenEndpoint(ctx, lazadaEndpointTokenCreate, params)
	if err != nil {
		log.Printf("[Lazada] 授权码换 Token 失败: %v", err)
		return nil, err
	}

	platform := res.AccountPlatform
	if platform == "" {
		platform = model.PlatformLazada
	}
	return &TokenResult{
		AccessToken:     res.AccessToken,
		RefreshToken:    res.RefreshToken,
		ExpiresIn:       res.ExpiresIn,
		AccountPlatform: platform,
		CountryUserInfo: res.CountryUserInfo,
	}, nil
}

// RefreshToken 刷新 Token。平台响应缺省 refresh_token 时沿用旧值
func (s *LazadaService) RefreshToken(ctx context.Context, refreshToken string) (*TokenResult, error) {
	params := map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     s.cfg.AppKey,
		"client_secret": s.cfg.AppSecret,
		"refresh_token": refreshToken,
		"timestamp":     s.timestamp(),
	}
	params["sign"] = s.sign("POST", lazadaEndpointTokenRefresh, params)

	res, err := s.postTokenEndpoint(ctx, lazadaEndpointTokenRefresh, params)
	if err != nil {
		log.Printf("[Lazada] Token 刷新失败: %v", err)
		return nil, err
	}

	newRefresh := res.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}
	return &TokenResult{
		AccessToken:  res.AccessToken,
		RefreshToken: newRefresh,
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// postTokenEndpoint 发送 OAuth 表单请求并做统一错误判定
func (s *LazadaService) postTokenEndpoint(ctx context.Context, endpoint string, params map[string]string) (*lazadaTokenResp, error) {
	var res lazadaTokenResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(params).
		SetResult(&res).
		Post(s.cfg.AuthBaseURL + "/rest" + endpoint)

	if err != nil {
		return nil, fmt.Errorf("lazada token request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &UpstreamError{
			Auth:       true,
			HTTPStatus: resp.StatusCode(),
			Message:    resp.String(),
		}
	}
	// 平台业务码非 "0" 一律视为失败
	if res.Code != "" && res.Code != "0" {
		return nil, &UpstreamError{
			Auth:       true,
			HTTPStatus: resp.StatusCode(),
			Code:       res.Code,
			Message:    res.Message,
		}
	}
	return &res, nil
}

// ==================== 签名业务调用 ====================

// Request 发送签名请求。accessToken 为空则只带系统参数
func (s *LazadaService) Request(ctx context.Context, endpoint string, params map[string]string, method, accessToken string) (map[string]interface{}, error) {
	allParams := map[string]string{
		"app_key":     s.cfg.AppKey,
		"timestamp":   s.timestamp(),
		"sign_method": "sha256",
	}
	if accessToken != "" {
		allParams["access_token"] = accessToken
	}
	for k, v := range params {
		allParams[k] = v
	}
	allParams["sign"] = s.sign(method, endpoint, allParams)

	req := s.client.R().SetContext(ctx)

	var resp *resty.Response
	var err error
	if method == "GET" {
		resp, err = req.SetQueryParams(allParams).Get(s.cfg.APIBaseURL + endpoint)
	} else {
		resp, err = req.SetFormData(allParams).Post(s.cfg.APIBaseURL + endpoint)
	}

	if err != nil {
		log.Printf("[Lazada] 请求 %s 失败: %v", endpoint, err)
		return nil, fmt.Errorf("lazada api request failed: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, &UpstreamError{
			HTTPStatus: resp.StatusCode(),
			Message:    resp.String(),
		}
	}

	var data map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &data); err != nil {
		return nil, fmt.Errorf("lazada response decode failed: %w", err)
	}
	if code, ok := data["code"].(string); ok && code != "0" {
		msg := "Unknown error"
		if m, ok := data["message"].(string); ok && m != "" {
			msg = m
		}
		return nil, &UpstreamError{
			HTTPStatus: resp.StatusCode(),
			Code:       code,
			Message:    msg,
		}
	}
	return data, nil
}

// GetSellerInfo 查询卖家信息（也用作连接探活）
func (s *LazadaService) GetSellerInfo(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	return s.Request(ctx, lazadaEndpointSellerGet, nil, "GET", accessToken)
}

// CreateProduct 平台建档。嵌套结构以 payload JSON 字符串整体上送
func (s *LazadaService) CreateProduct(ctx context.Context, productData map[string]interface{}, accessToken string) (map[string]interface{}, error) {
	return s.postPayload(ctx, lazadaEndpointProductCreate, productData, accessToken)
}

// UpdateProduct 平台更新
func (s *LazadaService) UpdateProduct(ctx context.Context, productData map[string]interface{}, accessToken string) (map[string]interface{}, error) {
	return s.postPayload(ctx, lazadaEndpointProductUpdate, productData, accessToken)
}

// UpdateStock 价格/库存更新
func (s *LazadaService) UpdateStock(ctx context.Context, stockData map[string]interface{}, accessToken string) (map[string]interface{}, error) {
	return s.postPayload(ctx, lazadaEndpointStockUpdate, stockData, accessToken)
}

func (s *LazadaService) postPayload(ctx context.Context, endpoint string, body map[string]interface{}, accessToken string) (map[string]interface{}, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("payload encode failed: %w", err)
	}
	return s.Request(ctx, endpoint, map[string]string{"payload": string(raw)}, "POST", accessToken)
}

// ==================== 连接校验 ====================

// ValidateAndRefresh 校验连接可用性，临期则先刷新再探活。
// 任何失败都会把连接标记为 error 并返回 false，不向外抛错。
func (s *LazadaService) ValidateAndRefresh(ctx context.Context, conn *model.PlatformConnection) bool {
	// 同一连接的刷新串行化，防止并发任务互相覆盖 Token
	mu := s.lockFor(conn.ID)
	mu.Lock()
	defer mu.Unlock()

	if conn.IsTokenExpiringSoon() {
		log.Printf("[Lazada] 商家 %d 的 Token 即将过期，执行刷新", conn.MerchantID)

		tok, err := s.RefreshToken(ctx, conn.RefreshToken)
		if err != nil {
			s.markConnectionError(ctx, conn, err.Error())
			return false
		}

		now := time.Now()
		expiresAt := now.Add(time.Duration(tok.ExpiresIn) * time.Second)
		conn.AccessToken = tok.AccessToken
		conn.RefreshToken = tok.RefreshToken
		conn.TokenExpiresAt = &expiresAt
		conn.LastSyncAt = &now
		conn.Status = model.ConnectionStatusActive

		err = s.connRepo.UpdateFields(ctx, conn.ID, map[string]interface{}{
			"access_token":     conn.AccessToken,
			"refresh_token":    conn.RefreshToken,
			"token_expires_at": conn.TokenExpiresAt,
			"last_sync_at":     conn.LastSyncAt,
			"status":           conn.Status,
		})
		if err != nil {
			s.markConnectionError(ctx, conn, err.Error())
			return false
		}
	}

	// 探活：拉一次卖家信息确认 Token 真实可用
	if _, err := s.GetSellerInfo(ctx, conn.AccessToken); err != nil {
		log.Printf("[Lazada] 商家 %d 连接探活失败: %v", conn.MerchantID, err)
		s.markConnectionError(ctx, conn, err.Error())
		return false
	}
	return true
}

// markConnectionError 标记连接异常并记录错误详情
func (s *LazadaService) markConnectionError(ctx context.Context, conn *model.PlatformConnection, message string) {
	info := conn.Info()
	info.LastError = &model.ConnectionErr{Message: message, Timestamp: time.Now()}
	conn.SetInfo(info)
	conn.Status = model.ConnectionStatusError

	err := s.connRepo.UpdateFields(ctx, conn.ID, map[string]interface{}{
		"status":          conn.Status,
		"connection_data": conn.ConnectionData,
	})
	if err != nil {
		log.Printf("[Lazada] 连接 %d 状态落库失败: %v", conn.ID, err)
	}
}

func (s *LazadaService) lockFor(connID int64) *sync.Mutex {
	v, _ := s.refreshMu.LoadOrStore(connID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ==================== 商品报文转换 ====================

// ProductFields 送往平台前的扁平商品字段
type ProductFields struct {
	Name        string
	Description string
	Price       float64
	SKU         string
	Stock       int
	ImageURL    string
	Status      string

	// 可选字段，空值由 TransformProduct 填默认
	CategoryID    string
	SpuID         string
	Brand         string
	Model         string
	WarrantyType  string
	Warranty      string
	PackageLength string
	PackageHeight string
	PackageWidth  string
	PackageWeight string
}

// TransformProduct 映射为平台嵌套商品报文。纯函数，不发网络请求
func (s *LazadaService) TransformProduct(f ProductFields) map[string]interface{} {
	category := defaultStr(f.CategoryID, "1")
	image := defaultStr(f.ImageURL, "https://via.placeholder.com/300x300")

	product := map[string]interface{}{
		"PrimaryCategory": category,
		"AssociatedSku":   f.SKU,
		"Attributes": map[string]interface{}{
			"name":          f.Name,
			"description":   f.Description,
			"brand":         defaultStr(f.Brand, "No Brand"),
			"model":         defaultStr(f.Model, "N/A"),
			"warranty_type": defaultStr(f.WarrantyType, "No Warranty"),
			"warranty":      defaultStr(f.Warranty, "1 Month"),
		},
		"Skus": []interface{}{
			map[string]interface{}{
				"SellerSku":      f.SKU,
				"quantity":       f.Stock,
				"price":          f.Price,
				"package_length": defaultStr(f.PackageLength, "10"),
				"package_height": defaultStr(f.PackageHeight, "10"),
				"package_width":  defaultStr(f.PackageWidth, "10"),
				"package_weight": defaultStr(f.PackageWeight, "0.5"),
				"Images":         []interface{}{image},
			},
		},
	}
	if f.SpuID != "" {
		product["SPUId"] = f.SpuID
	}

	return map[string]interface{}{
		"Request": map[string]interface{}{
			"Product": product,
		},
	}
}

// ==================== 签名 ====================

// sign 计算请求签名：method + endpoint + 按 key 升序的 key||value 拼接，
// HMAC-SHA256 后取大写十六进制。参数顺序敏感，排序不能省
func (s *LazadaService) sign(method, endpoint string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(method)
	b.WriteString(endpoint)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(params[k])
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.AppSecret))
	mac.Write([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

// timestamp 毫秒时间戳字符串
func (s *LazadaService) timestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

func defaultStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

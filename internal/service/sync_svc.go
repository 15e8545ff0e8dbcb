package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
)

// ==================== 任务定义 ====================

// SyncJob 单个商品的同步任务
type SyncJob struct {
	ID         uuid.UUID        `json:"id"`
	ProductID  int64            `json:"product_id"`
	MerchantID int64            `json:"merchant_id"`
	Action     model.SyncAction `json:"action"`
	Overrides  *SyncOverrides   `json:"overrides,omitempty"`
}

// SyncOverrides 本次同步覆盖的商品字段，nil 字段用商品当前值
type SyncOverrides struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Stock       *int     `json:"stock,omitempty"`
	Status      *string  `json:"status,omitempty"`
}

// NewSyncJob 构造同步任务
func NewSyncJob(merchantID, productID int64, action model.SyncAction, overrides *SyncOverrides) *SyncJob {
	return &SyncJob{
		ID:         uuid.New(),
		ProductID:  productID,
		MerchantID: merchantID,
		Action:     action,
		Overrides:  overrides,
	}
}

// ==================== 接口定义 ====================

// SyncService 商品同步执行器
type SyncService interface {
	// Execute 执行一次同步。无论成败都会落一条流水并更新商品同步元数据
	Execute(ctx context.Context, job *SyncJob) error
	// HandlePermanentFailure 重试耗尽后的终态处理，可重复调用
	HandlePermanentFailure(ctx context.Context, job *SyncJob, cause error)
}

type syncService struct {
	productRepo repository.ProductRepository
	connRepo    repository.ConnectionRepository
	logRepo     repository.SyncLogRepository
	lazada      *LazadaService
}

// NewSyncService 创建同步执行器
func NewSyncService(
	productRepo repository.ProductRepository,
	connRepo repository.ConnectionRepository,
	logRepo repository.SyncLogRepository,
	lazada *LazadaService,
) SyncService {
	return &syncService{
		productRepo: productRepo,
		connRepo:    connRepo,
		logRepo:     logRepo,
		lazada:      lazada,
	}
}

// ==================== 执行 ====================

// Execute 同步流程：取商品 → 找活跃连接 → 校验 Token → 按动作调平台 → 落元数据与流水
func (s *syncService) Execute(ctx context.Context, job *SyncJob) error {
	start := time.Now()

	if !job.Action.Valid() {
		return fmt.Errorf("unknown sync action: %s", job.Action)
	}

	product, err := s.productRepo.GetForMerchant(ctx, job.MerchantID, job.ProductID)
	if err != nil {
		// 商品都取不到就没法落商品元数据，只记流水
		s.logResult(ctx, job, model.SyncStatusFailed, "Product not found", nil, time.Since(start))
		return err
	}

	result, err := s.dispatch(ctx, job, product)

	// 成败都要回写商品同步元数据和流水
	s.markProductSync(ctx, job, product, result, err)
	if err != nil {
		s.logResult(ctx, job, model.SyncStatusFailed, err.Error(), result, time.Since(start))
		log.Printf("[Sync] 任务 %s 失败 (商品 %d, 动作 %s): %v", job.ID, job.ProductID, job.Action, err)
		return err
	}

	s.logResult(ctx, job, model.SyncStatusSuccess,
		fmt.Sprintf("Product %s synced successfully", job.Action), result, time.Since(start))
	log.Printf("[Sync] 任务 %s 完成 (商品 %d, 动作 %s)", job.ID, job.ProductID, job.Action)
	return nil
}

// dispatch 找连接、校验、按动作分发
func (s *syncService) dispatch(ctx context.Context, job *SyncJob, product *model.Product) (map[string]interface{}, error) {
	conn, err := s.connRepo.FindActive(ctx, job.MerchantID, model.PlatformLazada)
	if err != nil {
		return nil, ErrNoConnection
	}

	if !s.lazada.ValidateAndRefresh(ctx, conn) {
		return nil, ErrConnectionInvalid
	}

	fields := s.effectiveFields(product, job.Overrides)

	switch job.Action {
	case model.SyncActionCreate:
		return s.lazada.CreateProduct(ctx, s.lazada.TransformProduct(fields), conn.AccessToken)

	case model.SyncActionUpdate:
		return s.updateOnPlatform(ctx, product, fields, conn.AccessToken)

	case model.SyncActionStockUpdate:
		info := product.SyncInfo()
		if info.SellerSKU == "" {
			return nil, ErrNotYetSynced
		}
		payload := map[string]interface{}{
			"Request": map[string]interface{}{
				"Product": map[string]interface{}{
					"Skus": []interface{}{
						map[string]interface{}{
							"SellerSku": info.SellerSKU,
							"Quantity":  fields.Stock,
							"Price":     fields.Price,
						},
					},
				},
			},
		}
		return s.lazada.UpdateStock(ctx, payload, conn.AccessToken)

	case model.SyncActionDelete:
		// 平台侧不真删，改为下架（status=inactive 的更新）
		fields.Status = model.ProductStatusInactive
		return s.updateOnPlatform(ctx, product, fields, conn.AccessToken)
	}

	return nil, fmt.Errorf("unknown sync action: %s", job.Action)
}

// updateOnPlatform 已建档商品带 ItemId 更新
func (s *syncService) updateOnPlatform(ctx context.Context, product *model.Product, fields ProductFields, accessToken string) (map[string]interface{}, error) {
	payload := s.lazada.TransformProduct(fields)
	if info := product.SyncInfo(); info.ItemID != 0 {
		if req, ok := payload["Request"].(map[string]interface{}); ok {
			if p, ok := req["Product"].(map[string]interface{}); ok {
				p["ItemId"] = info.ItemID
			}
		}
	}
	return s.lazada.UpdateProduct(ctx, payload, accessToken)
}

// effectiveFields 商品字段 + 本次覆盖
func (s *syncService) effectiveFields(product *model.Product, o *SyncOverrides) ProductFields {
	fields := ProductFields{
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price,
		SKU:         product.SKU,
		Stock:       product.Stock,
		ImageURL:    product.ImageURL,
		Status:      product.Status,
	}
	if o == nil {
		return fields
	}
	if o.Name != nil {
		fields.Name = *o.Name
	}
	if o.Description != nil {
		fields.Description = *o.Description
	}
	if o.Price != nil {
		fields.Price = *o.Price
	}
	if o.Stock != nil {
		fields.Stock = *o.Stock
	}
	if o.Status != nil {
		fields.Status = *o.Status
	}
	return fields
}

// ==================== 元数据与流水 ====================

// markProductSync 回写商品 sync_data 与 last_synced_at。
// 失败也要落痕：last_sync_status=error + last_error
func (s *syncService) markProductSync(ctx context.Context, job *SyncJob, product *model.Product, result map[string]interface{}, syncErr error) {
	info := product.SyncInfo()
	info.LastSyncAction = string(job.Action)

	if syncErr != nil {
		info.LastSyncStatus = "error"
		info.LastError = syncErr.Error()
	} else {
		info.LastSyncStatus = "success"
		info.LastError = ""
		info.SellerSKU = product.SKU

		// 建档响应里带平台侧 item_id / sku_id。
		// sku_id 有扁平和 sku_list 两种返回形态，扁平优先
		if data, ok := result["data"].(map[string]interface{}); ok {
			if v, ok := data["item_id"].(float64); ok && v != 0 {
				info.ItemID = int64(v)
			}
			if v, ok := data["sku_id"].(float64); ok && v != 0 {
				info.SkuID = int64(v)
			} else if skus, ok := data["sku_list"].([]interface{}); ok && len(skus) > 0 {
				if sku, ok := skus[0].(map[string]interface{}); ok {
					if v, ok := sku["sku_id"].(float64); ok && v != 0 {
						info.SkuID = int64(v)
					}
				}
			}
		}
	}

	product.SetSyncInfo(info)
	now := time.Now()
	product.LastSyncedAt = &now

	err := s.productRepo.UpdateFields(ctx, product.ID, map[string]interface{}{
		"sync_data":      product.SyncData,
		"last_synced_at": product.LastSyncedAt,
	})
	if err != nil {
		log.Printf("[Sync] 商品 %d 同步元数据落库失败: %v", product.ID, err)
	}
}

// logResult 每次执行固定落一条流水
func (s *syncService) logResult(ctx context.Context, job *SyncJob, status, message string, result map[string]interface{}, elapsed time.Duration) {
	reqSnapshot := map[string]interface{}{
		"job_id":     job.ID.String(),
		"product_id": job.ProductID,
		"action":     string(job.Action),
	}
	if job.Overrides != nil {
		reqSnapshot["overrides"] = job.Overrides
	}
	reqData, _ := json.Marshal(reqSnapshot)

	var respData datatypes.JSON
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			respData = raw
		}
	}

	entry := &model.SyncLog{
		MerchantID:    job.MerchantID,
		ActionType:    job.Action.ActionType(),
		PlatformName:  model.PlatformLazada,
		Status:        status,
		Message:       message,
		RequestData:   reqData,
		ResponseData:  respData,
		AffectedItems: 1,
		Duration:      elapsed.Milliseconds(),
	}
	if err := s.logRepo.Append(ctx, entry); err != nil {
		log.Printf("[Sync] 流水落库失败 (任务 %s): %v", job.ID, err)
	}
}

// HandlePermanentFailure 重试耗尽后的兜底：确保商品元数据停在失败态
func (s *syncService) HandlePermanentFailure(ctx context.Context, job *SyncJob, cause error) {
	log.Printf("[Sync] 任务 %s 放弃重试 (商品 %d): %v", job.ID, job.ProductID, cause)

	product, err := s.productRepo.GetForMerchant(ctx, job.MerchantID, job.ProductID)
	if err != nil {
		return
	}

	info := product.SyncInfo()
	// Execute 已落过同样的失败态就不再重复写
	if info.LastSyncStatus == "error" && info.LastError == cause.Error() {
		return
	}
	s.markProductSync(ctx, job, product, nil, cause)
}

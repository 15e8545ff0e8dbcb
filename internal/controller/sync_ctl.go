package controller

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"lazada_sync_v1_202608/internal/api/dto"
	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
	"lazada_sync_v1_202608/internal/service"
	"lazada_sync_v1_202608/internal/task"
)

type SyncController struct {
	productService service.ProductService
	connService    service.ConnectionService
	logRepo        repository.SyncLogRepository
	workerPool     *task.SyncWorkerPool
}

func NewSyncController(
	productService service.ProductService,
	connService service.ConnectionService,
	logRepo repository.SyncLogRepository,
	workerPool *task.SyncWorkerPool,
) *SyncController {
	return &SyncController{
		productService: productService,
		connService:    connService,
		logRepo:        logRepo,
		workerPool:     workerPool,
	}
}

// ==================== 同步触发 ====================

// SyncProduct 触发商品同步
// @Summary 触发商品同步到 Lazada
// @Description 任务异步执行，接口立即返回任务 ID，结果看同步流水
// @Tags Sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.SyncProductRequest true "同步动作与覆盖字段"
// @Success 202 {object} dto.SyncAcceptedResponse
// @Failure 400 {object} map[string]string "没有有效的 Lazada 连接"
// @Failure 404 {object} map[string]string "商品不存在"
// @Failure 503 {object} map[string]string "队列已满"
// @Router /api/v1/products/{id}/sync [post]
func (ctrl *SyncController) SyncProduct(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req dto.SyncProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	merchantID := middleware.GetMerchantID(c)

	// 入队前确认商品归属，避免给别人的商品排任务
	if _, err := ctrl.productService.Get(c.Request.Context(), merchantID, id); err != nil {
		respondError(c, err)
		return
	}

	// 没有有效连接就不受理，注定失败的任务不进队列
	if _, err := ctrl.connService.ActiveConnection(c.Request.Context(), merchantID); err != nil {
		respondError(c, err)
		return
	}

	var overrides *service.SyncOverrides
	if req.Overrides != nil {
		overrides = &service.SyncOverrides{
			Name:        req.Overrides.Name,
			Description: req.Overrides.Description,
			Price:       req.Overrides.Price,
			Stock:       req.Overrides.Stock,
			Status:      req.Overrides.Status,
		}
	}

	job := service.NewSyncJob(merchantID, id, model.SyncAction(req.Action), overrides)
	if err := ctrl.workerPool.Enqueue(job); err != nil {
		if errors.Is(err, task.ErrQueueFull) {
			c.JSON(503, gin.H{"status": "error", "message": "Sync queue is full, try again later"})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(202, dto.SyncAcceptedResponse{
		JobID:     job.ID.String(),
		ProductID: id,
		Action:    req.Action,
	})
}

// BulkSync 批量触发商品同步
// @Summary 批量触发商品同步到 Lazada
// @Description 逐个入队，不存在或不属于当前商家的商品会被跳过
// @Tags Sync
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.BulkSyncRequest true "商品ID列表与同步动作"
// @Success 202 {object} dto.BulkSyncResponse
// @Failure 400 {object} map[string]string "没有有效的 Lazada 连接"
// @Failure 503 {object} map[string]string "队列已满"
// @Router /api/v1/sync/bulk [post]
func (ctrl *SyncController) BulkSync(c *gin.Context) {
	var req dto.BulkSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	merchantID := middleware.GetMerchantID(c)

	// 连接级前置条件只需检查一次
	if _, err := ctrl.connService.ActiveConnection(c.Request.Context(), merchantID); err != nil {
		respondError(c, err)
		return
	}

	// 一次查出归属本商家的商品，避免逐个点查
	products, err := ctrl.productService.ListByIDs(c.Request.Context(), merchantID, req.IDs)
	if err != nil {
		respondError(c, err)
		return
	}
	owned := make(map[int64]bool, len(products))
	for i := range products {
		owned[products[i].ID] = true
	}

	resp := dto.BulkSyncResponse{
		Accepted: make([]dto.SyncAcceptedResponse, 0, len(req.IDs)),
		Skipped:  make([]int64, 0),
	}

	queueFull := false
	for _, id := range req.IDs {
		if !owned[id] {
			resp.Skipped = append(resp.Skipped, id)
			continue
		}
		job := service.NewSyncJob(merchantID, id, model.SyncAction(req.Action), nil)
		if err := ctrl.workerPool.Enqueue(job); err != nil {
			if errors.Is(err, task.ErrQueueFull) {
				// 队列满后不再继续入队，剩余商品标记跳过
				queueFull = true
				resp.Skipped = append(resp.Skipped, id)
				continue
			}
			respondError(c, err)
			return
		}
		resp.Accepted = append(resp.Accepted, dto.SyncAcceptedResponse{
			JobID:     job.ID.String(),
			ProductID: id,
			Action:    req.Action,
		})
	}

	if queueFull && len(resp.Accepted) == 0 {
		c.JSON(503, gin.H{"status": "error", "message": "Sync queue is full, try again later"})
		return
	}
	c.JSON(202, resp)
}

// ==================== 流水查询 ====================

func toSyncLogInfo(l *model.SyncLog) *dto.SyncLogInfo {
	return &dto.SyncLogInfo{
		ID:            l.ID,
		ActionType:    l.ActionType,
		PlatformName:  l.PlatformName,
		Status:        l.Status,
		Message:       l.Message,
		RequestData:   json.RawMessage(l.RequestData),
		ResponseData:  json.RawMessage(l.ResponseData),
		AffectedItems: l.AffectedItems,
		Duration:      l.Duration,
		CreatedAt:     l.CreatedAt,
	}
}

// ListLogs 同步流水列表
// @Summary 获取同步流水
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param platform query string false "平台筛选"
// @Param status query string false "状态筛选"
// @Param action_type query string false "动作筛选"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(20)
// @Success 200 {object} dto.SyncLogListResponse
// @Router /api/v1/sync/logs [get]
func (ctrl *SyncController) ListLogs(c *gin.Context) {
	var req dto.SyncLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	logs, total, err := ctrl.logRepo.List(c.Request.Context(), repository.SyncLogFilter{
		MerchantID: middleware.GetMerchantID(c),
		Platform:   req.Platform,
		Status:     req.Status,
		ActionType: req.ActionType,
		Page:       req.Page,
		PerPage:    req.PerPage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]*dto.SyncLogInfo, 0, len(logs))
	for i := range logs {
		list = append(list, toSyncLogInfo(&logs[i]))
	}
	c.JSON(200, dto.SyncLogListResponse{
		List:    list,
		Total:   total,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
}

// ProductLogs 单商品最近流水
// @Summary 获取单个商品的同步历史
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param limit query int false "条数" default(10)
// @Success 200 {array} dto.SyncLogInfo
// @Router /api/v1/products/{id}/sync/logs [get]
func (ctrl *SyncController) ProductLogs(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	logs, err := ctrl.logRepo.ListByProduct(c.Request.Context(), middleware.GetMerchantID(c), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]*dto.SyncLogInfo, 0, len(logs))
	for i := range logs {
		list = append(list, toSyncLogInfo(&logs[i]))
	}
	c.JSON(200, gin.H{"status": "success", "data": list})
}

// SyncStatus 单商品同步状态
// @Summary 获取单个商品的同步状态
// @Description 返回平台侧同步结果快照与最近几条流水
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} dto.ProductSyncStatus
// @Failure 404 {object} map[string]string "商品不存在"
// @Router /api/v1/products/{id}/sync/status [get]
func (ctrl *SyncController) SyncStatus(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	merchantID := middleware.GetMerchantID(c)
	product, err := ctrl.productService.Get(c.Request.Context(), merchantID, id)
	if err != nil {
		respondError(c, err)
		return
	}

	logs, err := ctrl.logRepo.ListByProduct(c.Request.Context(), merchantID, id, 5)
	if err != nil {
		respondError(c, err)
		return
	}
	recent := make([]*dto.SyncLogInfo, 0, len(logs))
	for i := range logs {
		recent = append(recent, toSyncLogInfo(&logs[i]))
	}

	c.JSON(200, gin.H{"status": "success", "data": dto.ProductSyncStatus{
		ProductID:    product.ID,
		IsSynced:     product.IsSynced(),
		LastSyncedAt: product.LastSyncedAt,
		SyncData:     json.RawMessage(product.SyncData),
		RecentLogs:   recent,
	}})
}

// SyncStats 同步统计
// @Summary 获取同步统计数据
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} repository.SyncLogStats
// @Router /api/v1/sync/statistics [get]
func (ctrl *SyncController) SyncStats(c *gin.Context) {
	stats, err := ctrl.logRepo.Stats(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": stats})
}

// ==================== 看板 ====================

// Dashboard 商家看板统计
// @Summary 获取商家看板统计
// @Description 汇总商品、连接、近期同步的统计数据
// @Tags Sync
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Router /api/v1/dashboard [get]
func (ctrl *SyncController) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	merchantID := middleware.GetMerchantID(c)

	productStats, err := ctrl.productService.Stats(ctx, merchantID)
	if err != nil {
		respondError(c, err)
		return
	}
	connStats, err := ctrl.connService.Stats(ctx, merchantID)
	if err != nil {
		respondError(c, err)
		return
	}
	syncStats, err := ctrl.logRepo.Stats(ctx, merchantID)
	if err != nil {
		respondError(c, err)
		return
	}
	total, synced, err := ctrl.productService.SyncedCount(ctx, merchantID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(200, dto.DashboardResponse{
		Products:    productStats,
		Connections: connStats,
		Syncs:       syncStats,
		Coverage:    dto.SyncCoverage{TotalProducts: total, SyncedProducts: synced},
	})
}

package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"lazada_sync_v1_202608/internal/api/dto"
	"lazada_sync_v1_202608/internal/middleware"
	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
	"lazada_sync_v1_202608/internal/service"
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

func toProductInfo(p *model.Product) *dto.ProductInfo {
	tags := []string(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &dto.ProductInfo{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		SKU:          p.SKU,
		Stock:        p.Stock,
		StockStatus:  p.StockStatus(),
		ImageURL:     p.ImageURL,
		Tags:         tags,
		Status:       p.Status,
		IsSynced:     p.IsSynced(),
		LastSyncedAt: p.LastSyncedAt,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(400, gin.H{"status": "error", "message": "Invalid product ID"})
		return 0, false
	}
	return id, true
}

// ==================== 查询接口 ====================

// List 商品列表
// @Summary 获取商品列表
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态筛选"
// @Param stock query string false "库存档位筛选"
// @Param search query string false "名称/SKU/描述搜索"
// @Param page query int false "页码" default(1)
// @Param per_page query int false "每页数量" default(15)
// @Success 200 {object} dto.ProductListResponse
// @Router /api/v1/products [get]
func (ctrl *ProductController) List(c *gin.Context) {
	var req dto.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	products, total, err := ctrl.productService.List(c.Request.Context(), repository.ProductFilter{
		MerchantID:  middleware.GetMerchantID(c),
		Status:      req.Status,
		StockFilter: req.StockFilter,
		Search:      req.Search,
		SortBy:      req.SortBy,
		SortOrder:   req.SortOrder,
		Page:        req.Page,
		PerPage:     req.PerPage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]*dto.ProductInfo, 0, len(products))
	for i := range products {
		list = append(list, toProductInfo(&products[i]))
	}
	c.JSON(200, dto.ProductListResponse{
		List:    list,
		Total:   total,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
}

// Get 商品详情
// @Summary 获取商品详情
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} dto.ProductInfo
// @Failure 404 {object} map[string]string "商品不存在"
// @Router /api/v1/products/{id} [get]
func (ctrl *ProductController) Get(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	product, err := ctrl.productService.Get(c.Request.Context(), middleware.GetMerchantID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": toProductInfo(product)})
}

// Stats 商品统计
// @Summary 获取商品统计信息
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Success 200 {object} repository.ProductStats
// @Router /api/v1/products/statistics [get]
func (ctrl *ProductController) Stats(c *gin.Context) {
	stats, err := ctrl.productService.Stats(c.Request.Context(), middleware.GetMerchantID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": stats})
}

// ==================== 写接口 ====================

// Create 创建商品
// @Summary 创建商品
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CreateProductRequest true "商品字段"
// @Success 201 {object} dto.ProductInfo
// @Failure 422 {object} map[string]string "SKU 已被占用/参数错误"
// @Router /api/v1/products [post]
func (ctrl *ProductController) Create(c *gin.Context) {
	var req dto.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	product, err := ctrl.productService.Create(c.Request.Context(), middleware.GetMerchantID(c), &service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SKU:         req.SKU,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(201, gin.H{"status": "success", "data": toProductInfo(product)})
}

// Update 更新商品
// @Summary 更新商品
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.UpdateProductRequest true "更新字段"
// @Success 200 {object} dto.ProductInfo
// @Router /api/v1/products/{id} [put]
func (ctrl *ProductController) Update(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req dto.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	product, err := ctrl.productService.Update(c.Request.Context(), middleware.GetMerchantID(c), id, &service.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		SKU:         req.SKU,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": toProductInfo(product)})
}

// Delete 删除商品
// @Summary 删除商品
// @Tags Product
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Success 200 {object} map[string]string
// @Router /api/v1/products/{id} [delete]
func (ctrl *ProductController) Delete(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	if err := ctrl.productService.Delete(c.Request.Context(), middleware.GetMerchantID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "message": "Product deleted successfully"})
}

// ==================== 库存接口 ====================

// SetStock 库存置值
// @Summary 设置商品库存
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.SetStockRequest true "库存值"
// @Success 200 {object} dto.ProductInfo
// @Router /api/v1/products/{id}/stock [put]
func (ctrl *ProductController) SetStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req dto.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	product, err := ctrl.productService.SetStock(c.Request.Context(), middleware.GetMerchantID(c), id, req.Stock)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": toProductInfo(product)})
}

// AdjustStock 库存增减
// @Summary 增减商品库存
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "商品ID"
// @Param body body dto.AdjustStockRequest true "增减量，负数为扣减"
// @Success 200 {object} dto.ProductInfo
// @Failure 422 {object} map[string]string "库存不足"
// @Router /api/v1/products/{id}/stock/adjust [post]
func (ctrl *ProductController) AdjustStock(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	product, err := ctrl.productService.AdjustStock(c.Request.Context(), middleware.GetMerchantID(c), id, req.Delta)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "data": toProductInfo(product)})
}

// BulkStatus 批量状态更新
// @Summary 批量更新商品状态
// @Tags Product
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.BulkStatusRequest true "商品ID列表与目标状态"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/products/bulk/status [post]
func (ctrl *ProductController) BulkStatus(c *gin.Context) {
	var req dto.BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(422, gin.H{"status": "error", "message": err.Error()})
		return
	}

	affected, err := ctrl.productService.BulkUpdateStatus(c.Request.Context(),
		middleware.GetMerchantID(c), req.IDs, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(200, gin.H{"status": "success", "affected": affected})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/response"
	historyservice "github.com/weiwangfds/structview/internal/service/history"
	mirrorservice "github.com/weiwangfds/structview/internal/service/mirror"
)

// Version 服务版本，构建时可通过 -ldflags 覆盖
var Version = "1.0.0"

// SystemHandler 系统信息与诊断处理器
type SystemHandler struct {
	cfg            *config.Config
	historyService historyservice.HistoryService
	mirror         *mirrorservice.Service
}

// NewSystemHandler 创建系统处理器实例，mirror 可以为nil
func NewSystemHandler(cfg *config.Config, historyService historyservice.HistoryService, mirror *mirrorservice.Service) *SystemHandler {
	return &SystemHandler{cfg: cfg, historyService: historyService, mirror: mirror}
}

// Health 健康检查
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is running",
	})
}

// Info 服务基础信息
// @Summary 服务信息
// @Tags 系统
// @Produce json
// @Router /api/v1/info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	info := gin.H{
		"service":        "StructView",
		"version":        Version,
		"backend":        h.cfg.Storage.Backend,
		"id_policy":      h.cfg.Storage.IDPolicy,
		"max_file_size":  h.cfg.Storage.MaxFileSize,
		"extensions":     h.cfg.Storage.AllowedExtensions,
		"mirror_enabled": h.mirror != nil,
	}
	if h.mirror != nil {
		info["mirror"] = h.mirror.Stats()
	}
	response.Success(c, info)
}

// Consistency 比对账本与文件目录
// @Summary 一致性检查
// @Tags 系统
// @Produce json
// @Failure 503 {object} response.Response "元数据存储不可用"
// @Router /api/v1/system/consistency [get]
func (h *SystemHandler) Consistency(c *gin.Context) {
	report, err := h.historyService.Check(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"healthy": report.Healthy(),
		"report":  report,
	})
}

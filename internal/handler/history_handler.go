package handler

import (
	"errors"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/weiwangfds/structview/internal/errors"
	"github.com/weiwangfds/structview/internal/response"
	historyservice "github.com/weiwangfds/structview/internal/service/history"
)

const (
	// MMCIFContentType 在线查看时返回的内容类型
	MMCIFContentType = "chemical/x-mmcif"
	// DefaultDownloadName 原始文件名不可用时的下载文件名
	DefaultDownloadName = "download.cif"

	// multipartOverhead 请求体上限在文件大小之外预留给表单边界和头部的空间
	multipartOverhead = 64 << 10
)

// HistoryHandler 上传历史处理器
// 上传、列表、查看、下载接口与前端约定为裸JSON或原始文件内容，错误使用统一信封
type HistoryHandler struct {
	historyService historyservice.HistoryService
	maxBodySize    int64
}

// NewHistoryHandler 创建上传历史处理器实例
// maxFileSize 为单个文件的大小上限，<=0 时不限制请求体
func NewHistoryHandler(historyService historyservice.HistoryService, maxFileSize int64) *HistoryHandler {
	h := &HistoryHandler{historyService: historyService}
	if maxFileSize > 0 {
		h.maxBodySize = maxFileSize + multipartOverhead
	}
	return h
}

// Upload 上传结构文件
// @Summary 上传结构文件
// @Tags 上传历史
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "mmCIF文件"
// @Success 200 {object} database.HistoryItem
// @Failure 413 {object} response.Response "文件大小超限"
// @Router /api/upload [post]
func (h *HistoryHandler) Upload(c *gin.Context) {
	// 超限的请求体在解析表单时即失败，不会整体落盘
	if h.maxBodySize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodySize)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperrors.ErrFileSizeTooLargeError)
			return
		}
		response.BadRequest(c, "missing multipart field \"file\"")
		return
	}

	src, err := file.Open()
	if err != nil {
		response.Error(c, apperrors.Wrap(apperrors.ErrFileUploadFailed, err))
		return
	}
	defer src.Close()

	item, err := h.historyService.Ingest(c.Request.Context(), file.Filename, src)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// List 按时间倒序列出上传历史
// @Summary 上传历史
// @Tags 上传历史
// @Produce json
// @Success 200 {array} database.HistoryItem
// @Failure 503 {object} response.Response "元数据存储不可用"
// @Router /api/history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	items, err := h.historyService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get 获取单条记录
// @Summary 获取上传记录
// @Tags 上传历史
// @Produce json
// @Param id path string true "记录ID"
// @Success 200 {object} database.HistoryItem
// @Failure 404 {object} response.Response
// @Router /api/history/{id} [get]
func (h *HistoryHandler) Get(c *gin.Context) {
	item, err := h.historyService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// View 返回文件内容供浏览器内查看器加载
// @Summary 查看结构文件
// @Tags 上传历史
// @Produce chemical/x-mmcif
// @Param id path string true "记录ID"
// @Failure 404 {object} response.Response
// @Router /api/view/{id} [get]
func (h *HistoryHandler) View(c *gin.Context) {
	item, path, err := h.historyService.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", MMCIFContentType)
	c.Header("Content-Disposition", contentDisposition("inline", item.OriginalName))
	c.File(path)
}

// Download 以附件形式下载文件，文件名为上传时的原始文件名
// @Summary 下载结构文件
// @Tags 上传历史
// @Produce application/octet-stream
// @Param id path string true "记录ID"
// @Failure 404 {object} response.Response
// @Router /api/download/{id} [get]
func (h *HistoryHandler) Download(c *gin.Context) {
	item, path, err := h.historyService.Resolve(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", contentDisposition("attachment", item.OriginalName))
	c.File(path)
}

// contentDisposition 生成安全的 Content-Disposition 值
// 文件名去掉目录、控制字符和引号，非ASCII字符按 RFC 2231 编码
func contentDisposition(dispositionType, originalName string) string {
	name := historyservice.SanitizeName(originalName)
	if name == "" {
		name = DefaultDownloadName
	}
	if v := mime.FormatMediaType(dispositionType, map[string]string{"filename": name}); v != "" {
		return v
	}
	return dispositionType + `; filename="` + DefaultDownloadName + `"`
}

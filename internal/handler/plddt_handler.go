package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/structview/internal/plddt"
	"github.com/weiwangfds/structview/internal/response"
)

// PlddtHandler pLDDT 置信度图例处理器
type PlddtHandler struct{}

// NewPlddtHandler 创建置信度图例处理器实例
func NewPlddtHandler() *PlddtHandler {
	return &PlddtHandler{}
}

// Legend 返回全部置信度区间
// @Summary pLDDT 图例
// @Tags 置信度
// @Produce json
// @Router /api/v1/plddt/legend [get]
func (h *PlddtHandler) Legend(c *gin.Context) {
	response.Success(c, plddt.Legend())
}

// Band 返回给定 pLDDT 值所在的区间
// @Summary pLDDT 分级
// @Tags 置信度
// @Produce json
// @Param value query number true "pLDDT (0-100)"
// @Failure 400 {object} response.Response
// @Router /api/v1/plddt/band [get]
func (h *PlddtHandler) Band(c *gin.Context) {
	raw := c.Query("value")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		response.BadRequest(c, "value must be a number")
		return
	}
	if err := plddt.Validate(value); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	band := plddt.Classify(value)
	response.Success(c, gin.H{
		"value": value,
		"band":  band.Name,
		"color": band.Color,
	})
}

// Package plddt 将结构预测的 pLDDT 置信度映射到图例中的区间与颜色
package plddt

import (
	"errors"
	"fmt"
)

// 置信度区间名称
const (
	VeryHigh  = "Very high"
	Confident = "Confident"
	Low       = "Low"
	VeryLow   = "Very low"
)

// ErrOutOfRange pLDDT 不在 [0, 100] 区间内
var ErrOutOfRange = errors.New("plddt: value out of range [0, 100]")

// Band 置信度区间
type Band struct {
	Name  string  `json:"band"`
	Color string  `json:"color"`
	Lower float64 `json:"lower"` // 下界（不含），VeryLow 为0且包含
}

var legend = []Band{
	{Name: VeryHigh, Color: "#0053D6", Lower: 90},
	{Name: Confident, Color: "#00C9FF", Lower: 70},
	{Name: Low, Color: "#FFE71A", Lower: 50},
	{Name: VeryLow, Color: "#FF9100", Lower: 0},
}

// Classify 返回 v 所在的区间，下界不含：90 属于 Confident
func Classify(v float64) Band {
	for _, b := range legend[:len(legend)-1] {
		if v > b.Lower {
			return b
		}
	}
	return legend[len(legend)-1]
}

// Validate 检查 v 是否是合法的 pLDDT 值
func Validate(v float64) error {
	if v != v || v < 0 || v > 100 {
		return fmt.Errorf("%w: %v", ErrOutOfRange, v)
	}
	return nil
}

// Legend 按置信度从高到低返回全部区间
func Legend() []Band {
	out := make([]Band, len(legend))
	copy(out, legend)
	return out
}

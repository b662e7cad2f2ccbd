// Package normalize 将存储服务返回的松散 JSON 转换为规范的领域实体
//
// 原始形态为 []byte / gjson.Result，规范形态为 entity 包中的类型。
// 所有映射函数均为全函数：输入无论多么残缺都会得到尽力而为的结果，不向外返回错误。
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ToNumber 将任意值转换为正整数，失败时返回 fallback
//
// 已是有限正数的值取整数部分；字符串去除首尾空白后按前导整数解析；
// nil、布尔、空串、非数字串、零、负数、NaN 与无穷均返回 fallback。
func ToNumber(v any, fallback int) int {
	n, ok := positiveInt(v)
	if !ok {
		return fallback
	}
	return n
}

func positiveInt(v any) (int, bool) {
	switch n := v.(type) {
	case nil, bool:
		return 0, false
	case int:
		return n, n > 0
	case int8:
		return int(n), n > 0
	case int16:
		return int(n), n > 0
	case int32:
		return int(n), n > 0
	case int64:
		return clampInt64(n)
	case uint:
		return clampUint64(uint64(n))
	case uint8:
		return int(n), n > 0
	case uint16:
		return int(n), n > 0
	case uint32:
		return clampUint64(uint64(n))
	case uint64:
		return clampUint64(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		return parseLeadingInt(n.String())
	case string:
		return parseLeadingInt(n)
	case gjson.Result:
		switch n.Type {
		case gjson.Number:
			return floatToInt(n.Num)
		case gjson.String:
			return parseLeadingInt(n.Str)
		default:
			return 0, false
		}
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func clampInt64(n int64) (int, bool) {
	if n <= 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func clampUint64(n uint64) (int, bool) {
	if n == 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

// parseLeadingInt 解析字符串开头的十进制整数，如 "12px" 得到 12
func parseLeadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	end := 0
	if s[0] == '+' || s[0] == '-' {
		end = 1
	}
	digits := end
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		digits++
	}
	if digits == end {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:digits], 10, 64)
	if err != nil {
		return 0, false
	}
	return clampInt64(n)
}

// nonNegative 解析允许为 0 的整数字段，如导论的章节号
func nonNegative(r gjson.Result, fallback int) int {
	switch r.Type {
	case gjson.Number:
		if math.IsNaN(r.Num) || r.Num < 0 || r.Num > math.MaxInt32 {
			return fallback
		}
		return int(r.Num)
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "0" {
			return 0
		}
		if n, ok := parseLeadingInt(s); ok {
			return n
		}
	}
	return fallback
}

// toFloat 解析指标类浮点字段，非法值为 0
func toFloat(r gjson.Result) float64 {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0
		}
		f = v
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

package normalize

import (
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// field 按顺序返回第一个存在且非 null 的字段
func field(obj gjson.Result, names ...string) gjson.Result {
	for _, name := range names {
		r := obj.Get(name)
		if r.Exists() && r.Type != gjson.Null {
			return r
		}
	}
	return gjson.Result{}
}

// str 读取字符串字段，数字按原文返回
func str(obj gjson.Result, names ...string) string {
	r := field(obj, names...)
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return r.Raw
	default:
		return ""
	}
}

// text 读取并去除首尾空白
func text(obj gjson.Result, names ...string) string {
	return strings.TrimSpace(str(obj, names...))
}

// boolean 读取布尔字段，兼容 "true"/1
func boolean(obj gjson.Result, names ...string) bool {
	r := field(obj, names...)
	switch r.Type {
	case gjson.True:
		return true
	case gjson.String:
		return strings.EqualFold(strings.TrimSpace(r.Str), "true")
	case gjson.Number:
		return r.Num == 1
	default:
		return false
	}
}

// array 读取数组字段，兼容以 JSON 字符串存储的数组
func array(obj gjson.Result, names ...string) []gjson.Result {
	r := field(obj, names...)
	if r.Type == gjson.String {
		r = gjson.Parse(r.Str)
	}
	if !r.IsArray() {
		return nil
	}
	return r.Array()
}

// object 读取对象字段，兼容以 JSON 字符串存储的对象
func object(obj gjson.Result, names ...string) (gjson.Result, bool) {
	r := field(obj, names...)
	if r.Type == gjson.String {
		r = gjson.Parse(r.Str)
	}
	return r, r.IsObject()
}

// stringList 读取字符串数组，跳过非字符串元素
func stringList(obj gjson.Result, names ...string) []string {
	out := []string{}
	for _, item := range array(obj, names...) {
		if item.Type == gjson.String {
			out = append(out, item.Str)
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// timestamp 解析时间字段，失败时返回零值
func timestamp(obj gjson.Result, names ...string) time.Time {
	r := field(obj, names...)
	switch r.Type {
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	case gjson.Number:
		if r.Num > 0 {
			return time.UnixMilli(int64(r.Num)).UTC()
		}
	}
	return time.Time{}
}

// Envelope 去除存储服务的 {success, data} 包装
func Envelope(raw []byte) gjson.Result {
	return unwrap(gjson.ParseBytes(raw))
}

func unwrap(r gjson.Result) gjson.Result {
	if !r.IsObject() {
		return r
	}
	data := r.Get("data")
	if data.Exists() && (r.Get("success").Exists() || len(r.Map()) == 1) {
		return data
	}
	return r
}

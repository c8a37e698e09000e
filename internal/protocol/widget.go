package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/zeromicro/go-zero/core/jsonx"
)

const (
	WidgetTypeText    = "text"
	WidgetTypeProduct = "product"
)

// Widget flow 响应中的一个元素：TextWidget、ProductWidget 或 OpaqueWidget
type Widget interface {
	// WidgetType 返回 type（或 kind）字段的值，未知时为空
	WidgetType() string
}

// TextWidget 文本元素，提供摘要
type TextWidget struct {
	Text   string
	Fields map[string]any
}

func (w TextWidget) WidgetType() string { return WidgetTypeText }

// ProductWidget 商品元素，去重按 ProductID
type ProductWidget struct {
	ProductID string
	Title     string
	// Fields 保留原始对象的全部字段（包含 metadata、score 等）
	Fields map[string]any
}

func (w ProductWidget) WidgetType() string { return WidgetTypeProduct }

// OpaqueWidget 其他类型的元素，聚合器忽略，原样透传
type OpaqueWidget struct {
	Type   string
	Fields map[string]any
	// Value 非对象元素的原始值
	Value any
}

func (w OpaqueWidget) WidgetType() string { return w.Type }

// DecodeWidget 按 type/kind 标签把一个 JSON 元素分类为具体的 Widget
// type 为 product 时是商品；type 或 kind 为 text 时是文本
func DecodeWidget(raw []byte) Widget {
	var fields map[string]any
	if err := jsonx.Unmarshal(raw, &fields); err != nil || fields == nil {
		var v any
		_ = jsonx.Unmarshal(raw, &v)
		return OpaqueWidget{Value: v}
	}

	typ := stringValue(fields["type"])
	kind := stringValue(fields["kind"])

	// 商品只认 type；文本认 type 或 kind
	switch {
	case typ == WidgetTypeProduct:
		return ProductWidget{
			ProductID: stringValue(fields["productId"]),
			Title:     stringValue(fields["title"]),
			Fields:    fields,
		}
	case typ == WidgetTypeText || kind == WidgetTypeText:
		text := stringValue(fields["text"])
		if text == "" {
			text = stringValue(fields["value"])
		}
		return TextWidget{Text: text, Fields: fields}
	default:
		tag := typ
		if tag == "" {
			tag = kind
		}
		return OpaqueWidget{Type: tag, Fields: fields}
	}
}

// DecodeWidgets 解码 widgets 数组；非数组时返回空切片
func DecodeWidgets(raw []byte) []Widget {
	var items []json.RawMessage
	if len(raw) == 0 || jsonx.Unmarshal(raw, &items) != nil {
		return []Widget{}
	}

	widgets := make([]Widget, 0, len(items))
	for _, item := range items {
		widgets = append(widgets, DecodeWidget(item))
	}
	return widgets
}

// SummaryText 返回第一个文本元素的文字，没有时返回空
func SummaryText(widgets []Widget) string {
	for _, w := range widgets {
		if t, ok := w.(TextWidget); ok {
			return t.Text
		}
	}
	return ""
}

// Products 返回按顺序出现的商品元素
func Products(widgets []Widget) []ProductWidget {
	var products []ProductWidget
	for _, w := range widgets {
		if p, ok := w.(ProductWidget); ok {
			products = append(products, p)
		}
	}
	return products
}

// stringValue 把 JSON 标量转为字符串，对象、数组与 null 视为空
func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

package protocol

import (
	"strings"
	"unicode/utf8"

	"github.com/zeromicro/go-zero/core/jsonx"
)

// MinQueryLength 搜索词修剪后的最小字符数
const MinQueryLength = 3

// InputType 用户意图类型
type InputType string

const (
	InputTypeSearch   InputType = "search"
	InputTypeCampaign InputType = "campaignId"
)

// UserInput 用户意图，search 与 campaignId 二选一
type UserInput struct {
	Type       InputType
	Value      string
	CampaignID string
}

// SearchInput 创建搜索意图
func SearchInput(query string) UserInput {
	return UserInput{Type: InputTypeSearch, Value: query}
}

// CampaignInput 创建活动意图
func CampaignInput(campaignID string) UserInput {
	return UserInput{Type: InputTypeCampaign, CampaignID: campaignID}
}

// Validate 在发起网络请求之前校验意图
func (u UserInput) Validate() error {
	switch u.Type {
	case InputTypeSearch:
		return ValidateQuery(u.Value)
	case InputTypeCampaign:
		return ValidateCampaignID(u.CampaignID)
	default:
		return NewError(KindValidation, "userInput.type_invalid: "+string(u.Type))
	}
}

// MarshalJSON 按意图类型展开字段，只输出对应变体
func (u UserInput) MarshalJSON() ([]byte, error) {
	switch u.Type {
	case InputTypeCampaign:
		return jsonx.Marshal(struct {
			Type       InputType `json:"type"`
			CampaignID string    `json:"campaignId"`
		}{u.Type, u.CampaignID})
	default:
		return jsonx.Marshal(struct {
			Type  InputType `json:"type"`
			Value string    `json:"value"`
		}{u.Type, u.Value})
	}
}

// UnmarshalJSON 解析展开后的意图
func (u *UserInput) UnmarshalJSON(data []byte) error {
	var wire struct {
		Type       InputType `json:"type"`
		Value      string    `json:"value"`
		CampaignID string    `json:"campaignId"`
	}
	if err := jsonx.Unmarshal(data, &wire); err != nil {
		return err
	}

	*u = UserInput{Type: wire.Type, Value: wire.Value, CampaignID: wire.CampaignID}
	return nil
}

// FlowRequest flow 启动请求
type FlowRequest struct {
	UserInput    UserInput `json:"userInput"`
	ShopConfigID string    `json:"shopConfigId,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	Language     string    `json:"language,omitempty"`
	ReferenceID  string    `json:"referenceId,omitempty"`
}

// ValidateQuery 校验搜索词：修剪后非空且不少于 MinQueryLength 个字符
func ValidateQuery(query string) error {
	q := strings.TrimSpace(query)
	if q == "" {
		return NewError(KindValidation, "query.required")
	}
	if utf8.RuneCountInString(q) < MinQueryLength {
		return NewError(KindValidation, "query.too_short: query must be at least 3 characters")
	}

	return nil
}

// ValidateCampaignID 校验活动 ID：修剪后非空
func ValidateCampaignID(campaignID string) error {
	if strings.TrimSpace(campaignID) == "" {
		return NewError(KindValidation, "campaignId.required")
	}

	return nil
}

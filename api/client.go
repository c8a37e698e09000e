package inopsflow

import (
	inops "github.com/Pentahill/inopsflow/internal"
	"github.com/Pentahill/inopsflow/internal/protocol"
)

// DefaultBaseURL 未配置地址时使用的服务地址。
const DefaultBaseURL = inops.DefaultBaseURL

// NewClient 创建客户端。opt 可为 nil，使用默认 HTTP 客户端。
func NewClient(c Config, opt *ClientOptional) *Client {
	return inops.NewClient(c, opt)
}

// LoadConfig 从 yaml/json/toml 文件加载配置。
func LoadConfig(file string) (Config, error) {
	return inops.LoadConfig(file)
}

// SetGlobalBaseURL 设置进程级的服务地址覆盖，显式配置的 BaseURL 仍然优先。
func SetGlobalBaseURL(baseURL string) {
	inops.SetGlobalBaseURL(baseURL)
}

// CampaignIDFromURL 从 URL 查询参数读取活动 ID，param 为空时使用 campaignId。
func CampaignIDFromURL(rawURL, param string) string {
	return inops.CampaignIDFromURL(rawURL, param)
}

// SearchInput 构造搜索意图。
func SearchInput(query string) UserInput {
	return protocol.SearchInput(query)
}

// CampaignInput 构造活动意图。
func CampaignInput(campaignID string) UserInput {
	return protocol.CampaignInput(campaignID)
}

// KindOf 返回错误的分类，非 SDK 错误时为空。
func KindOf(err error) ErrorKind {
	return protocol.KindOf(err)
}

package inops

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/Pentahill/inopsflow/internal/flow"
	"github.com/Pentahill/inopsflow/internal/transport"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"
)

// DefaultBaseURL 未配置任何地址时使用的服务地址
const DefaultBaseURL = "https://apps.inops.io"

const (
	defaultName         = "inopsflow"
	defaultShopConfigID = "demo"
	defaultLanguage     = "en"
	defaultBufferSize   = 100
)

// Config 客户端配置，可通过 LoadConfig 从 yaml/json/toml 文件加载
type Config struct {
	// Name httpc 服务名，同名客户端共享熔断器
	Name string `json:",default=inopsflow"`
	// BaseURL 显式服务地址，优先于全局覆盖与默认地址
	BaseURL string `json:",optional,env=INOPS_API_URL"`
	// SearchKey 公开凭据
	SearchKey    string        `json:",env=INOPS_SEARCH_KEY"`
	ShopConfigID string        `json:",default=demo"`
	Language     string        `json:",default=en"`
	ReferenceID  string        `json:",optional"`
	Timeout      time.Duration `json:",default=20s"`
	BufferSize   int           `json:",default=100"`
	Log          logx.LogConf  `json:",optional"`
}

// LoadConfig 加载配置文件，文件内容中的 ${VAR} 会用环境变量展开
// env 标签对应的环境变量优先于文件中的值，且每个进程只读取一次，之后的修改不可见
func LoadConfig(file string) (Config, error) {
	var c Config
	if err := conf.Load(file, &c, conf.UseEnv()); err != nil {
		return Config{}, err
	}
	return c, nil
}

// withDefaults 为代码构造的配置填充与配置文件相同的默认值
func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.ShopConfigID == "" {
		c.ShopConfigID = defaultShopConfigID
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.Timeout <= 0 {
		c.Timeout = flow.DefaultTimeout
	}
	if c.BufferSize <= 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

var globalBaseURL atomic.Value

// SetGlobalBaseURL 设置进程级的服务地址覆盖，由宿主环境在初始化时调用
// 传入空字符串清除覆盖
func SetGlobalBaseURL(baseURL string) {
	globalBaseURL.Store(strings.TrimSpace(baseURL))
}

// GlobalBaseURL 返回进程级覆盖地址，未设置时为空
func GlobalBaseURL() string {
	v, _ := globalBaseURL.Load().(string)
	return v
}

// ResolveBaseURL 依次使用显式地址、全局覆盖、默认地址，并去掉结尾斜杠
func ResolveBaseURL(explicit string) string {
	for _, candidate := range []string{explicit, GlobalBaseURL(), DefaultBaseURL} {
		if u := transport.NormalizeBaseURL(candidate); u != "" {
			return u
		}
	}
	return DefaultBaseURL
}

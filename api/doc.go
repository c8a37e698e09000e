// Package inopsflow 提供 flow 搜索/推荐服务的客户端 API。
// 应用层通过 api 包引用，勿直接使用 internal。
//
// 示例：
//
//	import inopsflow "github.com/Pentahill/inopsflow/api"
//
//	client := inopsflow.NewClient(inopsflow.Config{SearchKey: "sk_live_xxx"}, nil)
//	result, err := client.SearchAndCollect(ctx, "running shoes", &inopsflow.RequestOptional{
//	    Timeout: 10 * time.Second,
//	})
//	if err != nil {
//	    // errors.Is(err, inopsflow.ErrValidation) 等判断错误分类
//	}
//	fmt.Println(result.Summary, len(result.Products))
//
// 长连接场景可以直接订阅会话事件流：
//
//	sub := client.SubscribeToSession(ctx, started.SessionID, func(ctx context.Context, evt inopsflow.Event) {
//	    // 渲染 evt.Widgets
//	})
//	defer sub.Cancel()
package inopsflow

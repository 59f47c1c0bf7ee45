package stream

import (
	"context"
	"net/url"

	"anyvidow/client/internal/models"
)

// Channel 一条活跃的服务器进度推送连接,每个会话独占一条
type Channel interface {
	// Events 按到达顺序产出解析后的事件,流结束后关闭。
	// 不做重排与合并,消费方观察到的顺序与服务器发送顺序一致。
	Events() <-chan models.Event

	// Err 在Events关闭之后读取。nil表示正常结束
	// ([DONE]标记或本地Close),非nil表示传输中断。
	Err() error

	// Close 关闭连接。幂等,远端已关闭后调用也安全,
	// 本地关闭不会被当作传输错误。
	Close() error
}

// Opener 按请求参数建立一条进度通道
type Opener interface {
	Open(ctx context.Context, endpoint string, params url.Values) (Channel, error)
}

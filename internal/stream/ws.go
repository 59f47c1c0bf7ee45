package stream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"anyvidow/client/internal/models"
)

// WSClient WebSocket进度流客户端。
// 部分网关把同样的进度消息走WebSocket推送,消息语义与SSE一致:
// 每条文本消息是一帧JSON事件,[DONE]文本为终止标记。
type WSClient struct {
	dialer  *websocket.Dialer
	baseURL string
	path    string
	logger  *zap.Logger
}

// NewWSClient 创建WebSocket进度流客户端
func NewWSClient(baseURL, path string, logger *zap.Logger) *WSClient {
	return &WSClient{
		dialer:  websocket.DefaultDialer,
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    path,
		logger:  logger,
	}
}

// Open 建立一条进度流连接。
// WebSocket网关只有一个推送路径,会话参数全部放在查询串里,
// endpoint仅作为stream参数转发给服务器路由。
func (c *WSClient) Open(ctx context.Context, endpoint string, params url.Values) (Channel, error) {
	wsURL, err := c.buildURL(endpoint, params)
	if err != nil {
		return nil, err
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open websocket stream: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	ch := &wsChannel{
		events: make(chan models.Event, 16),
		quit:   make(chan struct{}),
		conn:   conn,
		logger: c.logger,
	}
	go ch.readLoop()

	return ch, nil
}

// buildURL 把http基地址转成ws地址并拼接参数
func (c *WSClient) buildURL(endpoint string, params url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + c.path)
	if err != nil {
		return "", fmt.Errorf("invalid websocket url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("stream", strings.TrimPrefix(endpoint, "/"))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// wsChannel 一条WebSocket连接
type wsChannel struct {
	events chan models.Event
	quit   chan struct{}
	conn   *websocket.Conn
	logger *zap.Logger

	mu        sync.Mutex
	closed    bool
	transport error
	closeOnce sync.Once
}

// Events 实现Channel
func (ch *wsChannel) Events() <-chan models.Event {
	return ch.events
}

// Err 实现Channel
func (ch *wsChannel) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.transport
}

// Close 实现Channel
func (ch *wsChannel) Close() error {
	ch.closeOnce.Do(func() {
		ch.mu.Lock()
		ch.closed = true
		ch.mu.Unlock()

		close(ch.quit)
		ch.conn.Close()
	})
	return nil
}

// readLoop 逐条消息读取并解析,直到连接结束
func (ch *wsChannel) readLoop() {
	defer close(ch.events)
	defer ch.conn.Close()

	sentinelSeen := false
	var readErr error

	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}

		payload := strings.TrimSpace(string(data))
		if payload == "" {
			continue
		}
		if payload == models.Sentinel {
			sentinelSeen = true
			break
		}

		ev, perr := models.ParseEvent([]byte(payload))
		if perr != nil {
			ch.logger.Warn("dropping malformed frame", zap.Error(perr))
			continue
		}

		select {
		case ch.events <- ev:
		case <-ch.quit:
			return
		}
	}

	if sentinelSeen {
		return
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	if readErr != nil && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure) {
		ch.transport = fmt.Errorf("%w: %v", models.ErrStreamInterrupted, readErr)
	} else {
		ch.transport = models.ErrStreamInterrupted
	}
}

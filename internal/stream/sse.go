package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"anyvidow/client/internal/models"
)

// maxFrameSize 单帧上限,超长帧按传输错误处理
const maxFrameSize = 1024 * 1024

// SSEClient SSE进度流客户端
type SSEClient struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewSSEClient 创建SSE进度流客户端。
// 进度流时长不可预知,因此不设整体超时。
func NewSSEClient(baseURL string, logger *zap.Logger) *SSEClient {
	return &SSEClient{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// Open 建立一条进度流连接
func (c *SSEClient) Open(ctx context.Context, endpoint string, params url.Values) (Channel, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream request rejected: %s", resp.Status)
	}

	ch := &sseChannel{
		events: make(chan models.Event, 16),
		quit:   make(chan struct{}),
		cancel: cancel,
		body:   resp.Body,
		logger: c.logger,
	}
	go ch.readLoop()

	return ch, nil
}

// sseChannel 一条SSE连接
type sseChannel struct {
	events chan models.Event
	quit   chan struct{}
	cancel context.CancelFunc
	body   io.ReadCloser
	logger *zap.Logger

	mu        sync.Mutex
	closed    bool
	transport error
	closeOnce sync.Once
}

// Events 实现Channel
func (ch *sseChannel) Events() <-chan models.Event {
	return ch.events
}

// Err 实现Channel
func (ch *sseChannel) Err() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.transport
}

// Close 实现Channel
func (ch *sseChannel) Close() error {
	ch.closeOnce.Do(func() {
		ch.mu.Lock()
		ch.closed = true
		ch.mu.Unlock()

		close(ch.quit)
		ch.cancel()
	})
	return nil
}

// readLoop 逐帧读取并解析,直到流结束
func (ch *sseChannel) readLoop() {
	defer close(ch.events)
	defer ch.body.Close()

	scanner := bufio.NewScanner(ch.body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)

	sentinelSeen := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		// 只处理data字段,其余SSE字段(注释、id等)忽略
		payload, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)

		if payload == models.Sentinel {
			sentinelSeen = true
			break
		}

		ev, err := models.ParseEvent([]byte(payload))
		if err != nil {
			// 个别帧损坏不终止会话
			ch.logger.Warn("dropping malformed frame", zap.Error(err))
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

	// 未见终止标记就结束了: 本地关闭视为正常,否则为传输中断
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.closed {
		return
	}
	if err := scanner.Err(); err != nil {
		ch.transport = fmt.Errorf("%w: %v", models.ErrStreamInterrupted, err)
	} else {
		ch.transport = models.ErrStreamInterrupted
	}
}

package session

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"anyvidow/client/internal/models"
	"anyvidow/client/internal/presenter"
	"anyvidow/client/internal/progress"
	"anyvidow/client/internal/repository"
	"anyvidow/client/internal/stream"
)

// 进度流端点
const (
	singleStreamEndpoint   = "/stream_single_download"
	playlistStreamEndpoint = "/stream_playlist_download"
)

// cancelTimeout 取消通知的请求超时
const cancelTimeout = 5 * time.Second

// Navigator 终态跳转的执行方
type Navigator interface {
	Navigate(ctx context.Context, target string) error
}

// Canceller 向服务器发取消通知的接口
type Canceller interface {
	CancelDownload(ctx context.Context, sessionID string) error
}

// Deps 控制器依赖,由调用方装配
type Deps struct {
	Opener      stream.Opener
	Canceller   Canceller
	History     repository.HistoryStore
	Presenter   presenter.Presenter
	Navigator   Navigator
	Tracker     *Tracker
	Logger      *zap.Logger
	SettleDelay time.Duration
}

// Controller 会话控制器。一个控制器驱动一个下载会话:
// 持有一条进度通道,推进一台状态机,并负责取消与终态取件。
// 生命周期归调用方,随会话结束销毁。
type Controller struct {
	deps     Deps
	kind     models.SessionKind
	endpoint string
	params   url.Values // 建流请求参数,创建后不再修改

	machine   *progress.Machine
	requestID string

	// historyEntry 非空时在启动时同步写入历史(仅单视频/纯音频)
	historyEntry *models.HistoryEntry

	mu        sync.Mutex
	sessionID string // 事件流里第一个非空值,只写一次
	channel   stream.Channel

	cancelOnce sync.Once
}

// NewSingle 创建单视频/纯音频下载会话控制器
func NewSingle(deps Deps, video *models.VideoInfo, formatID, downloadType string) *Controller {
	kind := models.KindSingle
	if downloadType == "audio" {
		kind = models.KindAudio
	}

	params := url.Values{}
	params.Set("url", video.OriginalURL)
	params.Set("format_id", formatID)
	params.Set("title", video.Title)
	params.Set("type", downloadType)
	params.Set("best_audio_id", video.BestAudioID)

	entry := &models.HistoryEntry{
		Title:       video.Title,
		OriginalURL: video.OriginalURL,
		Thumbnail:   video.Thumbnail,
		Platform:    video.Platform,
		Date:        time.Now(),
	}

	return &Controller{
		deps:         deps,
		kind:         kind,
		endpoint:     singleStreamEndpoint,
		params:       params,
		machine:      progress.NewMachine(kind),
		requestID:    uuid.New().String(),
		historyEntry: entry,
	}
}

// NewPlaylist 创建播放列表下载会话控制器,先校验范围
func NewPlaylist(deps Deps, playlist *models.PlaylistInfo, quality string, start, end int) (*Controller, error) {
	if start < 1 || end < 1 {
		return nil, fmt.Errorf("start and end must be greater than 0")
	}
	if start > end {
		return nil, fmt.Errorf("start cannot be greater than end")
	}
	if end > playlist.VideoCount {
		return nil, fmt.Errorf("range cannot exceed playlist size (%d videos)", playlist.VideoCount)
	}
	if quality == "" {
		quality = "1080"
	}

	params := url.Values{}
	params.Set("url", playlist.OriginalURL)
	params.Set("quality", quality)
	params.Set("start", fmt.Sprintf("%d", start))
	params.Set("end", fmt.Sprintf("%d", end))

	return &Controller{
		deps:      deps,
		kind:      models.KindPlaylist,
		endpoint:  playlistStreamEndpoint,
		params:    params,
		machine:   progress.NewMachine(models.KindPlaylist),
		requestID: uuid.New().String(),
	}, nil
}

// Kind 返回会话类型
func (c *Controller) Kind() models.SessionKind {
	return c.kind
}

// SessionID 返回服务器分配的会话ID(尚未分配时为空)
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// State 返回状态机当前状态
func (c *Controller) State() progress.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State()
}

// Run 运行会话直到结束。同一互斥类别下已有活跃会话时
// 直接拒绝(不排队),原会话不受影响。
func (c *Controller) Run(ctx context.Context) error {
	class := c.kind.Class()

	// 1. 互斥校验
	if !c.deps.Tracker.acquire(class) {
		c.deps.Presenter.Render(progress.Effect{
			Kind:  progress.EffectToast,
			Text:  "A download is already in progress.",
			Level: progress.LevelWarning,
		})
		return models.ErrDownloadInProgress
	}
	defer c.deps.Tracker.release(class)

	logger := c.deps.Logger.With(
		zap.String("request_id", c.requestID),
		zap.String("kind", c.kind.String()),
	)

	// 2. 单视频会话先记历史。记录的是发起意图,
	//    与下载最终成败无关;写失败不阻塞下载。
	if c.historyEntry != nil && c.deps.History != nil {
		if err := c.deps.History.Add(ctx, *c.historyEntry); err != nil {
			logger.Warn("failed to record history", zap.Error(err))
		}
	}

	// 3. 建立进度通道
	c.dispatch(ctx, c.applyLocked(func() []progress.Effect { return c.machine.Start() }))

	ch, err := c.deps.Opener.Open(ctx, c.endpoint, c.params)
	if err != nil {
		logger.Error("failed to open progress stream", zap.Error(err))
		c.deps.Presenter.Render(progress.Effect{
			Kind:  progress.EffectToast,
			Text:  "Connection to server lost.",
			Level: progress.LevelDanger,
		})
		return fmt.Errorf("failed to open progress stream: %w", err)
	}

	c.mu.Lock()
	c.channel = ch
	c.mu.Unlock()
	defer ch.Close()

	logger.Info("session started")

	// 4. 事件循环: 严格按到达顺序推进状态机,不重排不合并
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				return c.finish(ch, logger)
			}
			c.handleEvent(ctx, ev, logger)

		case <-ctx.Done():
			// 外部中断等同用户取消
			c.Cancel()
			for range ch.Events() {
				// 丢弃取消后残余的事件
			}
			return c.finish(ch, logger)
		}
	}
}

// Cancel 用户主动取消。尽力通知服务器(失败只记日志不上抛),
// 关闭通道并本地进入Cancelled终态,不等服务器确认。
// 每个会话最多发一次取消请求。
func (c *Controller) Cancel() {
	c.cancelOnce.Do(func() {
		c.mu.Lock()
		sid := c.sessionID
		ch := c.channel
		effects := c.machine.CancelLocal()
		c.mu.Unlock()

		if sid != "" && c.deps.Canceller != nil {
			ctx, cancel := context.WithTimeout(context.Background(), cancelTimeout)
			defer cancel()
			if err := c.deps.Canceller.CancelDownload(ctx, sid); err != nil {
				c.deps.Logger.Warn("cancel request failed",
					zap.String("session_id", sid),
					zap.Error(err))
			}
		}

		if ch != nil {
			ch.Close()
		}

		c.dispatch(context.Background(), effects)
	})
}

// handleEvent 处理一条事件: 捕获会话ID并推进状态机
func (c *Controller) handleEvent(ctx context.Context, ev models.Event, logger *zap.Logger) {
	if sid := ev.SessionID(); sid != "" {
		c.mu.Lock()
		if c.sessionID == "" {
			c.sessionID = sid
			logger.Info("session assigned", zap.String("session_id", sid))
		}
		c.mu.Unlock()
	}

	effects := c.applyLocked(func() []progress.Effect { return c.machine.Apply(ev) })
	c.dispatch(ctx, effects)
}

// applyLocked 在锁内推进状态机
func (c *Controller) applyLocked(fn func() []progress.Effect) []progress.Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn()
}

// dispatch 把副作用交给Presenter,跳转类副作用就地执行
func (c *Controller) dispatch(ctx context.Context, effects []progress.Effect) {
	for _, eff := range effects {
		if eff.Kind == progress.EffectRedirect {
			c.redirect(ctx, eff)
			continue
		}
		c.deps.Presenter.Render(eff)
	}
}

// redirect 执行终态取件跳转。
// finished终态前有一段固定缓冲,是整个引擎里唯一的延迟回调。
func (c *Controller) redirect(ctx context.Context, eff progress.Effect) {
	c.deps.Presenter.Render(eff)

	if eff.Deferred && c.deps.SettleDelay > 0 {
		timer := time.NewTimer(c.deps.SettleDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return
		}
	}

	if c.deps.Navigator == nil {
		return
	}
	if err := c.deps.Navigator.Navigate(ctx, eff.URL); err != nil {
		c.deps.Logger.Error("file retrieval failed", zap.Error(err))
		c.deps.Presenter.Render(progress.Effect{
			Kind:  progress.EffectToast,
			Text:  "Failed to retrieve file.",
			Level: progress.LevelDanger,
		})
	}
}

// finish 通道关闭后的收尾,区分"正常结束"与"传输中断"
func (c *Controller) finish(ch stream.Channel, logger *zap.Logger) error {
	c.mu.Lock()
	state := c.machine.State()
	errMessage := c.machine.ErrorMessage()
	c.mu.Unlock()

	if terr := ch.Err(); terr != nil && !state.IsTerminal() {
		// 终态之前连接意外断开才算连接错误;
		// 终态之后怎么断的都无所谓
		logger.Error("stream interrupted", zap.Error(terr))
		c.deps.Presenter.Render(progress.Effect{
			Kind:  progress.EffectToast,
			Text:  "Connection to server lost.",
			Level: progress.LevelDanger,
		})
		return terr
	}

	// 没有终态就收到[DONE]也按正常结束处理: 服务器存在
	// 不带终态就关流的路径,这里不替它猜测失败
	if state == progress.StateError {
		return fmt.Errorf("download failed: %s", errMessage)
	}

	logger.Info("session closed", zap.String("state", string(state)))
	return nil
}

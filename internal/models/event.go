package models

import (
	"encoding/json"
	"fmt"
)

// Sentinel 流结束标记,服务器在正常关闭流之前发送
const Sentinel = "[DONE]"

// Event 进度事件。每个status对应一个封闭的变体类型,
// 只携带该status合法的字段。
type Event interface {
	// Kind 返回事件对应的status
	Kind() Status

	// SessionID 返回服务器分配的会话ID(可能为空)
	SessionID() string
}

// EventMeta 所有事件变体共有的元数据
type EventMeta struct {
	Session string
}

// SessionID 返回服务器分配的会话ID
func (m EventMeta) SessionID() string {
	return m.Session
}

// StartingEvent 下载开始
type StartingEvent struct {
	EventMeta
	Message     string
	TotalVideos int // 仅播放列表会话
}

// Kind 返回事件status
func (StartingEvent) Kind() Status { return StatusStarting }

// DownloadingEvent 下载进行中
type DownloadingEvent struct {
	EventMeta
	Phase        string   // video | audio; 播放列表为展示用短语
	Progress     *float64 // 缺失时保留上一次的百分比
	Speed        string
	Size         string
	ETA          string
	Message      string
	CurrentVideo int    // 仅播放列表会话
	TotalVideos  int    // 仅播放列表会话
	VideoTitle   string // 仅播放列表会话
}

// Kind 返回事件status
func (DownloadingEvent) Kind() Status { return StatusDownloading }

// ProcessingEvent 服务器端的后处理提示(音频提取回退路径),
// 只更新展示信息,不改变会话状态。
type ProcessingEvent struct {
	EventMeta
	Phase    string
	Progress *float64
	Message  string
}

// Kind 返回事件status
func (ProcessingEvent) Kind() Status { return StatusProcessing }

// MergingEvent 音视频合并中
type MergingEvent struct {
	EventMeta
	Message string
}

// Kind 返回事件status
func (MergingEvent) Kind() Status { return StatusMerging }

// ZippingEvent 播放列表打包中
type ZippingEvent struct {
	EventMeta
	Message string
}

// Kind 返回事件status
func (ZippingEvent) Kind() Status { return StatusZipping }

// CompletedEvent 下载完成(文件尚未就绪)
type CompletedEvent struct {
	EventMeta
	Message string
}

// Kind 返回事件status
func (CompletedEvent) Kind() Status { return StatusCompleted }

// ReadyEvent 文件就绪,可跳转取件
type ReadyEvent struct {
	EventMeta
	Filename string
	Message  string
}

// Kind 返回事件status
func (ReadyEvent) Kind() Status { return StatusReady }

// FinishedEvent 播放列表打包完成,可跳转取件
type FinishedEvent struct {
	EventMeta
	ZipName string
	Message string
}

// Kind 返回事件status
func (FinishedEvent) Kind() Status { return StatusFinished }

// CancelledEvent 服务器确认下载已取消
type CancelledEvent struct {
	EventMeta
	Message string
}

// Kind 返回事件status
func (CancelledEvent) Kind() Status { return StatusCancelled }

// ErrorEvent 服务器报告的失败
type ErrorEvent struct {
	EventMeta
	Message string
}

// Kind 返回事件status
func (ErrorEvent) Kind() Status { return StatusError }

// rawEvent 线上JSON的原始形状
type rawEvent struct {
	Status       string   `json:"status"`
	Progress     *float64 `json:"progress"`
	Speed        string   `json:"speed"`
	Size         string   `json:"size"`
	ETA          string   `json:"eta"`
	Phase        string   `json:"phase"`
	Message      string   `json:"message"`
	CurrentVideo int      `json:"current_video"`
	TotalVideos  int      `json:"total_videos"`
	VideoTitle   string   `json:"video_title"`
	Filename     string   `json:"filename"`
	ZipName      string   `json:"zip_name"`
	SessionID    string   `json:"session_id"`
}

// ParseEvent 解析一条进度事件帧。未知status、非法JSON
// 或缺少该status必需字段的帧一律按畸形帧拒绝,
// 由调用方丢弃,不终止会话。
func ParseEvent(data []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if raw.Progress != nil && *raw.Progress < 0 {
		return nil, fmt.Errorf("%w: negative progress", ErrMalformedEvent)
	}
	if raw.CurrentVideo < 0 || raw.TotalVideos < 0 {
		return nil, fmt.Errorf("%w: negative video counter", ErrMalformedEvent)
	}

	meta := EventMeta{Session: raw.SessionID}

	switch Status(raw.Status) {
	case StatusStarting:
		return StartingEvent{EventMeta: meta, Message: raw.Message, TotalVideos: raw.TotalVideos}, nil

	case StatusDownloading:
		return DownloadingEvent{
			EventMeta:    meta,
			Phase:        raw.Phase,
			Progress:     raw.Progress,
			Speed:        raw.Speed,
			Size:         raw.Size,
			ETA:          raw.ETA,
			Message:      raw.Message,
			CurrentVideo: raw.CurrentVideo,
			TotalVideos:  raw.TotalVideos,
			VideoTitle:   raw.VideoTitle,
		}, nil

	case StatusProcessing:
		return ProcessingEvent{EventMeta: meta, Phase: raw.Phase, Progress: raw.Progress, Message: raw.Message}, nil

	case StatusMerging:
		return MergingEvent{EventMeta: meta, Message: raw.Message}, nil

	case StatusZipping:
		return ZippingEvent{EventMeta: meta, Message: raw.Message}, nil

	case StatusCompleted:
		return CompletedEvent{EventMeta: meta, Message: raw.Message}, nil

	case StatusReady:
		if raw.Filename == "" {
			return nil, fmt.Errorf("%w: ready event without filename", ErrMalformedEvent)
		}
		return ReadyEvent{EventMeta: meta, Filename: raw.Filename, Message: raw.Message}, nil

	case StatusFinished:
		if raw.ZipName == "" {
			return nil, fmt.Errorf("%w: finished event without zip_name", ErrMalformedEvent)
		}
		return FinishedEvent{EventMeta: meta, ZipName: raw.ZipName, Message: raw.Message}, nil

	case StatusCancelled:
		return CancelledEvent{EventMeta: meta, Message: raw.Message}, nil

	case StatusError:
		if raw.Message == "" {
			raw.Message = "Download failed."
		}
		return ErrorEvent{EventMeta: meta, Message: raw.Message}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, raw.Status)
	}
}

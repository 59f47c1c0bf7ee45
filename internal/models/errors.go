package models

import "errors"

// 事件解码相关错误
var (
	// ErrMalformedEvent 事件帧不是合法JSON或形状不符
	ErrMalformedEvent = errors.New("malformed progress event")

	// ErrUnknownStatus 事件携带未知status
	ErrUnknownStatus = errors.New("unknown event status")
)

// 会话与历史相关错误
var (
	// ErrDownloadInProgress 同一互斥类别下已有活跃会话
	ErrDownloadInProgress = errors.New("a download is already in progress")

	// ErrStreamInterrupted 进度流在终止标记之前被中断
	ErrStreamInterrupted = errors.New("stream interrupted before completion")

	// ErrIndexOutOfRange 历史记录下标越界
	ErrIndexOutOfRange = errors.New("history index out of range")
)

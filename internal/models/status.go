package models

// Status 服务器进度事件的状态字段
type Status string

const (
	StatusStarting    Status = "starting"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusMerging     Status = "merging"
	StatusZipping     Status = "zipping"
	StatusCompleted   Status = "completed"
	StatusFinished    Status = "finished"
	StatusReady       Status = "ready"
	StatusCancelled   Status = "cancelled"
	StatusError       Status = "error"
)

// String 返回状态的字符串表示
func (s Status) String() string {
	return string(s)
}

// IsTerminal 判断该状态是否为终态(终态之后不再发生状态迁移)
func (s Status) IsTerminal() bool {
	return s == StatusReady || s == StatusFinished || s == StatusCancelled || s == StatusError
}

// SessionKind 会话类型
type SessionKind string

const (
	// KindSingle 单视频下载(含音视频合并)
	KindSingle SessionKind = "single"

	// KindAudio 纯音频下载
	KindAudio SessionKind = "audio"

	// KindPlaylist 播放列表打包下载
	KindPlaylist SessionKind = "playlist"
)

// ExclusivityClass 互斥类别: 同一类别下同时只允许一个活跃会话
type ExclusivityClass int

const (
	// ClassSingle 单视频与纯音频共用一个互斥槽位
	ClassSingle ExclusivityClass = iota

	// ClassPlaylist 播放列表独立占用一个槽位
	ClassPlaylist
)

// Class 返回会话类型所属的互斥类别
func (k SessionKind) Class() ExclusivityClass {
	if k == KindPlaylist {
		return ClassPlaylist
	}
	return ClassSingle
}

// String 返回会话类型的字符串表示
func (k SessionKind) String() string {
	return string(k)
}

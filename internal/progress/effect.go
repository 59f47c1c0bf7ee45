package progress

// EffectKind 界面副作用类型
type EffectKind string

const (
	// EffectSetMessage 更新主状态文本
	EffectSetMessage EffectKind = "set_message"

	// EffectSetLabel 更新短阶段标签(Video/Audio/Merging/...)
	EffectSetLabel EffectKind = "set_label"

	// EffectSetPercent 更新百分比
	EffectSetPercent EffectKind = "set_percent"

	// EffectSetStats 更新速度/大小/剩余时间
	EffectSetStats EffectKind = "set_stats"

	// EffectStepActive 点亮某个步骤
	EffectStepActive EffectKind = "step_active"

	// EffectStepCompleted 标记某个步骤完成
	EffectStepCompleted EffectKind = "step_completed"

	// EffectSetCounter 更新播放列表的 当前/总数 计数
	EffectSetCounter EffectKind = "set_counter"

	// EffectSetVideoTitle 更新当前视频标题(播放列表)
	EffectSetVideoTitle EffectKind = "set_video_title"

	// EffectLog 追加一行进度日志
	EffectLog EffectKind = "log"

	// EffectToast 弹出提示
	EffectToast EffectKind = "toast"

	// EffectRedirect 跳转到取件地址
	EffectRedirect EffectKind = "redirect"
)

// 下载步骤
const (
	StepVideo = "video"
	StepAudio = "audio"
	StepMerge = "merge"
)

// 提示与日志级别
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelDanger  = "danger"
)

// Effect 状态机产出的一条界面副作用。
// 状态机本身不接触任何渲染面,由Presenter消费。
type Effect struct {
	Kind    EffectKind
	Text    string
	Level   string
	Percent int
	Step    string
	Speed   string
	Size    string
	ETA     string
	Current int
	Total   int
	URL     string

	// Deferred 为true时,跳转需等待固定的缓冲时间再执行
	Deferred bool
}

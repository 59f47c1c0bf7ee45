package progress

import (
	"fmt"
	"math"
	"net/url"

	"anyvidow/client/internal/models"
)

// State 会话状态
type State string

const (
	StateIdle        State = "idle"
	StateStarting    State = "starting"
	StateDownloading State = "downloading"
	StateMerging     State = "merging"
	StateCompleted   State = "completed"
	StateZipping     State = "zipping"
	StateReady       State = "ready"
	StateFinished    State = "finished"
	StateCancelled   State = "cancelled"
	StateError       State = "error"
)

// IsTerminal 判断是否为终态
func (s State) IsTerminal() bool {
	return s == StateReady || s == StateFinished || s == StateCancelled || s == StateError
}

// 取件端点
const (
	fileEndpoint    = "/download_file"
	archiveEndpoint = "/download_zip"
)

// playlistCeiling 播放列表下载阶段的进度上限,
// 剩余部分留给打包(zipping固定95)
const playlistCeiling = 90

// Machine 进度状态机。纯状态迁移逻辑:
// 输入当前状态+事件,输出下一状态与一组界面副作用,
// 不做任何IO,也不依赖时钟。
type Machine struct {
	kind    models.SessionKind
	state   State
	phase   string
	percent int
	current int
	total   int

	// sessionID 事件流中第一个非空值,仅用于拼取件地址
	sessionID string

	errMessage string
}

// NewMachine 创建状态机,初始为Idle
func NewMachine(kind models.SessionKind) *Machine {
	return &Machine{
		kind:  kind,
		state: StateIdle,
	}
}

// State 返回当前状态
func (m *Machine) State() State {
	return m.state
}

// Percent 返回当前百分比
func (m *Machine) Percent() int {
	return m.percent
}

// ErrorMessage 返回服务器报告的失败信息(仅Error终态)
func (m *Machine) ErrorMessage() string {
	return m.errMessage
}

// Start 会话创建时调用: Idle → Starting
func (m *Machine) Start() []Effect {
	if m.state != StateIdle {
		return nil
	}
	m.state = StateStarting
	return []Effect{
		{Kind: EffectSetMessage, Text: "Initializing..."},
		{Kind: EffectSetLabel, Text: "Starting"},
		{Kind: EffectSetPercent, Percent: 0},
	}
}

// Apply 用一条事件推进状态机。
// 终态之后到达的事件一律忽略(此时通道应当已在关闭)。
func (m *Machine) Apply(ev models.Event) []Effect {
	if m.state.IsTerminal() {
		return nil
	}

	if sid := ev.SessionID(); sid != "" && m.sessionID == "" {
		m.sessionID = sid
	}

	switch ev := ev.(type) {
	case models.StartingEvent:
		return m.applyStarting(ev)
	case models.DownloadingEvent:
		return m.applyDownloading(ev)
	case models.ProcessingEvent:
		return m.applyProcessing(ev)
	case models.MergingEvent:
		return m.applyMerging(ev)
	case models.ZippingEvent:
		return m.applyZipping(ev)
	case models.CompletedEvent:
		return m.applyCompleted(ev)
	case models.ReadyEvent:
		return m.applyReady(ev)
	case models.FinishedEvent:
		return m.applyFinished(ev)
	case models.CancelledEvent:
		return m.terminate(StateCancelled, "Download cancelled")
	case models.ErrorEvent:
		m.errMessage = ev.Message
		return m.terminate(StateError, ev.Message)
	default:
		return nil
	}
}

// CancelLocal 本地取消: 不等服务器确认,直接进入Cancelled终态
func (m *Machine) CancelLocal() []Effect {
	if m.state.IsTerminal() {
		return nil
	}
	return m.terminate(StateCancelled, "Download cancelled")
}

// applyStarting starting事件: 进入下载阶段
func (m *Machine) applyStarting(ev models.StartingEvent) []Effect {
	m.state = StateDownloading

	if m.kind == models.KindPlaylist {
		if ev.TotalVideos > 0 {
			m.total = ev.TotalVideos
		}
		msg := ev.Message
		if msg == "" {
			msg = fmt.Sprintf("Starting download of %d videos...", m.total)
		}
		return []Effect{
			{Kind: EffectSetMessage, Text: msg},
			{Kind: EffectSetLabel, Text: "Starting"},
			{Kind: EffectLog, Text: fmt.Sprintf("Starting download of %d videos", m.total), Level: LevelInfo},
		}
	}

	m.phase = StepVideo
	return []Effect{
		{Kind: EffectSetMessage, Text: "Starting download..."},
		{Kind: EffectStepActive, Step: StepVideo},
	}
}

// applyDownloading downloading事件: 更新进度与阶段
func (m *Machine) applyDownloading(ev models.DownloadingEvent) []Effect {
	m.state = StateDownloading

	if m.kind == models.KindPlaylist {
		return m.applyPlaylistDownloading(ev)
	}

	var effects []Effect

	// 阶段切换 video → audio
	switch ev.Phase {
	case StepAudio:
		if m.phase != StepAudio {
			m.phase = StepAudio
			effects = append(effects,
				Effect{Kind: EffectStepCompleted, Step: StepVideo},
				Effect{Kind: EffectStepActive, Step: StepAudio},
			)
		}
		effects = append(effects, Effect{Kind: EffectSetLabel, Text: "Audio"})
	case StepVideo:
		if m.phase != StepVideo {
			m.phase = StepVideo
			effects = append(effects, Effect{Kind: EffectStepActive, Step: StepVideo})
		}
		effects = append(effects, Effect{Kind: EffectSetLabel, Text: "Video"})
	}

	m.updatePercent(ev.Progress)
	effects = append(effects, Effect{Kind: EffectSetPercent, Percent: m.percent})

	msg := ev.Message
	if msg == "" {
		msg = "Downloading..."
	}
	effects = append(effects, Effect{Kind: EffectSetMessage, Text: msg})

	if ev.Speed != "" || ev.Size != "" || ev.ETA != "" {
		effects = append(effects, Effect{Kind: EffectSetStats, Speed: ev.Speed, Size: ev.Size, ETA: ev.ETA})
	}

	return effects
}

// applyPlaylistDownloading 播放列表的downloading事件,带计数器
func (m *Machine) applyPlaylistDownloading(ev models.DownloadingEvent) []Effect {
	var effects []Effect

	if ev.CurrentVideo > 0 {
		m.current = ev.CurrentVideo
	}
	if ev.TotalVideos > 0 {
		m.total = ev.TotalVideos
	}
	if m.current > 0 && m.total > 0 {
		effects = append(effects, Effect{Kind: EffectSetCounter, Current: m.current, Total: m.total})
	}

	if ev.VideoTitle != "" {
		effects = append(effects, Effect{Kind: EffectSetVideoTitle, Text: ev.VideoTitle})
	}

	// 服务器没报总进度时按 已完成/总数 估算,上限留给打包阶段
	if ev.Progress != nil {
		m.updatePercent(ev.Progress)
	} else if m.current > 0 && m.total > 0 {
		estimated := float64(m.current) / float64(m.total) * playlistCeiling
		if estimated > playlistCeiling {
			estimated = playlistCeiling
		}
		m.updatePercent(&estimated)
	}
	effects = append(effects, Effect{Kind: EffectSetPercent, Percent: m.percent})

	if ev.Phase != "" {
		effects = append(effects, Effect{Kind: EffectSetLabel, Text: ev.Phase})
	}

	msg := ev.Message
	if msg == "" && m.current > 0 && m.total > 0 {
		msg = fmt.Sprintf("Downloading video %d of %d...", m.current, m.total)
	}
	if msg != "" {
		effects = append(effects, Effect{Kind: EffectSetMessage, Text: msg})
	}

	if ev.Speed != "" || ev.Size != "" || ev.ETA != "" {
		effects = append(effects, Effect{Kind: EffectSetStats, Speed: ev.Speed, Size: ev.Size, ETA: ev.ETA})
	}

	// 逐视频的关键节点记进日志
	switch ev.Phase {
	case "Starting":
		effects = append(effects, Effect{Kind: EffectLog, Text: fmt.Sprintf("Starting: %s", ev.VideoTitle), Level: LevelInfo})
	case "Completed":
		effects = append(effects, Effect{Kind: EffectLog, Text: fmt.Sprintf("Completed video %d/%d", m.current, m.total), Level: LevelSuccess})
	case "Error":
		effects = append(effects, Effect{Kind: EffectLog, Text: fmt.Sprintf("Failed video %d", m.current), Level: LevelDanger})
	}

	return effects
}

// applyProcessing processing事件: 只更新展示,不迁移状态
func (m *Machine) applyProcessing(ev models.ProcessingEvent) []Effect {
	var effects []Effect
	if ev.Message != "" {
		effects = append(effects, Effect{Kind: EffectSetMessage, Text: ev.Message})
	}
	if ev.Progress != nil {
		m.updatePercent(ev.Progress)
		effects = append(effects, Effect{Kind: EffectSetPercent, Percent: m.percent})
	}
	return effects
}

// applyMerging merging事件: 音视频合并
func (m *Machine) applyMerging(ev models.MergingEvent) []Effect {
	m.state = StateMerging

	msg := ev.Message
	if msg == "" {
		msg = "Merging files..."
	}
	return []Effect{
		{Kind: EffectStepCompleted, Step: StepAudio},
		{Kind: EffectStepActive, Step: StepMerge},
		{Kind: EffectSetMessage, Text: msg},
		{Kind: EffectSetLabel, Text: "Merging"},
	}
}

// applyZipping zipping事件: 打包阶段,进度固定到95
func (m *Machine) applyZipping(ev models.ZippingEvent) []Effect {
	m.state = StateZipping
	m.percent = 95

	msg := ev.Message
	if msg == "" {
		msg = "Creating ZIP file..."
	}
	return []Effect{
		{Kind: EffectSetMessage, Text: msg},
		{Kind: EffectSetLabel, Text: "Zipping"},
		{Kind: EffectSetPercent, Percent: 95},
		{Kind: EffectLog, Text: "Creating ZIP archive", Level: LevelInfo},
	}
}

// applyCompleted completed事件: 下载完成,等待文件就绪
func (m *Machine) applyCompleted(ev models.CompletedEvent) []Effect {
	m.state = StateCompleted
	m.percent = 100

	msg := ev.Message
	if msg == "" {
		msg = "Download completed!"
	}
	return []Effect{
		{Kind: EffectStepCompleted, Step: StepVideo},
		{Kind: EffectStepCompleted, Step: StepAudio},
		{Kind: EffectStepCompleted, Step: StepMerge},
		{Kind: EffectSetPercent, Percent: 100},
		{Kind: EffectSetMessage, Text: msg},
		{Kind: EffectSetLabel, Text: "Completed"},
	}
}

// applyReady ready事件: 终态,跳转取件
func (m *Machine) applyReady(ev models.ReadyEvent) []Effect {
	m.state = StateReady
	m.percent = 100

	sid := ev.Session
	if sid == "" {
		sid = m.sessionID
	}
	target := fmt.Sprintf("%s?session_id=%s&filename=%s",
		fileEndpoint, url.QueryEscape(sid), url.QueryEscape(ev.Filename))

	return []Effect{
		{Kind: EffectSetPercent, Percent: 100},
		{Kind: EffectRedirect, URL: target},
	}
}

// applyFinished finished事件: 播放列表终态,延迟后跳转取件
func (m *Machine) applyFinished(ev models.FinishedEvent) []Effect {
	m.state = StateFinished
	m.percent = 100

	sid := ev.Session
	if sid == "" {
		sid = m.sessionID
	}
	target := fmt.Sprintf("%s?session_id=%s&zip_name=%s",
		archiveEndpoint, url.QueryEscape(sid), url.QueryEscape(ev.ZipName))

	return []Effect{
		{Kind: EffectSetPercent, Percent: 100},
		{Kind: EffectSetMessage, Text: "Download completed! Starting file download..."},
		{Kind: EffectSetLabel, Text: "Completed"},
		{Kind: EffectLog, Text: "Download completed successfully", Level: LevelSuccess},
		{Kind: EffectRedirect, URL: target, Deferred: true},
	}
}

// terminate 进入取消/失败终态
func (m *Machine) terminate(next State, message string) []Effect {
	m.state = next

	if next == StateCancelled {
		return []Effect{
			{Kind: EffectSetMessage, Text: "Download cancelled"},
			{Kind: EffectSetLabel, Text: "Cancelled"},
			{Kind: EffectToast, Text: message, Level: LevelWarning},
		}
	}
	return []Effect{
		{Kind: EffectSetMessage, Text: fmt.Sprintf("Error: %s", message)},
		{Kind: EffectSetLabel, Text: "Error"},
		{Kind: EffectToast, Text: message, Level: LevelDanger},
	}
}

// updatePercent 进度取整并夹在[0,100],会话内单调不减;
// 进度缺失时保留上一次的值。
func (m *Machine) updatePercent(p *float64) {
	if p == nil {
		return
	}
	v := int(math.Round(*p))
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	if v < m.percent {
		return
	}
	m.percent = v
}

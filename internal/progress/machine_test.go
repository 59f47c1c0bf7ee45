package progress

import (
	"strings"
	"testing"

	"anyvidow/client/internal/models"
)

func fptr(v float64) *float64 { return &v }

// findEffect 找出第一条指定类型的副作用
func findEffect(effects []Effect, kind EffectKind) (Effect, bool) {
	for _, eff := range effects {
		if eff.Kind == kind {
			return eff, true
		}
	}
	return Effect{}, false
}

func TestMachine_SingleHappyPath(t *testing.T) {
	m := NewMachine(models.KindSingle)
	m.Start()

	m.Apply(models.StartingEvent{EventMeta: models.EventMeta{Session: "s1"}})
	if m.State() != StateDownloading {
		t.Fatalf("state after starting = %s, expected downloading", m.State())
	}

	m.Apply(models.DownloadingEvent{Phase: StepVideo, Progress: fptr(50)})
	if m.Percent() != 50 {
		t.Errorf("percent = %d, expected 50", m.Percent())
	}

	effects := m.Apply(models.DownloadingEvent{Phase: StepAudio, Progress: fptr(80)})
	if _, ok := findEffect(effects, EffectStepCompleted); !ok {
		t.Errorf("phase switch to audio should complete the video step")
	}

	m.Apply(models.MergingEvent{})
	if m.State() != StateMerging {
		t.Fatalf("state after merging = %s, expected merging", m.State())
	}

	m.Apply(models.CompletedEvent{})
	if m.Percent() != 100 {
		t.Errorf("percent after completed = %d, expected 100", m.Percent())
	}

	effects = m.Apply(models.ReadyEvent{Filename: "a.mp4"})
	if m.State() != StateReady {
		t.Fatalf("state after ready = %s, expected ready", m.State())
	}
	redirect, ok := findEffect(effects, EffectRedirect)
	if !ok {
		t.Fatal("ready event should produce a redirect effect")
	}
	if !strings.Contains(redirect.URL, "session_id=s1&filename=a.mp4") {
		t.Errorf("redirect URL = %q, expected session and filename params", redirect.URL)
	}
	if redirect.Deferred {
		t.Error("single video redirect should not be deferred")
	}
}

func TestMachine_PercentMonotonic(t *testing.T) {
	m := NewMachine(models.KindSingle)
	m.Start()
	m.Apply(models.StartingEvent{})

	tests := []struct {
		progress *float64
		expected int
	}{
		{fptr(50), 50},
		{fptr(30), 50},  // 回退被夹住
		{fptr(72.6), 73},
		{nil, 73},       // 缺失保留上一次
		{fptr(150), 100}, // 超界夹到100
		{fptr(90), 100},
	}

	for i, test := range tests {
		m.Apply(models.DownloadingEvent{Progress: test.progress})
		if m.Percent() != test.expected {
			t.Errorf("step %d: percent = %d, expected %d", i, m.Percent(), test.expected)
		}
	}
}

func TestMachine_ZippingForcesPercent(t *testing.T) {
	m := NewMachine(models.KindPlaylist)
	m.Start()
	m.Apply(models.StartingEvent{TotalVideos: 3})
	m.Apply(models.DownloadingEvent{Progress: fptr(97)})

	effects := m.Apply(models.ZippingEvent{})
	if m.State() != StateZipping {
		t.Fatalf("state = %s, expected zipping", m.State())
	}
	// 打包阶段固定95,哪怕此前进度更高
	if m.Percent() != 95 {
		t.Errorf("percent during zipping = %d, expected 95", m.Percent())
	}
	if eff, ok := findEffect(effects, EffectSetPercent); !ok || eff.Percent != 95 {
		t.Errorf("zipping should emit percent 95 effect, got %+v", eff)
	}
}

func TestMachine_PlaylistEstimatedPercent(t *testing.T) {
	m := NewMachine(models.KindPlaylist)
	m.Start()
	m.Apply(models.StartingEvent{TotalVideos: 10})

	// 服务器没报总进度,按 3/10*90 估算
	m.Apply(models.DownloadingEvent{CurrentVideo: 3, TotalVideos: 10})
	if m.Percent() != 27 {
		t.Errorf("estimated percent = %d, expected 27", m.Percent())
	}

	// 服务器报了总进度则以服务器为准
	m.Apply(models.DownloadingEvent{CurrentVideo: 4, TotalVideos: 10, Progress: fptr(40)})
	if m.Percent() != 40 {
		t.Errorf("percent = %d, expected 40", m.Percent())
	}
}

func TestMachine_PlaylistFinishedRedirect(t *testing.T) {
	m := NewMachine(models.KindPlaylist)
	m.Start()
	m.Apply(models.StartingEvent{EventMeta: models.EventMeta{Session: "p7"}, TotalVideos: 2})
	m.Apply(models.ZippingEvent{})

	effects := m.Apply(models.FinishedEvent{ZipName: "playlist.zip"})
	if m.State() != StateFinished {
		t.Fatalf("state = %s, expected finished", m.State())
	}
	if m.Percent() != 100 {
		t.Errorf("percent = %d, expected 100", m.Percent())
	}

	redirect, ok := findEffect(effects, EffectRedirect)
	if !ok {
		t.Fatal("finished event should produce a redirect effect")
	}
	if !redirect.Deferred {
		t.Error("playlist redirect should be deferred")
	}
	if !strings.Contains(redirect.URL, "session_id=p7&zip_name=playlist.zip") {
		t.Errorf("redirect URL = %q, expected session and zip_name params", redirect.URL)
	}
}

func TestMachine_TerminalIgnoresEvents(t *testing.T) {
	m := NewMachine(models.KindSingle)
	m.Start()
	m.Apply(models.StartingEvent{})
	m.Apply(models.ErrorEvent{Message: "boom"})

	if m.State() != StateError {
		t.Fatalf("state = %s, expected error", m.State())
	}
	if m.ErrorMessage() != "boom" {
		t.Errorf("ErrorMessage() = %q, expected %q", m.ErrorMessage(), "boom")
	}

	// 终态后事件一律忽略
	effects := m.Apply(models.DownloadingEvent{Progress: fptr(99)})
	if effects != nil {
		t.Errorf("expected no effects after terminal state, got %d", len(effects))
	}
	if m.State() != StateError {
		t.Errorf("state changed after terminal, got %s", m.State())
	}
}

func TestMachine_CancelLocal(t *testing.T) {
	m := NewMachine(models.KindSingle)
	m.Start()
	m.Apply(models.StartingEvent{})

	effects := m.CancelLocal()
	if m.State() != StateCancelled {
		t.Fatalf("state = %s, expected cancelled", m.State())
	}
	toast, ok := findEffect(effects, EffectToast)
	if !ok {
		t.Fatal("cancel should produce a toast effect")
	}
	if toast.Level != LevelWarning {
		t.Errorf("toast level = %s, expected warning", toast.Level)
	}

	// 重复取消不再产生副作用
	if again := m.CancelLocal(); again != nil {
		t.Errorf("second cancel produced %d effects, expected none", len(again))
	}
}

func TestMachine_SessionIDFirstNonEmpty(t *testing.T) {
	m := NewMachine(models.KindSingle)
	m.Start()
	m.Apply(models.StartingEvent{})
	m.Apply(models.DownloadingEvent{EventMeta: models.EventMeta{Session: "first"}, Progress: fptr(10)})
	m.Apply(models.DownloadingEvent{EventMeta: models.EventMeta{Session: "second"}, Progress: fptr(20)})

	// ready不带session_id时用已记住的第一个
	effects := m.Apply(models.ReadyEvent{Filename: "a.mp4"})
	redirect, ok := findEffect(effects, EffectRedirect)
	if !ok {
		t.Fatal("expected redirect effect")
	}
	if !strings.Contains(redirect.URL, "session_id=first") {
		t.Errorf("redirect URL = %q, expected first captured session id", redirect.URL)
	}
}

func TestMachine_ProcessingDisplayOnly(t *testing.T) {
	m := NewMachine(models.KindSingle)
	m.Start()
	m.Apply(models.StartingEvent{})
	m.Apply(models.DownloadingEvent{Progress: fptr(60)})

	m.Apply(models.ProcessingEvent{Message: "Extracting audio...", Progress: fptr(80)})
	if m.State() != StateDownloading {
		t.Errorf("processing should not change state, got %s", m.State())
	}
	if m.Percent() != 80 {
		t.Errorf("percent = %d, expected 80", m.Percent())
	}
}

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateIdle, false},
		{StateStarting, false},
		{StateDownloading, false},
		{StateMerging, false},
		{StateCompleted, false},
		{StateZipping, false},
		{StateReady, true},
		{StateFinished, true},
		{StateCancelled, true},
		{StateError, true},
	}

	for _, test := range tests {
		if result := test.state.IsTerminal(); result != test.expected {
			t.Errorf("State(%s).IsTerminal() = %v, expected %v", test.state, result, test.expected)
		}
	}
}

package presenter

import (
	"fmt"
	"time"

	"anyvidow/client/internal/progress"
)

// Presenter 消费状态机副作用并呈现给用户
type Presenter interface {
	Render(eff progress.Effect)
}

// maxTitleLen 当前视频标题的展示长度上限
const maxTitleLen = 80

// Console 终端呈现器
type Console struct{}

// NewConsole 创建终端呈现器
func NewConsole() *Console {
	return &Console{}
}

// Render 实现Presenter
func (p *Console) Render(eff progress.Effect) {
	switch eff.Kind {
	case progress.EffectSetMessage:
		fmt.Printf("  %s\n", eff.Text)

	case progress.EffectSetLabel:
		fmt.Printf("  [%s]\n", eff.Text)

	case progress.EffectSetPercent:
		fmt.Printf("  progress: %d%%\n", eff.Percent)

	case progress.EffectSetStats:
		fmt.Printf("  speed: %s  size: %s  eta: %s\n",
			orNA(eff.Speed), orNA(eff.Size), orNA(eff.ETA))

	case progress.EffectStepActive:
		fmt.Printf("  step %s: active\n", eff.Step)

	case progress.EffectStepCompleted:
		fmt.Printf("  step %s: done\n", eff.Step)

	case progress.EffectSetCounter:
		fmt.Printf("  video %d/%d\n", eff.Current, eff.Total)

	case progress.EffectSetVideoTitle:
		fmt.Printf("  current: %s\n", truncate(eff.Text, maxTitleLen))

	case progress.EffectLog:
		fmt.Printf("  %s [%s] %s\n", time.Now().Format("15:04:05"), eff.Level, eff.Text)

	case progress.EffectToast:
		fmt.Printf("! [%s] %s\n", eff.Level, eff.Text)

	case progress.EffectRedirect:
		fmt.Printf("  retrieving: %s\n", eff.URL)
	}
}

// orNA 空值显示为N/A
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// truncate 截断过长文本
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

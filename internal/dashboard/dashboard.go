// Package dashboard renders the resilience views in the terminal.
package dashboard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/imxin/internal/catalog"
	"github.com/fyrsmithlabs/imxin/internal/resilience"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	fetchTimeout    = 5 * time.Second
)

// Source loads the current dashboard. *client.Client satisfies it.
type Source interface {
	Dashboard(ctx context.Context) (resilience.Dashboard, error)
	BaseURL() string
}

// Model is the BubbleTea dashboard model.
type Model struct {
	source     Source
	interval   time.Duration
	lastUpdate time.Time
	data       resilience.Dashboard
	loaded     bool
	err        error
	quitting   bool

	granularityBar progress.Model
	diversityBar   progress.Model
}

// Morandi tones per quadrant.
var quadrantColors = map[catalog.Quadrant]lipgloss.Color{
	catalog.QuadrantRed:    lipgloss.Color("#C47F7A"),
	catalog.QuadrantYellow: lipgloss.Color("#D6BE84"),
	catalog.QuadrantBlue:   lipgloss.Color("#7E98B0"),
	catalog.QuadrantGreen:  lipgloss.Color("#8FA88A"),
	resilience.NoQuadrant:  lipgloss.Color("#8A8A8A"),
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2B2B2B")).
			Background(lipgloss.Color("#D8CFC4")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A3B1A0")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA5A8"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	steadyStyle = lipgloss.NewStyle().Foreground(quadrantColors[catalog.QuadrantGreen]).Bold(true)
	growStyle   = lipgloss.NewStyle().Foreground(quadrantColors[catalog.QuadrantYellow]).Bold(true)
	buildStyle  = lipgloss.NewStyle().Foreground(quadrantColors[catalog.QuadrantRed]).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).MarginTop(1)
	footerKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3B1A0")).Bold(true)
	sparkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#A3B1A0"))
	emptyCellStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// NewModel creates a dashboard that refreshes from source every interval.
func NewModel(source Source, interval time.Duration) Model {
	return Model{
		source:         source,
		interval:       interval,
		granularityBar: progress.New(progress.WithGradient("#D8CFC4", "#8FA88A"), progress.WithWidth(30)),
		diversityBar:   progress.New(progress.WithGradient("#D8CFC4", "#7E98B0"), progress.WithWidth(30)),
	}
}

type tickMsg time.Time
type dataMsg resilience.Dashboard
type errMsg struct{ err error }

// Init starts the first fetch and the refresh ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(m.interval), fetch(m.source))
}

func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetch(source Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		d, err := source.Dashboard(ctx)
		if err != nil {
			return errMsg{err}
		}
		return dataMsg(d)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetch(m.source)
		}
	case tickMsg:
		return m, tea.Batch(tick(m.interval), fetch(m.source))
	case dataMsg:
		m.data = resilience.Dashboard(msg)
		m.loaded = true
		m.lastUpdate = time.Now()
		m.err = nil
	case errMsg:
		m.err = msg.err
	}
	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	body := Render(m.data, m.granularityBar, m.diversityBar)
	if !m.loaded {
		body = headerStyle.Render(" 今心 ImXin ") + "\n\n" + dimStyle.Render("載入中…") + "\n"
	}
	updated := "尚未更新"
	if !m.lastUpdate.IsZero() {
		updated = m.lastUpdate.Format("15:04:05")
	}
	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" 離開  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" 重新整理  ") +
		footerStyle.Render(fmt.Sprintf("自動 %v · %s", m.interval, updated))
	return containerStyle.Render(body + "\n" + footer)
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" 今心 ImXin ") + "\n\n")
	b.WriteString(errorStyle.Render("⚠ 無法連線到 imxind") + "\n\n")
	b.WriteString(dimStyle.Render("URL: ") + valueStyle.Render(m.source.BaseURL()) + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	b.WriteString(footerStyle.Render("[q] quit  [r] retry") + "\n")
	return containerStyle.Render(b.String())
}

// RenderStatic renders d once with default bars, for non-interactive output.
func RenderStatic(d resilience.Dashboard) string {
	m := NewModel(nil, 0)
	return containerStyle.Render(Render(d, m.granularityBar, m.diversityBar))
}

// Render lays out every section of d.
func Render(d resilience.Dashboard, granularity, diversity progress.Model) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(" 今心 ImXin 韌性儀表板 ") + "\n")
	b.WriteString(levelBadge(d.OverallScore, d.Level) + "   " +
		dimStyle.Render(fmt.Sprintf("%d 筆紀錄", d.TotalLogs)) + "\n")

	b.WriteString(sectionStyle.Render("┃ 每日韌性") + "\n")
	scores := make([]float64, len(d.Daily))
	for i, s := range d.Daily {
		scores[i] = float64(s.Score)
	}
	b.WriteString("  " + spark(scores) + "\n")
	for _, s := range d.Daily {
		b.WriteString(labelStyle.Render("  "+s.Date) + "  " +
			valueStyle.Render(fmt.Sprintf("%3d", s.Score)) + "  " +
			dimStyle.Render(s.DominantEmotion) + "\n")
	}

	b.WriteString(sectionStyle.Render("┃ 近 30 天") + "\n")
	b.WriteString("  " + HeatmapRow(d.Heatmap) + "\n")

	b.WriteString(sectionStyle.Render("┃ 情緒強度") + "\n")
	values := make([]float64, len(d.Intensity))
	labels := make([]string, len(d.Intensity))
	for i, p := range d.Intensity {
		values[i] = float64(p.Value)
		labels[i] = fmt.Sprintf("%s:%d", p.Label, p.Value)
	}
	b.WriteString("  " + spark(values) + "\n")
	if len(labels) > 0 {
		b.WriteString("  " + dimStyle.Render(strings.Join(labels, "  ")) + "\n")
	}

	b.WriteString(sectionStyle.Render("┃ 成長") + "\n")
	b.WriteString(labelStyle.Render("  情緒詞彙 ") +
		granularity.ViewAs(ratio(d.Granularity.Percentage)) + " " +
		valueStyle.Render(fmt.Sprintf("%d/%d", d.Granularity.Count, catalog.EmotionCatalogSize)) + " " +
		dimStyle.Render(d.Granularity.Level) + "\n")
	b.WriteString(labelStyle.Render("  調節策略 ") +
		diversity.ViewAs(ratio(d.Diversity.Percentage)) + " " +
		valueStyle.Render(fmt.Sprintf("%d/%d", d.Diversity.Count, catalog.StrategyCatalogSize)) + " " +
		dimStyle.Render(d.Diversity.Level) + "\n")

	return b.String()
}

// HeatmapRow draws one square per day, coloured by dominant quadrant.
func HeatmapRow(days []resilience.HeatmapDay) string {
	var b strings.Builder
	for _, d := range days {
		if !d.HasData {
			b.WriteString(emptyCellStyle.Render("·"))
			continue
		}
		color, ok := quadrantColors[d.Quadrant]
		if !ok {
			color = quadrantColors[resilience.NoQuadrant]
		}
		cell := "■"
		if d.Intensity <= 3 {
			cell = "▪"
		}
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(cell))
	}
	return b.String()
}

func levelBadge(score int, level string) string {
	text := fmt.Sprintf("韌性 %d · %s", score, level)
	switch {
	case score > 70:
		return steadyStyle.Render("● " + text)
	case score > 40:
		return growStyle.Render("● " + text)
	}
	return buildStyle.Render("● " + text)
}

func spark(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%-*s", sparklineWidth, "尚無資料"))
	}
	s := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		s.Push(v)
	}
	s.Draw()
	return sparkStyle.Render(s.View())
}

func ratio(percentage int) float64 {
	r := float64(percentage) / 100
	if r > 1 {
		return 1
	}
	if r < 0 {
		return 0
	}
	return r
}

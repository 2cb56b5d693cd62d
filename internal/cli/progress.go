package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/taxtree/pkg/store"
)

// loadStages is the order in which store.Load reports its stages.
var loadStages = []string{
	store.StageDivisions,
	store.StageGeneticCodes,
	store.StageNames,
	store.StageNodes,
	store.StageIndexes,
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type (
	loadStageMsg struct {
		stage string
		rows  int64
	}
	loadDoneMsg struct{ err error }
	loadTickMsg struct{}
)

// loadModel is the bubbletea model showing the progress of store.Load.
type loadModel struct {
	rows    map[string]int64
	current int
	frame   int
	done    bool
	err     error
	started time.Time
}

func newLoadModel() loadModel {
	return loadModel{rows: make(map[string]int64), current: -1, started: time.Now()}
}

func loadTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg { return loadTickMsg{} })
}

func (m loadModel) Init() tea.Cmd {
	return loadTick()
}

func (m loadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadStageMsg:
		for i, s := range loadStages {
			if s == msg.stage && i >= m.current {
				m.current = i
			}
		}
		m.rows[msg.stage] = msg.rows
	case loadDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case loadTickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, loadTick()
	}
	return m, nil
}

func (m loadModel) View() string {
	var b strings.Builder
	for i, stage := range loadStages {
		var icon string
		switch {
		case m.done && m.err == nil, i < m.current:
			icon = styleIconSuccess.Render(iconSuccess)
		case m.done:
			icon = styleIconError.Render(iconError)
		case i == m.current:
			icon = styleIconSpinner.Render(spinnerFrames[m.frame%len(spinnerFrames)])
		default:
			icon = StyleDim.Render("·")
		}
		line := fmt.Sprintf("%s %-14s", icon, stage)
		if n, ok := m.rows[stage]; ok && stage != store.StageIndexes {
			line += " " + StyleNumber.Render(fmt.Sprintf("%d rows", n))
		}
		b.WriteString(line + "\n")
	}
	if !m.done {
		b.WriteString(StyleDim.Render(fmt.Sprintf("  %s elapsed", time.Since(m.started).Round(time.Second))) + "\n")
	}
	return b.String()
}

// runLoadProgram runs load while a bubbletea program renders its progress
// on w. The program stops when load returns or ctx is cancelled; the
// result of load is returned in both cases.
func runLoadProgram(ctx context.Context, w io.Writer, load func(report func(stage string, rows int64)) (store.LoadStats, error)) (store.LoadStats, error) {
	p := tea.NewProgram(newLoadModel(),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(w),
		tea.WithoutSignalHandler(),
	)

	type result struct {
		stats store.LoadStats
		err   error
	}
	finished := make(chan result, 1)
	go func() {
		stats, err := load(func(stage string, rows int64) {
			p.Send(loadStageMsg{stage: stage, rows: rows})
		})
		finished <- result{stats, err}
		p.Send(loadDoneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		loggerFromContext(ctx).Debug("progress display stopped", "error", err)
	}
	res := <-finished
	return res.stats, res.err
}

package cli

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/taxtree/pkg/store"
)

func TestLoadModel(t *testing.T) {
	var m tea.Model = newLoadModel()

	m, _ = m.Update(loadStageMsg{stage: store.StageDivisions, rows: 5})
	m, _ = m.Update(loadStageMsg{stage: store.StageNames, rows: 10})
	m, _ = m.Update(loadStageMsg{stage: store.StageNames, rows: 24})

	lm := m.(loadModel)
	if lm.current != 2 {
		t.Errorf("current = %d, want 2", lm.current)
	}
	view := lm.View()
	for _, want := range []string{"divisions", "5 rows", "names", "24 rows", "elapsed"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
	if strings.Count(view, iconSuccess) != 2 {
		t.Errorf("want the two stages before names done:\n%s", view)
	}

	// A late report of an earlier stage does not move progress back.
	m, _ = m.Update(loadStageMsg{stage: store.StageDivisions, rows: 5})
	if got := m.(loadModel).current; got != 2 {
		t.Errorf("current = %d after a late report, want 2", got)
	}

	m, cmd := m.Update(loadDoneMsg{})
	if cmd == nil {
		t.Fatal("done message should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done message should return tea.Quit")
	}
	view = m.View()
	if strings.Count(view, iconSuccess) != len(loadStages) || strings.Contains(view, "elapsed") {
		t.Errorf("final view:\n%s", view)
	}
}

func TestLoadModel_Failure(t *testing.T) {
	var m tea.Model = newLoadModel()
	m, _ = m.Update(loadStageMsg{stage: store.StageNodes, rows: 3})
	m, _ = m.Update(loadDoneMsg{err: errors.New("disk full")})

	view := m.View()
	if !strings.Contains(view, iconError) {
		t.Errorf("failed load shows no error icon:\n%s", view)
	}
	if _, cmd := m.Update(loadTickMsg{}); cmd != nil {
		t.Error("ticks after completion should stop")
	}
}

func TestRunLoadProgram(t *testing.T) {
	want := store.LoadStats{Nodes: 13, RunID: "run"}
	got, err := runLoadProgram(context.Background(), io.Discard, func(report func(string, int64)) (store.LoadStats, error) {
		for _, stage := range loadStages {
			report(stage, 1)
		}
		return want, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	boom := errors.New("boom")
	_, err = runLoadProgram(context.Background(), io.Discard, func(func(string, int64)) (store.LoadStats, error) {
		return store.LoadStats{}, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ukv-go/backend"
	"github.com/wippyai/ukv-go/build"
	"github.com/wippyai/ukv-go/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	keyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD866"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	statePick modelState = iota
	stateRunning
	stateDone
)

type stageMsg pipeline.Stage

type resultMsg struct {
	err error
	res *pipeline.Result
}

// pickerModel lets the user toggle backends and the profile, then runs
// the pipeline and shows each stage as it starts.
type pickerModel struct {
	ctx     context.Context
	cancel  context.CancelFunc
	err     error
	res     *pipeline.Result
	stages  chan pipeline.Stage
	results chan resultMsg
	on      map[backend.Flag]bool
	cfg     pipeline.Config
	current pipeline.Stage
	flags   []backend.Flag
	passed  []pipeline.Stage
	spinner spinner.Model
	cursor  int
	state   modelState

	interrupted bool
}

func newPickerModel(ctx context.Context, cfg pipeline.Config) *pickerModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = keyStyle

	ctx, cancel := context.WithCancel(ctx)
	return &pickerModel{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		flags:   backend.Flags(),
		on:      cfg.Build.Backends.Toggles(),
		spinner: sp,
		state:   statePick,
	}
}

// Rows are the backend flags followed by the profile toggle.
func (m *pickerModel) rows() int {
	return len(m.flags) + 1
}

func (m *pickerModel) Init() tea.Cmd {
	return nil
}

func (m *pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			if m.state == stateRunning {
				// The run stops at the next step boundary; quit once it reports.
				m.interrupted = true
				return m, nil
			}
			return m, tea.Quit
		case "q":
			if m.state != stateRunning {
				return m, tea.Quit
			}
		case "up", "k":
			if m.state == statePick && m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.state == statePick && m.cursor < m.rows()-1 {
				m.cursor++
			}
		case " ", "space", "x":
			if m.state == statePick {
				m.toggle()
			}
		case "enter":
			switch m.state {
			case statePick:
				return m, m.start()
			case stateDone:
				return m, tea.Quit
			}
		}

	case stageMsg:
		if m.current != "" {
			m.passed = append(m.passed, m.current)
		}
		m.current = pipeline.Stage(msg)
		return m, m.waitStage

	case resultMsg:
		if msg.err == nil && m.current != "" {
			m.passed = append(m.passed, m.current)
		}
		m.res, m.err = msg.res, msg.err
		m.state = stateDone
		if m.interrupted {
			if m.err != nil {
				m.err = fmt.Errorf("build interrupted: %w", m.err)
			}
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != stateRunning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *pickerModel) toggle() {
	if m.cursor < len(m.flags) {
		f := m.flags[m.cursor]
		m.on[f] = !m.on[f]
		return
	}
	if m.cfg.Build.Profile == build.ProfileDebug {
		m.cfg.Build.Profile = build.ProfileRelease
	} else {
		m.cfg.Build.Profile = build.ProfileDebug
	}
}

// selection returns the set picked so far. Every toggle is a known flag,
// so Select cannot fail.
func (m *pickerModel) selection() backend.Set {
	set, _ := backend.Select(m.on)
	return set
}

func (m *pickerModel) start() tea.Cmd {
	cfg := m.cfg
	cfg.Build.Backends = m.selection()
	m.stages = make(chan pipeline.Stage, len(pipeline.Stages()))
	m.results = make(chan resultMsg, 1)
	cfg.OnStage = func(s pipeline.Stage) { m.stages <- s }
	m.state = stateRunning

	stages, results := m.stages, m.results
	go func() {
		res, err := pipeline.Run(m.ctx, cfg)
		close(stages)
		results <- resultMsg{res: res, err: err}
	}()
	return tea.Batch(m.spinner.Tick, m.waitStage)
}

// waitStage delivers the next stage, or the final result once the run
// has closed the stage channel.
func (m *pickerModel) waitStage() tea.Msg {
	if s, ok := <-m.stages; ok {
		return stageMsg(s)
	}
	return <-m.results
}

func (m *pickerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("UKV Build"))
	b.WriteString(" ")
	b.WriteString(m.cfg.Build.SourceDir)
	b.WriteString("\n\n")

	switch m.state {
	case statePick:
		b.WriteString("Select backends:\n\n")
		for i, f := range m.flags {
			box := "[ ]"
			if m.on[f] {
				box = "[x]"
			}
			kind := "front end"
			if f.Storage() {
				kind = "storage"
			}
			m.line(&b, i, fmt.Sprintf("%s %-14s %s", box, f, helpStyle.Render(kind)))
		}
		m.line(&b, len(m.flags), fmt.Sprintf("    %-14s %s", "profile", m.cfg.Build.Profile))
		b.WriteString("\n")
		if !m.selection().HasStorage() {
			b.WriteString(warnStyle.Render("no storage backend selected, the library will not open databases"))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("↑/↓ move • space toggle • enter build • q quit"))

	case stateRunning:
		b.WriteString("Backends: " + m.selection().String() + "\n\n")
		m.progress(&b)
		b.WriteString("\n")
		if m.interrupted {
			b.WriteString(warnStyle.Render("interrupting, waiting for the running step to stop"))
		} else {
			b.WriteString(helpStyle.Render("ctrl+c abort"))
		}

	case stateDone:
		m.progress(&b)
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			var s strings.Builder
			printSummary(&s, m.res, true)
			b.WriteString(s.String())
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter or q quit"))
	}
	return b.String()
}

func (m *pickerModel) line(b *strings.Builder, row int, text string) {
	if row == m.cursor {
		b.WriteString(selectedStyle.Render("> " + text))
	} else {
		b.WriteString("  " + text)
	}
	b.WriteString("\n")
}

func (m *pickerModel) progress(b *strings.Builder) {
	for _, s := range m.passed {
		b.WriteString(doneStyle.Render("✓ " + string(s)))
		b.WriteString("\n")
	}
	if m.current == "" || m.state != stateRunning {
		if m.err != nil && m.current != "" {
			b.WriteString(errorStyle.Render("✗ " + string(m.current)))
			b.WriteString("\n")
		}
		return
	}
	b.WriteString(m.spinner.View() + " " + string(m.current))
	b.WriteString("\n")
}

func runInteractive(ctx context.Context, cfg pipeline.Config, w io.Writer) error {
	m := newPickerModel(ctx, cfg)
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return err
	}
	// The screen is gone after the program exits; repeat the outcome.
	if m.err != nil {
		return m.err
	}
	if m.res != nil {
		printSummary(w, m.res, true)
	}
	return nil
}

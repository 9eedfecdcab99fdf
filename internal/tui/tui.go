// Package tui is the interactive read-eval loop: a bubbletea screen for
// terminals and a line-oriented fallback for pipes.
package tui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lucasnoah/hirefactory/internal/pipeline"
)

// Runner executes one recruitment request.
type Runner interface {
	Run(ctx context.Context, raw string) (*pipeline.Report, error)
}

// IsQuit reports whether a line asks to leave the loop.
func IsQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444"))
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	// chrome is the rows taken by the title, status line, input and border.
	chrome = 7
)

type runFinishedMsg struct {
	report *pipeline.Report
	err    error
}

// Model is the interactive screen.
type Model struct {
	ctx    context.Context
	runner Runner

	input   textinput.Model
	spinner spinner.Model
	output  viewport.Model

	running bool
	pending string
	runs    int
	status  string
	failed  bool
	quit    bool
}

// New creates the interactive model.
func New(ctx context.Context, runner Runner) *Model {
	in := textinput.New()
	in.Placeholder = "Find candidate data for Raja. He's applying for SOE-1 in Bangalore..."
	in.Prompt = "> "
	in.CharLimit = 2000
	in.Width = defaultWidth - 4
	in.Focus()

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))

	vp := viewport.New(defaultWidth, defaultHeight-chrome)
	vp.SetContent(hintStyle.Render("Enter a recruitment request. Type quit, exit or q to leave."))

	return &Model{ctx: ctx, runner: runner, input: in, spinner: sp, output: vp}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) runCmd(raw string) tea.Cmd {
	return func() tea.Msg {
		rep, err := m.runner.Run(m.ctx, raw)
		return runFinishedMsg{report: rep, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.output.Width = msg.Width - 2
		m.output.Height = max(3, msg.Height-chrome)
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			return m, cmd
		}

	case runFinishedMsg:
		m.finish(msg)
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.running {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submit() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	text := strings.TrimSpace(m.input.Value())
	if IsQuit(text) {
		m.quit = true
		return m, tea.Quit
	}
	if text == "" {
		return m, nil
	}
	m.input.Reset()
	m.running = true
	m.pending = text
	m.status = ""
	return m, tea.Batch(m.spinner.Tick, m.runCmd(text))
}

func (m *Model) finish(msg runFinishedMsg) {
	m.running = false
	m.runs++
	if msg.err != nil {
		m.failed = true
		m.status = errorStyle.Render("Error: " + msg.err.Error())
		m.output.SetContent(fmt.Sprintf("Request: %s\n\n%s", m.pending, errorStyle.Render(msg.err.Error())))
		return
	}
	m.failed = false
	var b strings.Builder
	if err := msg.report.WriteText(&b); err != nil {
		m.status = errorStyle.Render("Error: " + err.Error())
		return
	}
	verdict := ""
	if out := msg.report.Output; out != nil {
		verdict = out.Review.ValidationStatus
	}
	m.status = okStyle.Render(fmt.Sprintf("Run %s finished: %s", msg.report.RunID, verdict))
	m.output.SetContent(b.String())
	m.output.GotoTop()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quit {
		return ""
	}
	status := hintStyle.Render("enter: run · ↑/↓ pgup/pgdn: scroll · esc: quit")
	switch {
	case m.running:
		status = m.spinner.View() + " running pipeline for: " + m.pending
	case m.status != "":
		status = m.status
	}
	return strings.Join([]string{
		titleStyle.Render(fmt.Sprintf("HireFactory · %d run(s)", m.runs)),
		borderStyle.Render(m.output.View()),
		status,
		m.input.View(),
	}, "\n")
}

// Run starts the full-screen interactive loop.
func Run(ctx context.Context, runner Runner) error {
	p := tea.NewProgram(New(ctx, runner), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

// RunPlain reads one request per line from in and writes each report to out,
// until end of input or a quit word. A failed run is reported and the loop
// continues.
func RunPlain(ctx context.Context, runner Runner, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	fmt.Fprintln(out, "Enter a recruitment request (quit, exit or q to leave).")
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			break
		}
		text := strings.TrimSpace(sc.Text())
		if IsQuit(text) {
			return nil
		}
		if text == "" {
			continue
		}
		rep, err := runner.Run(ctx, text)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		if err := rep.WriteText(out); err != nil {
			return err
		}
	}
	return sc.Err()
}

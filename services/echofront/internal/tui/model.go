// Package tui is the terminal rendition of the echo page.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

// APIClient is satisfied by *client.Client.
type APIClient interface {
	Hello(ctx context.Context) (string, error)
	Echo(ctx context.Context, text string) (string, error)
}

type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

type helloResultMsg struct {
	message string
	err     error
}

type echoResultMsg struct {
	message string
	err     error
}

var (
	panelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).MarginBottom(1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle  = lipgloss.NewStyle().Faint(true)
)

// Model: the greeting panel and the echo panel each run idle -> pending -> (success | error).
type Model struct {
	ctx    context.Context
	client APIClient

	helloStatus  Status
	helloMessage string
	helloError   string

	input        textinput.Model
	spinner      spinner.Model
	echoStatus   Status
	echoResponse string
}

func NewModel(ctx context.Context, client APIClient) Model {
	input := textinput.New()
	input.Placeholder = "Enter text to echo..."
	input.Focus()
	return Model{
		ctx:         ctx,
		client:      client,
		helloStatus: StatusPending,
		input:       input,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.fetchHello())
}

func (m Model) fetchHello() tea.Cmd {
	return func() tea.Msg {
		msg, err := m.client.Hello(m.ctx)
		return helloResultMsg{message: msg, err: err}
	}
}

func (m Model) sendEcho(text string) tea.Cmd {
	return func() tea.Msg {
		msg, err := m.client.Echo(m.ctx, text)
		return echoResultMsg{message: msg, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	case helloResultMsg:
		if msg.err != nil {
			m.helloStatus = StatusError
			m.helloError = errorMessage(msg.err)
			klogging.Warning(m.ctx).WithError(msg.err).Log("HelloFailed", "")
		} else {
			m.helloStatus = StatusSuccess
			m.helloMessage = msg.message
		}
		return m, nil
	case echoResultMsg:
		if msg.err != nil {
			m.echoStatus = StatusError
			m.echoResponse = "Error: " + errorMessage(msg.err)
			klogging.Warning(m.ctx).WithError(msg.err).Log("EchoFailed", "")
		} else {
			m.echoStatus = StatusSuccess
			m.echoResponse = msg.message
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the raw input unless it is blank or an echo is already pending.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	if strings.TrimSpace(text) == "" || m.echoStatus == StatusPending {
		return m, nil
	}
	m.echoStatus = StatusPending
	return m, m.sendEcho(text)
}

func errorMessage(err error) string {
	if ke, ok := err.(*kerror.Kerror); ok {
		return ke.Msg
	}
	return err.Error()
}

func (m Model) HelloStatus() Status  { return m.helloStatus }
func (m Model) EchoStatus() Status   { return m.echoStatus }
func (m Model) EchoResponse() string { return m.echoResponse }
func (m Model) InputValue() string   { return m.input.Value() }

func (m Model) View() string {
	var hello string
	switch m.helloStatus {
	case StatusPending:
		hello = m.spinner.View() + "Loading..."
	case StatusError:
		hello = errorStyle.Render("Error: " + m.helloError)
	default:
		hello = titleStyle.Render("Message:") + " " + m.helloMessage
	}

	button := "[ Send ]"
	if m.echoStatus == StatusPending {
		button = "[ " + m.spinner.View() + "Sending... ]"
	}
	echo := m.input.View() + "  " + button
	if m.echoResponse != "" {
		echo += "\n\n" + titleStyle.Render("Server Response:") + " " + m.echoResponse
	}

	return panelStyle.Render(titleStyle.Render("API Response from Echo Server:")+"\n"+hello) + "\n" +
		panelStyle.Render(titleStyle.Render("Echo Text to Server:")+"\n"+echo) + "\n" +
		helpStyle.Render("enter: send • esc/ctrl+c: quit") + "\n"
}

// Run blocks until the user quits. opts are passed to tea.NewProgram.
func Run(ctx context.Context, client APIClient, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(NewModel(ctx, client), opts...).Run()
	return err
}

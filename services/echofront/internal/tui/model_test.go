package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xinkaiwang/helloecho/libs/xklib/kerror"
	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

type fakeClient struct {
	helloErr error
	echoErr  error
	echoed   []string
}

func (f *fakeClient) Hello(ctx context.Context) (string, error) {
	if f.helloErr != nil {
		return "", f.helloErr
	}
	return "Hello World", nil
}

func (f *fakeClient) Echo(ctx context.Context, text string) (string, error) {
	f.echoed = append(f.echoed, text)
	if f.echoErr != nil {
		return "", f.echoErr
	}
	return text, nil
}

func withSilentLog(t *testing.T) {
	old := klogging.GetLogger()
	klogging.SetDefaultLogger(klogging.NewNullLogger())
	t.Cleanup(func() { klogging.SetDefaultLogger(old) })
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func typeText(t *testing.T, m Model, text string) Model {
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

func TestHelloStates(t *testing.T) {
	withSilentLog(t)
	ctx := context.Background()

	m := NewModel(ctx, &fakeClient{})
	assert.Equal(t, StatusPending, m.HelloStatus())
	assert.Contains(t, m.View(), "Loading...")

	m, _ = update(t, m, m.fetchHello()())
	assert.Equal(t, StatusSuccess, m.HelloStatus())
	assert.Contains(t, m.View(), "Hello World")
	assert.NotContains(t, m.View(), "Loading...")

	failing := &fakeClient{helloErr: kerror.Create("NetworkResponseNotOk", "Network response was not ok")}
	m = NewModel(ctx, failing)
	m, _ = update(t, m, m.fetchHello()())
	assert.Equal(t, StatusError, m.HelloStatus())
	assert.Contains(t, m.View(), "Error: Network response was not ok")
}

func TestEchoFlow(t *testing.T) {
	withSilentLog(t)
	client := &fakeClient{}
	m := NewModel(context.Background(), client)
	m = typeText(t, m, " ping ")
	assert.Equal(t, " ping ", m.InputValue())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, StatusPending, m.EchoStatus())
	assert.Contains(t, m.View(), "Sending...")

	// a second enter while pending is ignored
	_, again := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, again)

	m, _ = update(t, m, cmd())
	assert.Equal(t, StatusSuccess, m.EchoStatus())
	// raw input is sent, untrimmed
	assert.Equal(t, []string{" ping "}, client.echoed)
	assert.Equal(t, " ping ", m.EchoResponse())
	assert.Contains(t, m.View(), "Server Response:")
	assert.NotContains(t, m.View(), "Sending...")
}

func TestEchoBlankInputIgnored(t *testing.T) {
	withSilentLog(t)
	client := &fakeClient{}
	m := NewModel(context.Background(), client)
	m = typeText(t, m, "   ")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, StatusIdle, m.EchoStatus())
	assert.Empty(t, client.echoed)
}

func TestEchoError(t *testing.T) {
	withSilentLog(t)
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"kerror", kerror.Create("NetworkError", "Failed to fetch").WithErrorCode(kerror.EC_NETWORK_ERR), "Error: Failed to fetch"},
		{"plain", errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(context.Background(), &fakeClient{echoErr: tt.err})
			m = typeText(t, m, "hi")
			m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			m, _ = update(t, m, cmd())
			assert.Equal(t, StatusError, m.EchoStatus())
			assert.Equal(t, tt.want, m.EchoResponse())

			// the next submission goes out again, no retry in between
			m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			assert.NotNil(t, cmd)
			assert.Equal(t, StatusPending, m.EchoStatus())
		})
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel(context.Background(), &fakeClient{})
	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyEsc} {
		_, cmd := update(t, m, tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

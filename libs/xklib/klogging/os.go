package klogging

import "os"

var (
	currentOsProvider OsProvider = &SystemOsProvider{}
)

// OsProvider lets tests observe the exit triggered by a FatalLevel entry.
type OsProvider interface {
	Exit(code int)
}

func OsExit(code int) {
	currentOsProvider.Exit(code)
}

type SystemOsProvider struct {
}

func (provider *SystemOsProvider) Exit(code int) {
	os.Exit(code)
}

type MockOsProvider struct {
	ExitCb func(code int)
}

func NewMockOsProvider(cb func(code int)) *MockOsProvider {
	return &MockOsProvider{ExitCb: cb}
}

// SetAsDefault installs the mock and returns a func restoring the previous provider.
func (provider *MockOsProvider) SetAsDefault() func() {
	old := currentOsProvider
	currentOsProvider = provider
	return func() {
		currentOsProvider = old
	}
}

func (provider *MockOsProvider) Exit(code int) {
	if provider.ExitCb != nil {
		provider.ExitCb(code)
	}
}

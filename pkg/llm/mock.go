package llm

import (
	"context"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
)

// MockClient is a configurable mock for testing flows that call the
// upstream model. Set the function field to control behavior in tests.
type MockClient struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, returns empty string and nil error.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// Call tracking for verification
	CompleteCalls int
	LastPrompt    string
}

// NewMockClient creates a new mock with sensible defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	m.CompleteCalls++
	m.LastPrompt = prompt
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return "", nil
}

// Model implements Client.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

var _ Client = (*MockClient)(nil)

// MockFactory hands out a fixed client, recording the keys it was asked
// to resolve. KeysSeen never leaves the test process.
type MockFactory struct {
	// ClientForFunc is called when ClientFor is invoked. If nil, the
	// factory returns MockClient with a source derived from the key.
	ClientForFunc func(userKey string) (Client, CredentialSource, error)

	// Client is the default client returned if ClientForFunc is not set.
	Client *MockClient

	// ServerKey mirrors the configured shared credential. Empty means
	// only caller-supplied keys resolve.
	ServerKey string

	KeysSeen []string
}

// NewMockFactory creates a factory that resolves every request to the
// given mock client using a configured server key.
func NewMockFactory(serverKey string) *MockFactory {
	return &MockFactory{Client: NewMockClient(), ServerKey: serverKey}
}

// ClientFor implements ClientFactory.
func (f *MockFactory) ClientFor(userKey string) (Client, CredentialSource, error) {
	f.KeysSeen = append(f.KeysSeen, userKey)
	if f.ClientForFunc != nil {
		return f.ClientForFunc(userKey)
	}
	if userKey != "" {
		return f.Client, CredentialUser, nil
	}
	if f.ServerKey != "" {
		return f.Client, CredentialServer, nil
	}
	return nil, "", apperrors.ErrNoCredential
}

// Model implements ClientFactory.
func (f *MockFactory) Model() string {
	return f.Client.Model()
}

var _ ClientFactory = (*MockFactory)(nil)

package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req Request) (*Response, error)

	// Calls records every request seen, in order.
	Calls []Request
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req Request) (*Response, error) {
	m.Calls = append(m.Calls, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &Response{Content: "mock response", StopReason: StopEnd}, nil
}

// ScriptedClient replays a fixed sequence of responses, one per call.
// Once the script is exhausted it keeps returning the last entry.
type ScriptedClient struct {
	ProviderName string
	Script       []*Response
	Errs         []error
	calls        int
}

func (s *ScriptedClient) Name() string {
	if s.ProviderName == "" {
		return "scripted"
	}
	return s.ProviderName
}

func (s *ScriptedClient) Complete(ctx context.Context, req Request) (*Response, error) {
	i := s.calls
	s.calls++
	if i < len(s.Errs) && s.Errs[i] != nil {
		return nil, s.Errs[i]
	}
	if len(s.Script) == 0 {
		return &Response{Content: "scripted response", StopReason: StopEnd}, nil
	}
	if i >= len(s.Script) {
		i = len(s.Script) - 1
	}
	return s.Script[i], nil
}

// CallCount returns how many times Complete has been invoked.
func (s *ScriptedClient) CallCount() int { return s.calls }

package mock

import (
	"context"

	"github.com/savaslabs/kb/ai"
)

// MockSignalClassifier is a test double for ai.SignalClassifier.
// It allows custom behavior injection via function fields.
type MockSignalClassifier struct {
	// ClassifySignalsFunc is called by ClassifySignals if set.
	// If nil, confirms every candidate with 0.9 confidence.
	ClassifySignalsFunc func(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error)

	callCount int
}

// NewMockSignalClassifier creates a mock classifier with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockSignalClassifier() *MockSignalClassifier {
	return &MockSignalClassifier{}
}

// ClassifySignals confirms every candidate by default.
func (m *MockSignalClassifier) ClassifySignals(ctx context.Context, text string, candidates []ai.SignalCategory) ([]ai.SignalJudgment, error) {
	m.callCount++

	if m.ClassifySignalsFunc != nil {
		return m.ClassifySignalsFunc(ctx, text, candidates)
	}

	judgments := make([]ai.SignalJudgment, len(candidates))
	for i, candidate := range candidates {
		judgments[i] = ai.SignalJudgment{
			Category:   candidate,
			Confirmed:  true,
			Confidence: 0.9,
		}
	}
	return judgments, nil
}

// CallCount returns the number of times ClassifySignals was called.
func (m *MockSignalClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockSignalClassifier) Reset() {
	m.callCount = 0
	m.ClassifySignalsFunc = nil
}

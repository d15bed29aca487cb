// Copyright 2025 Savas Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package mock

import "github.com/savaslabs/kb/ai"

// MockProvider is a test double for ai.AIProvider.
// It aggregates mock embedder, classifier, and reranker instances.
type MockProvider struct {
	embedder   *MockEmbedder
	classifier *MockSignalClassifier
	reranker   *MockReranker
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns ai.AIProvider interface for consistency with production constructors.
// Use GetMockEmbedder()/GetMockClassifier()/GetMockReranker() to access
// concrete types for test assertions.
func NewMockProvider() ai.AIProvider {
	return &MockProvider{
		embedder:   NewMockEmbedder(),
		classifier: NewMockSignalClassifier(),
		reranker:   NewMockReranker(),
	}
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
// This allows full control over the behavior of each service.
func NewMockProviderWithServices(embedder *MockEmbedder, classifier *MockSignalClassifier, reranker *MockReranker) ai.AIProvider {
	return &MockProvider{
		embedder:   embedder,
		classifier: classifier,
		reranker:   reranker,
	}
}

// Embedder returns the mock embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// SignalClassifier returns the mock classifier.
func (p *MockProvider) SignalClassifier() ai.SignalClassifier {
	return p.classifier
}

// Reranker returns the mock reranker.
func (p *MockProvider) Reranker() ai.Reranker {
	return p.reranker
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock embedder for test assertions.
// This allows tests to check call counts and inject custom behavior.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockClassifier returns the underlying mock classifier for test assertions.
func (p *MockProvider) GetMockClassifier() *MockSignalClassifier {
	return p.classifier
}

// GetMockReranker returns the underlying mock reranker for test assertions.
func (p *MockProvider) GetMockReranker() *MockReranker {
	return p.reranker
}

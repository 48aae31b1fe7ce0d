package mocks

import (
	"context"

	"github.com/Dohessiekan/FinSight-Front-Back-sub001/internal/classifier"
	"github.com/stretchr/testify/mock"
)

// MockClassifier is a mock implementation of classifier.Classifier
type MockClassifier struct {
	mock.Mock
}

// Classify mocks scoring one message
func (m *MockClassifier) Classify(ctx context.Context, text string) (*classifier.Result, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*classifier.Result), args.Error(1)
}

// ClassifyBatch mocks scoring several messages
func (m *MockClassifier) ClassifyBatch(ctx context.Context, texts []string) ([]classifier.Result, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]classifier.Result), args.Error(1)
}

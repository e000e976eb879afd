package provider

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Quote(ctx context.Context, from, to string) (Quote, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(Quote), args.Error(1)
}

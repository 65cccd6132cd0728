// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"context"

	"github.com/badmuriss/warpcms-sub000/content/models"
	"github.com/badmuriss/warpcms-sub000/internal/filter"
	"github.com/stretchr/testify/mock"
)

// MockListRepository is a mock implementation of ListRepository for testing
type MockListRepository struct {
	mock.Mock
}

// List mocks the List method
func (m *MockListRepository) List(ctx context.Context, q filter.CompiledQuery) ([]models.Row, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Row), args.Error(1)
}

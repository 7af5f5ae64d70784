package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/utf4/dbay/internal/models"
)

// --- Mocks ---

// MockItemService
type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) FindAll(ctx context.Context) ([]models.Item, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Item), args.Error(1)
}

func (m *MockItemService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *MockItemService) Create(ctx context.Context, item *models.Item) (primitive.ObjectID, error) {
	args := m.Called(ctx, item)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}

func (m *MockItemService) UpdateByID(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) (*models.UpdateAck, error) {
	args := m.Called(ctx, id, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpdateAck), args.Error(1)
}

func (m *MockItemService) DeleteByID(ctx context.Context, id primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

package publish_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/utf4/dbay/internal/models"
	"github.com/utf4/dbay/internal/node"
)

// --- Mocks ---

// MockCreator
type MockCreator struct {
	mock.Mock
}

func (m *MockCreator) CreateListing(ctx context.Context, listing *models.Item) (string, error) {
	args := m.Called(ctx, listing)
	return args.String(0), args.Error(1)
}

// MockBroadcaster
type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) SendListingToContacts(ctx context.Context, listingID string) (*node.SendResult, error) {
	args := m.Called(ctx, listingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*node.SendResult), args.Error(1)
}

// MockIdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) GetHost(ctx context.Context) (*node.Host, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*node.Host), args.Error(1)
}

// MockWalletProvider
type MockWalletProvider struct {
	mock.Mock
}

func (m *MockWalletProvider) GetMiniAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

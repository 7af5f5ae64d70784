package publish_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/utf4/dbay/internal/models"
	"github.com/utf4/dbay/internal/node"
	"github.com/utf4/dbay/internal/publish"
)

var pngContent = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x01, 0x02, 0x03}

func newTestController(creator *MockCreator, broadcaster *MockBroadcaster) (*publish.Controller, *MockIdentityProvider, *MockWalletProvider) {
	identity := new(MockIdentityProvider)
	wallet := new(MockWalletProvider)
	pipeline := publish.NewPipeline(creator, broadcaster)
	return publish.NewController(identity, wallet, pipeline), identity, wallet
}

func resolveReady(t *testing.T, c *publish.Controller, identity *MockIdentityProvider, wallet *MockWalletProvider) {
	identity.On("GetHost", mock.Anything).Return(&node.Host{Pk: "H1", Name: "Alice"}, nil).Once()
	wallet.On("GetMiniAddress", mock.Anything).Return("MW1", nil).Once()
	c.Resolve(context.Background())
	assert.True(t, c.Ready())
}

func TestController_SubmitUnreachableWhileUnresolved(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)

	// Wallet resolution fails: caught, logged, address stays unresolved.
	identity.On("GetHost", mock.Anything).Return(&node.Host{Pk: "H1", Name: "Alice"}, nil)
	wallet.On("GetMiniAddress", mock.Anything).Return("", errors.New("node offline"))
	c.Resolve(context.Background())

	assert.False(t, c.Ready())

	c.SetName("Bike")
	c.SetAskingPrice("50")
	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, publish.ErrNotReady)
	assert.Equal(t, publish.Idle, c.State())
	creator.AssertNotCalled(t, "CreateListing", mock.Anything, mock.Anything)
}

func TestController_ResolveIsOnce(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)

	resolveReady(t, c, identity, wallet)
	// A second Resolve must not hit the providers again.
	c.Resolve(context.Background())
	identity.AssertNumberOfCalls(t, "GetHost", 1)
	wallet.AssertNumberOfCalls(t, "GetMiniAddress", 1)
}

func TestController_ConcurrentResolveFetchesOnce(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)

	// A slow provider forces the calls to overlap; only the first may reach
	// the providers.
	identity.On("GetHost", mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(&node.Host{Pk: "H1", Name: "Alice"}, nil)
	wallet.On("GetMiniAddress", mock.Anything).Return("MW1", nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Resolve(context.Background())
		}()
	}
	wg.Wait()

	assert.True(t, c.Ready())
	identity.AssertNumberOfCalls(t, "GetHost", 1)
	wallet.AssertNumberOfCalls(t, "GetMiniAddress", 1)
}

func TestController_RejectedImageTypeIsSilentlyDropped(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)
	resolveReady(t, c, identity, wallet)

	c.SetName("Bike")
	c.SetAskingPrice("50")
	c.AttachImage("image/webp", bytes.NewReader([]byte("RIFFxxxxWEBP")))

	// Submission proceeds with no image and no error is raised for the
	// rejected type.
	creator.On("CreateListing", mock.Anything, mock.MatchedBy(func(item *models.Item) bool {
		return item.Image == ""
	})).Return("abc123", nil)
	broadcaster.On("SendListingToContacts", mock.Anything, "abc123").Return(&node.SendResult{}, nil)

	err := c.Submit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, publish.Succeeded, c.State())
	creator.AssertExpectations(t)
}

func TestController_AcceptedImageIsEncoded(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)
	resolveReady(t, c, identity, wallet)

	c.SetName("Bike")
	c.SetAskingPrice("50")
	c.AttachImage("image/png", bytes.NewReader(pngContent))

	var sent *models.Item
	creator.On("CreateListing", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*models.Item) }).
		Return("abc123", nil)
	broadcaster.On("SendListingToContacts", mock.Anything, "abc123").Return(&node.SendResult{}, nil)

	err := c.Submit(context.Background())
	assert.NoError(t, err)

	assert.True(t, strings.HasPrefix(sent.Image, "data:image/png;base64,"))
	contentType, data, err := publish.DecodeDataURL(sent.Image)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", contentType)
	assert.Equal(t, pngContent, data)
}

func TestController_CreateFailureResetsForm(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)
	resolveReady(t, c, identity, wallet)

	c.SetName("Bike")
	c.SetAskingPrice("50")
	creator.On("CreateListing", mock.Anything, mock.Anything).Return("", errors.New("write rejected"))

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, publish.ErrCreateOrSend)
	assert.Equal(t, publish.Failed, c.State())
	assert.Equal(t, "could not create or send listing", c.FailureMessage())
	broadcaster.AssertNotCalled(t, "SendListingToContacts", mock.Anything, mock.Anything)

	// Fields were reset by the terminal transition, so an immediate
	// resubmission is incomplete.
	err = c.Submit(context.Background())
	assert.ErrorIs(t, err, publish.ErrIncompleteForm)
}

func TestController_BroadcastSoftFailure(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)
	resolveReady(t, c, identity, wallet)

	c.SetName("Bike")
	c.SetAskingPrice("50")
	creator.On("CreateListing", mock.Anything, mock.Anything).Return("abc123", nil)
	broadcaster.On("SendListingToContacts", mock.Anything, "abc123").
		Return(&node.SendResult{Message: "delivery failed"}, nil)

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, publish.ErrSendToContacts)
	assert.Equal(t, publish.Failed, c.State())
	assert.Equal(t, "could not send listing to contacts", c.FailureMessage())
	// Create still ran exactly once: the listing exists despite the failure.
	creator.AssertNumberOfCalls(t, "CreateListing", 1)
}

func TestController_PublishScenario(t *testing.T) {
	// Submit {name: Bike, image: png, asking_price: 50} with host
	// {pk: H1, name: Alice} and wallet MW1; create returns abc123 and
	// broadcast returns an empty result.
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)
	resolveReady(t, c, identity, wallet)

	c.SetName("Bike")
	c.SetAskingPrice("50")
	c.AttachImage("image/png", bytes.NewReader(pngContent))

	creator.On("CreateListing", mock.Anything, mock.MatchedBy(func(item *models.Item) bool {
		return item.Name == "Bike" &&
			item.Price == "50" &&
			item.CreatedByPk == "H1" &&
			item.CreatedByName == "Alice" &&
			item.WalletAddress == "MW1" &&
			strings.HasPrefix(item.Image, "data:image/png;base64,")
	})).Return("abc123", nil)
	broadcaster.On("SendListingToContacts", mock.Anything, "abc123").Return(&node.SendResult{}, nil)

	err := c.Submit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, publish.Succeeded, c.State())

	// Fields reset on the terminal outcome.
	err = c.Submit(context.Background())
	assert.ErrorIs(t, err, publish.ErrIncompleteForm)

	// Success is dismissed by an explicit acknowledgment.
	c.Acknowledge()
	assert.Equal(t, publish.Idle, c.State())

	creator.AssertExpectations(t)
	broadcaster.AssertExpectations(t)
}

func TestController_SingleSubmissionInFlight(t *testing.T) {
	creator := new(MockCreator)
	broadcaster := new(MockBroadcaster)
	c, identity, wallet := newTestController(creator, broadcaster)
	resolveReady(t, c, identity, wallet)

	c.SetName("Bike")
	c.SetAskingPrice("50")

	release := make(chan struct{})
	creator.On("CreateListing", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return("abc123", nil)
	broadcaster.On("SendListingToContacts", mock.Anything, "abc123").Return(&node.SendResult{}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()

	// Wait for the submission to be in flight.
	deadline := time.Now().Add(2 * time.Second)
	for c.State() != publish.Submitting {
		if time.Now().After(deadline) {
			t.Fatal("submission never entered the Submitting state")
		}
		time.Sleep(time.Millisecond)
	}

	// A second submit from the same controller is rejected outright.
	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, publish.ErrSubmitInFlight)

	close(release)
	assert.NoError(t, <-done)
	assert.Equal(t, publish.Succeeded, c.State())
	creator.AssertNumberOfCalls(t, "CreateListing", 1)
}

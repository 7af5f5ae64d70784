package publish

import (
	"context"
	"errors"
	"log"

	"github.com/utf4/dbay/internal/models"
	"github.com/utf4/dbay/internal/node"
)

// Terminal pipeline outcomes. A broadcast transport error is collapsed into
// ErrCreateOrSend, so the user cannot tell it from a create failure; only
// the soft-failure shape (node answered with a message) gets its own text.
var (
	ErrCreateOrSend   = errors.New("could not create or send listing")
	ErrSendToContacts = errors.New("could not send listing to contacts")
)

// ICreator persists a new listing and returns the store-generated id.
// Implemented by marketapi.Client.
type ICreator interface {
	CreateListing(ctx context.Context, listing *models.Item) (string, error)
}

// Pipeline runs the two-phase publication sequence: persist the listing,
// then broadcast it to contacts. The phases are ordered, each runs at most
// once per call, and there is no transaction spanning them: a listing that
// fails to broadcast stays persisted.
type Pipeline struct {
	creator     ICreator
	broadcaster node.IBroadcaster
}

// NewPipeline creates a publication pipeline.
func NewPipeline(creator ICreator, broadcaster node.IBroadcaster) *Pipeline {
	return &Pipeline{creator: creator, broadcaster: broadcaster}
}

// Publish persists the listing and broadcasts it. It returns the new
// listing id (when create succeeded) and the terminal outcome. No retries
// happen here; a caller wanting another broadcast attempt must resubmit,
// which incurs a fresh create.
func (p *Pipeline) Publish(ctx context.Context, listing *models.Item) (string, error) {
	listingID, err := p.creator.CreateListing(ctx, listing)
	if err != nil {
		log.Printf("Could not create listing: %v", err)
		return "", ErrCreateOrSend
	}
	log.Printf("Listing successfully added: %s", listingID)

	log.Println("Attempting to send listing to contacts...")
	result, err := p.broadcaster.SendListingToContacts(ctx, listingID)
	if err != nil {
		log.Printf("Could not send listing %s: %v", listingID, err)
		return listingID, ErrCreateOrSend
	}
	if result != nil && result.Message != "" {
		// Soft failure: the listing is durably created but was not
		// delivered. It is not rolled back.
		log.Printf("Broadcast of listing %s failed: %s", listingID, result.Message)
		return listingID, ErrSendToContacts
	}

	log.Println("Successfully sent listing to contacts")
	return listingID, nil
}

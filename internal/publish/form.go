package publish

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/utf4/dbay/internal/models"
	"github.com/utf4/dbay/internal/node"
)

// State is the submission state of the form.
type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrNotReady means host identity or wallet address is still
	// unresolved; until both resolve the form offers no way to submit.
	ErrNotReady = errors.New("host identity or wallet address not yet resolved")
	// ErrSubmitInFlight means a submission is already running; at most one
	// may be in flight per controller.
	ErrSubmitInFlight = errors.New("a submission is already in flight")
	// ErrIncompleteForm means a required field is empty.
	ErrIncompleteForm = errors.New("name and asking price are required")
)

// pendingImage is a selected-but-not-yet-encoded image file.
type pendingImage struct {
	contentType string
	content     io.Reader
}

// Controller owns the listing form state and its submission state machine.
// Host identity and wallet address come from two injected read-only
// capabilities, each resolved at most once.
type Controller struct {
	identity node.IIdentityProvider
	wallet   node.IWalletProvider
	pipeline *Pipeline

	mu            sync.Mutex
	host          *node.Host
	walletAddress string
	name          string
	askingPrice   string
	image         *pendingImage
	state         State
	failure       string
}

// NewController creates a form controller in the Idle state.
func NewController(identity node.IIdentityProvider, wallet node.IWalletProvider, pipeline *Pipeline) *Controller {
	return &Controller{
		identity: identity,
		wallet:   wallet,
		pipeline: pipeline,
		state:    Idle,
	}
}

// Resolve fetches the host identity and wallet address if not yet resolved.
// The lock is held across the fetches, so concurrent calls serialize and
// each capability is fetched at most once. A wallet failure is logged and
// leaves the address unresolved, keeping the form non-interactive; it is
// not an error of the controller itself.
func (c *Controller) Resolve(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.host == nil {
		h, err := c.identity.GetHost(ctx)
		if err != nil {
			log.Printf("Get host failed: %v", err)
		} else {
			c.host = h
		}
	}
	if c.walletAddress == "" {
		a, err := c.wallet.GetMiniAddress(ctx)
		if err != nil {
			log.Printf("Get Mini address failed: %v", err)
		} else {
			c.walletAddress = a
		}
	}
}

// Ready reports whether both readiness signals have resolved. While false,
// Submit is unreachable.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.host != nil && c.walletAddress != ""
}

// SetName updates the listing title field.
func (c *Controller) SetName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// SetAskingPrice updates the asking price field.
func (c *Controller) SetAskingPrice(price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.askingPrice = price
}

// AttachImage stores the selected image for the next submission. A content
// type outside the allow-list clears the selection and raises no error:
// the rejection is deliberately silent.
func (c *Controller) AttachImage(contentType string, content io.Reader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !AcceptedImageType(contentType) {
		c.image = nil
		return
	}
	c.image = &pendingImage{contentType: contentType, content: content}
}

// State returns the current submission state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FailureMessage returns the message of the last Failed transition, or "".
func (c *Controller) FailureMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Submit runs one publication attempt: encode the attached image, persist
// the listing, broadcast it. Any terminal outcome (Succeeded or Failed)
// resets the form fields. Once started, a submission always completes or
// explicitly fails; it cannot be cancelled.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.host == nil || c.walletAddress == "" {
		c.mu.Unlock()
		return ErrNotReady
	}
	if c.state == Submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	if c.name == "" || c.askingPrice == "" {
		c.mu.Unlock()
		return ErrIncompleteForm
	}
	c.state = Submitting
	c.failure = ""
	listing := &models.Item{
		Name:          c.name,
		Price:         c.askingPrice,
		CreatedByPk:   c.host.Pk,
		CreatedByName: c.host.Name,
		WalletAddress: c.walletAddress,
	}
	image := c.image
	c.mu.Unlock()

	// Encoding completes before the create phase begins. A failure here
	// propagates as a pipeline failure rather than submitting without the
	// image. No attached image (including a silently rejected one) means
	// the listing is created without one.
	if image != nil {
		encoded, err := EncodeDataURL(image.contentType, image.content)
		if err != nil {
			log.Printf("Image encoding failed: %v", err)
			c.finish(Failed, ErrCreateOrSend.Error())
			return ErrCreateOrSend
		}
		listing.Image = encoded
	}

	if _, err := c.pipeline.Publish(ctx, listing); err != nil {
		c.finish(Failed, err.Error())
		return err
	}

	c.finish(Succeeded, "")
	return nil
}

// Acknowledge dismisses a Succeeded outcome, returning the controller to
// Idle. A Failed outcome is not actionable; the user simply resubmits.
func (c *Controller) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Succeeded {
		c.state = Idle
	}
}

// finish records the terminal state and resets the form fields to their
// initial empty values, regardless of which phase failed.
func (c *Controller) finish(state State, failure string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.failure = failure
	c.name = ""
	c.askingPrice = ""
	c.image = nil
}

// Package messaging delivers a mission link to its receiver over a pluggable
// transport (Twilio SMS/WhatsApp or a linked WhatsApp account).
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/MissionLink/internal/models"
)

// Constants for service configuration
const (
	// DefaultChannelBufferSize defines the default buffer size for receipt channels
	DefaultChannelBufferSize = 100
	// DefaultChannelTimeout defines the default timeout for non-blocking channel operations
	DefaultChannelTimeout = 1 * time.Second
	// MinPhoneDigits is the shortest accepted recipient number.
	MinPhoneDigits = 6
)

// ErrServiceStopped is returned when sending through a stopped service.
var ErrServiceStopped = errors.New("messaging service stopped")

var phoneNumberRegex = regexp.MustCompile(`\D`)

// Service defines a pluggable message delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error

	// Start begins any background processing (e.g., receipt events).
	Start(ctx context.Context) error

	// Stop stops background processing and cleans up resources.
	Stop() error

	// Receipts returns a channel of receipt events (sent, delivered, read).
	Receipts() <-chan models.Receipt
}

// CanonicalizePhone strips everything but digits from a phone number. A
// leading "+" and any separators are accepted on input.
func CanonicalizePhone(recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return "", fmt.Errorf("recipient cannot be empty")
	}
	if strings.Count(recipient, "+") > 1 || (strings.Contains(recipient, "+") && !strings.HasPrefix(recipient, "+")) {
		return "", fmt.Errorf("invalid phone number %q: '+' is only allowed as a prefix", recipient)
	}

	canonical := phoneNumberRegex.ReplaceAllString(recipient, "")
	if canonical == "" {
		return "", fmt.Errorf("invalid phone number: no digits found in recipient %q", recipient)
	}
	if len(canonical) < MinPhoneDigits {
		return "", fmt.Errorf("invalid phone number: %q is too short (minimum %d digits required)", canonical, MinPhoneDigits)
	}
	return canonical, nil
}

// DeliverLink validates the recipient and sends body through svc, waiting
// briefly for the sent receipt.
func DeliverLink(ctx context.Context, svc Service, to, body string) (models.Receipt, error) {
	canonical, err := svc.ValidateAndCanonicalizeRecipient(to)
	if err != nil {
		return models.Receipt{}, err
	}
	if err := svc.SendMessage(ctx, canonical, body); err != nil {
		return models.Receipt{To: canonical, Status: models.StatusTypeFailed, Time: time.Now().Unix()}, err
	}

	select {
	case r, ok := <-svc.Receipts():
		if ok {
			return r, nil
		}
	case <-time.After(DefaultChannelTimeout):
		slog.Debug("messaging.DeliverLink: no receipt before timeout", "to", canonical)
	case <-ctx.Done():
		return models.Receipt{}, ctx.Err()
	}
	return models.Receipt{To: canonical, Status: models.StatusTypeSent, Time: time.Now().Unix()}, nil
}

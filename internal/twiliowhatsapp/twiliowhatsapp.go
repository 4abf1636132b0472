// Package twiliowhatsapp wraps the Twilio API for sending mission links by SMS or WhatsApp.
package twiliowhatsapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Channel selects how Twilio routes a message.
type Channel string

const (
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Environment variables read when an option is not supplied.
const (
	EnvAccountSID = "TWILIO_ACCOUNT_SID"
	EnvAuthToken  = "TWILIO_AUTH_TOKEN"
	EnvFromNumber = "TWILIO_FROM_NUMBER"
)

var (
	ErrMissingCredentials = errors.New("account SID and auth token must be provided")
	ErrMissingFrom        = errors.New("from number must be provided")
)

// Sender sends a text body to a canonical phone number.
type Sender interface {
	SendMessage(ctx context.Context, to string, body string) error
}

// Opts holds configuration options for the Twilio client.
type Opts struct {
	AccountSID string
	AuthToken  string
	From       string
	Channel    Channel
}

// Option defines a configuration option for the Twilio client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFrom sets the sending number, with or without a channel prefix.
func WithFrom(from string) Option {
	return func(o *Opts) { o.From = from }
}

// WithChannel selects SMS or WhatsApp delivery. WhatsApp is the default.
func WithChannel(ch Channel) Option {
	return func(o *Opts) { o.Channel = ch }
}

// Client wraps the Twilio REST API.
type Client struct {
	client  *twilio.RestClient
	from    string
	channel Channel
}

// resolve applies options over the environment fallbacks.
func resolve(opts ...Option) (Opts, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv(EnvAccountSID)
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv(EnvAuthToken)
	}
	if cfg.From == "" {
		cfg.From = os.Getenv(EnvFromNumber)
	}
	if cfg.Channel == "" {
		cfg.Channel = ChannelWhatsApp
	}
	slog.Debug("twiliowhatsapp.resolve: config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"From_set", cfg.From != "",
		"channel", cfg.Channel)

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return cfg, ErrMissingCredentials
	}
	if cfg.From == "" {
		return cfg, ErrMissingFrom
	}
	if cfg.Channel != ChannelWhatsApp && cfg.Channel != ChannelSMS {
		return cfg, fmt.Errorf("unsupported channel %q", cfg.Channel)
	}
	return cfg, nil
}

// NewClient creates a Twilio client. Options fall back to TWILIO_* variables.
func NewClient(opts ...Option) (*Client, error) {
	cfg, err := resolve(opts...)
	if err != nil {
		return nil, err
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &Client{
		client:  client,
		from:    Address(cfg.Channel, cfg.From),
		channel: cfg.Channel,
	}, nil
}

// Address formats a number for the channel. WhatsApp numbers carry a
// "whatsapp:" prefix and every number is sent in E.164 form.
func Address(ch Channel, number string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), string(ChannelWhatsApp)+":")
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	if ch == ChannelWhatsApp {
		return string(ChannelWhatsApp) + ":" + number
	}
	return number
}

// SendMessage sends a message using the Twilio API.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(Address(c.channel, to))
	params.SetFrom(c.from)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("Client.SendMessage: twilio request failed", "to", to, "channel", c.channel, "error", err)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	slog.Debug("Client.SendMessage: message sent", "to", to, "channel", c.channel, "sid", sid)
	return nil
}

// MockClient records messages instead of sending them.
type MockClient struct {
	SentMessages []SentMessage
	Err          error
}

// SentMessage is one recorded send.
type SentMessage struct {
	To   string
	Body string
}

func NewMockClient() *MockClient {
	return &MockClient{SentMessages: []SentMessage{}}
}

func (m *MockClient) SendMessage(ctx context.Context, to string, body string) error {
	if m.Err != nil {
		return m.Err
	}
	m.SentMessages = append(m.SentMessages, SentMessage{To: to, Body: body})
	return nil
}

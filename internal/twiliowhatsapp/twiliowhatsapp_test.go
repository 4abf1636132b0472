package twiliowhatsapp

import (
	"context"
	"errors"
	"testing"
)

func TestMockClient_SendMessage(t *testing.T) {
	ctx := context.Background()
	mock := NewMockClient()

	err := mock.SendMessage(ctx, "12345", "Hello Test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(mock.SentMessages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(mock.SentMessages))
	}

	if mock.SentMessages[0].Body != "Hello Test" {
		t.Errorf("expected body %q, got %q", "Hello Test", mock.SentMessages[0].Body)
	}
}

func TestMockClient_Error(t *testing.T) {
	mock := NewMockClient()
	mock.Err = errors.New("boom")

	if err := mock.SendMessage(context.Background(), "12345", "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(mock.SentMessages) != 0 {
		t.Errorf("expected nothing recorded, got %d", len(mock.SentMessages))
	}
}

func TestAddress(t *testing.T) {
	tests := []struct {
		name    string
		channel Channel
		number  string
		want    string
	}{
		{"whatsapp digits", ChannelWhatsApp, "15551234567", "whatsapp:+15551234567"},
		{"whatsapp e164", ChannelWhatsApp, "+15551234567", "whatsapp:+15551234567"},
		{"whatsapp already prefixed", ChannelWhatsApp, "whatsapp:+15551234567", "whatsapp:+15551234567"},
		{"sms digits", ChannelSMS, "15551234567", "+15551234567"},
		{"sms strips whatsapp prefix", ChannelSMS, "whatsapp:+15551234567", "+15551234567"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Address(tt.channel, tt.number); got != tt.want {
				t.Errorf("Address(%q, %q) = %q, want %q", tt.channel, tt.number, got, tt.want)
			}
		})
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	t.Setenv(EnvAccountSID, "")
	t.Setenv(EnvAuthToken, "")
	t.Setenv(EnvFromNumber, "")

	if _, err := NewClient(WithFrom("+15550000000")); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok")); !errors.Is(err, ErrMissingFrom) {
		t.Errorf("expected ErrMissingFrom, got %v", err)
	}
	if _, err := NewClient(WithAccountSID("AC123"), WithAuthToken("tok"), WithFrom("+1555"), WithChannel("pigeon")); err == nil {
		t.Error("expected error for unsupported channel")
	}
}

func TestNewClientFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvAccountSID, "AC123")
	t.Setenv(EnvAuthToken, "tok")
	t.Setenv(EnvFromNumber, "+15550000000")

	c, err := NewClient(WithChannel(ChannelSMS))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.from != "+15550000000" {
		t.Errorf("from = %q", c.from)
	}
	if c.channel != ChannelSMS {
		t.Errorf("channel = %q", c.channel)
	}
}

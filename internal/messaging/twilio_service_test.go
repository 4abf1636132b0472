package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/twiliowhatsapp"
)

func TestTwilioService_ImplementsService(t *testing.T) {
	var _ Service = (*TwilioService)(nil)
}

func TestTwilioService_SendCanonicalizes(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)

	if err := svc.SendMessage(context.Background(), "+1 (555) 123-4567", "link"); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if len(mock.SentMessages) != 1 || mock.SentMessages[0].To != "15551234567" {
		t.Fatalf("unexpected sends: %+v", mock.SentMessages)
	}
	r := <-svc.Receipts()
	if r.To != "15551234567" || r.Status != models.StatusTypeSent {
		t.Errorf("unexpected receipt %+v", r)
	}
}

func TestTwilioService_InvalidRecipient(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)

	if err := svc.SendMessage(context.Background(), "12", "link"); err == nil {
		t.Fatal("expected validation error")
	}
	if len(mock.SentMessages) != 0 {
		t.Errorf("expected no sends, got %d", len(mock.SentMessages))
	}
}

func TestTwilioService_Stopped(t *testing.T) {
	svc := NewTwilioService(twiliowhatsapp.NewMockClient())
	if err := svc.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := svc.SendMessage(context.Background(), "15551234567", "x"); !errors.Is(err, ErrServiceStopped) {
		t.Errorf("expected ErrServiceStopped, got %v", err)
	}
}

func TestCanonicalizePhone(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+15551234567", "15551234567", false},
		{"1 555 123 4567", "15551234567", false},
		{"(555) 123-4567", "5551234567", false},
		{"  +44 20 7946 0958 ", "442079460958", false},
		{"", "", true},
		{"agent", "", true},
		{"12345", "", true},
		{"1555+1234567", "", true},
		{"++15551234567", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := CanonicalizePhone(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("CanonicalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

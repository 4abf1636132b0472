package messaging

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
	"github.com/BTreeMap/MissionLink/internal/twiliowhatsapp"
	"github.com/BTreeMap/MissionLink/internal/whatsapp"
)

func TestComposeLinkMessage(t *testing.T) {
	p := models.MissionParameters{From: "FALCON", To: "NIGHTHAWK", Tone: models.ToneRomantic, Message: "DINNER AT 8"}
	link := "https://example.com/mission.html?from=FALCON&to=NIGHTHAWK&tone=romantic"

	got := ComposeLinkMessage(p, tone.Defaults[models.ToneRomantic], link)

	want := "❤️ INCOMING TRANSMISSION FOR AGENT NIGHTHAWK\nSender: FALCON\nOpen your briefing: " + link
	if got != want {
		t.Errorf("ComposeLinkMessage =\n%q\nwant\n%q", got, want)
	}
	if strings.Contains(got, "DINNER") {
		t.Error("custom message must stay inside the briefing")
	}
}

func TestComposeLinkMessageDefaults(t *testing.T) {
	got := ComposeLinkMessage(models.MissionParameters{}, tone.Preset{}, "mission.html")
	if !strings.HasPrefix(got, "INCOMING TRANSMISSION FOR AGENT AGENT\nSender: UNKNOWN AGENT\n") {
		t.Errorf("unexpected message %q", got)
	}
}

func TestDeliverLink(t *testing.T) {
	mock := twiliowhatsapp.NewMockClient()
	svc := NewTwilioService(mock)

	r, err := DeliverLink(context.Background(), svc, "+1 555 123 4567", "body")
	if err != nil {
		t.Fatalf("DeliverLink: %v", err)
	}
	if r.Status != models.StatusTypeSent || r.To != "15551234567" {
		t.Errorf("unexpected receipt %+v", r)
	}
}

func TestDeliverLinkFailure(t *testing.T) {
	mock := whatsapp.NewMockClient()
	mock.Err = errors.New("not linked")
	svc := NewWhatsAppService(mock)

	r, err := DeliverLink(context.Background(), svc, "15551234567", "body")
	if err == nil {
		t.Fatal("expected error")
	}
	if r.Status != models.StatusTypeFailed {
		t.Errorf("expected failed receipt, got %+v", r)
	}

	if _, err := DeliverLink(context.Background(), svc, "abc", "body"); err == nil {
		t.Error("expected validation error")
	}
}

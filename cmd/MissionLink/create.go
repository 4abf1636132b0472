package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/BTreeMap/MissionLink/internal/genai"
	"github.com/BTreeMap/MissionLink/internal/link"
	"github.com/BTreeMap/MissionLink/internal/messaging"
	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/terminal"
	"github.com/BTreeMap/MissionLink/internal/tone"
	"github.com/BTreeMap/MissionLink/internal/twiliowhatsapp"
	"github.com/BTreeMap/MissionLink/internal/whatsapp"
)

// Delivery transports accepted by --via
const (
	ViaTwilio    = "twilio"
	ViaTwilioSMS = "twilio-sms"
	ViaWhatsApp  = "whatsapp"
)

// createFlags holds the flags of the create command
type createFlags struct {
	Flags
	from        *string
	to          *string
	tone        *string
	msg         *string
	draft       *bool
	qr          *bool
	sendTo      *string
	via         *string
	watch       *bool
	qrOutput    *string
	numericCode *bool
}

func parseCreateFlags(args []string, env Config, stderr io.Writer) (createFlags, error) {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := createFlags{
		Flags:       registerCommonFlags(fs, env),
		from:        fs.String("from", "", "sender codename"),
		to:          fs.String("to", "", "receiver codename (required)"),
		tone:        fs.String("tone", string(models.DefaultTone), "mission tone: "+strings.Join(tone.Names(), ", ")),
		msg:         fs.String("msg", "", "custom message revealed after the briefing (with --draft, a hint for the draft)"),
		draft:       fs.Bool("draft", false, "draft the custom message with OpenAI ($OPENAI_API_KEY)"),
		qr:          fs.Bool("qr", false, "print the link as a QR code"),
		sendTo:      fs.String("send-to", "", "phone number to send the link to"),
		via:         fs.String("via", ViaTwilio, "delivery transport: twilio, twilio-sms or whatsapp"),
		watch:       fs.Bool("watch", false, "watch for the receiver's decision after creating the link"),
		qrOutput:    fs.String("qr-output", "", "path to write the WhatsApp login QR code"),
		numericCode: fs.Bool("numeric-code", false, "use a numeric WhatsApp login code instead of a QR code"),
	}
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return f, nil
}

// buildParams normalizes sender input the way the sender form does and validates it.
func buildParams(from, to, toneName, msg string) (models.MissionParameters, error) {
	p := models.MissionParameters{From: from, To: to, Tone: models.Tone(toneName), Message: msg}.Normalize()
	if p.Tone == "" {
		p.Tone = models.DefaultTone
	}
	if !tone.Valid(p.Tone) {
		return p, fmt.Errorf("unknown tone %q (choose %s)", p.Tone, strings.Join(tone.Names(), ", "))
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func runCreate(args []string, env Config, stdin *os.File, stdout, stderr io.Writer) error {
	f, err := parseCreateFlags(args, env, stderr)
	if err != nil {
		return err
	}
	closeLog, err := setup(f.Flags, stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	mission, err := loadMission(f.Flags)
	if err != nil {
		return err
	}

	p, err := buildParams(*f.from, *f.to, *f.tone, *f.msg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *f.draft {
		p.Message = draftMessage(ctx, f, env, p)
	}

	url, err := link.EncodePage(*f.baseURL, mission.MissionPage, p)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}
	preset := tone.Lookup(mission.Tones, p.Tone)
	slog.Info("runCreate: mission link created", "to", p.To, "from", p.From, "tone", p.Tone, "msg_set", p.Message != "")

	printLink(stdout, preset, p, url)
	if *f.qr {
		terminal.PrintLinkQR(stdout, url)
	}

	if *f.sendTo != "" {
		if err := sendLink(ctx, f, env, stdout, messaging.ComposeLinkMessage(p, preset, url)); err != nil {
			return err
		}
	}

	if *f.watch {
		return watch(ctx, f.Flags, mission, p.From, stdin, stdout)
	}
	return nil
}

// draftMessage asks OpenAI for the custom message. Failure keeps the typed message.
func draftMessage(ctx context.Context, f createFlags, env Config, p models.MissionParameters) string {
	opts := []genai.Option{genai.WithAPIKey(env.OpenAIKey)}
	if *f.debug {
		opts = append(opts, genai.WithDebug(*f.stateDir))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Warn("draftMessage: drafting unavailable", "error", err)
		return p.Message
	}
	drafted, err := client.DraftMessage(ctx, p, p.Message)
	if err != nil || drafted == "" {
		return p.Message
	}
	return drafted
}

func printLink(w io.Writer, preset tone.Preset, p models.MissionParameters, url string) {
	accent := lipgloss.NewStyle().Foreground(lipgloss.Color(preset.Accent)).Bold(true)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(preset.Accent)).
		Padding(0, 1)

	heading := accent.Render(strings.TrimSpace(preset.Emoji + " MISSION READY FOR AGENT " + p.To))
	fmt.Fprintln(w, box.Render(heading+"\n"+url))
}

// newDeliveryService builds the messaging service selected by --via.
// The returned func releases the underlying client.
func newDeliveryService(ctx context.Context, f createFlags, env Config, stdout io.Writer) (messaging.Service, func(), error) {
	switch *f.via {
	case ViaTwilio, ViaTwilioSMS:
		channel := twiliowhatsapp.ChannelWhatsApp
		if *f.via == ViaTwilioSMS {
			channel = twiliowhatsapp.ChannelSMS
		}
		client, err := twiliowhatsapp.NewClient(twiliowhatsapp.WithChannel(channel))
		if err != nil {
			return nil, nil, fmt.Errorf("twilio: %w", err)
		}
		return messaging.NewTwilioService(client), func() {}, nil
	case ViaWhatsApp:
		dsn := env.WhatsAppDSN
		if dsn == "" {
			dsn = "file:" + filepath.Join(*f.stateDir, whatsapp.DefaultDBFile) + "?_foreign_keys=on"
		}
		opts := []whatsapp.Option{whatsapp.WithDBDSN(dsn), whatsapp.WithQRWriter(stdout)}
		if *f.qrOutput != "" {
			opts = append(opts, whatsapp.WithQRCodeOutput(*f.qrOutput))
		}
		if *f.numericCode {
			opts = append(opts, whatsapp.WithNumericCode())
		}
		client, err := whatsapp.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("whatsapp: %w", err)
		}
		return messaging.NewWhatsAppService(client), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (choose %s, %s or %s)", *f.via, ViaTwilio, ViaTwilioSMS, ViaWhatsApp)
	}
}

func sendLink(ctx context.Context, f createFlags, env Config, stdout io.Writer, body string) error {
	svc, release, err := newDeliveryService(ctx, f, env, stdout)
	if err != nil {
		return err
	}
	defer release()

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", *f.via, err)
	}
	defer svc.Stop()

	receipt, err := messaging.DeliverLink(ctx, svc, *f.sendTo, body)
	if err != nil {
		return fmt.Errorf("send link: %w", err)
	}
	fmt.Fprintf(stdout, "Link %s to +%s via %s.\n", receipt.Status, receipt.To, *f.via)
	return nil
}

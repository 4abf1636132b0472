package messaging

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/MissionLink/internal/models"
	"github.com/BTreeMap/MissionLink/internal/tone"
)

// ComposeLinkMessage builds the text that carries a mission link to its receiver.
// The custom message is not repeated; it is revealed by the briefing.
func ComposeLinkMessage(p models.MissionParameters, preset tone.Preset, link string) string {
	p = p.WithDefaults()

	var b strings.Builder
	if preset.Emoji != "" {
		b.WriteString(preset.Emoji)
		b.WriteString(" ")
	}
	fmt.Fprintf(&b, "INCOMING TRANSMISSION FOR AGENT %s\n", p.To)
	fmt.Fprintf(&b, "Sender: %s\n", p.From)
	b.WriteString("Open your briefing: ")
	b.WriteString(link)
	return b.String()
}

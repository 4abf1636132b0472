package terminal

import (
	"io"

	"github.com/mdp/qrterminal/v3"
)

// PrintLinkQR draws link as a half-block QR code so it can be scanned from
// the sender's screen.
func PrintLinkQR(w io.Writer, link string) {
	qrterminal.GenerateHalfBlock(link, qrterminal.L, w)
}

// Package link encodes mission parameters into a shareable receiver URL and
// decodes them back. Decoding never fails: absent or malformed fields take
// their documented defaults.
package link

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/BTreeMap/MissionLink/internal/models"
)

// Query parameter keys
const (
	KeyFrom    = "from"
	KeyTo      = "to"
	KeyTone    = "tone"
	KeyMessage = "msg"
)

// DefaultMissionPage is the receiver page resolved against the link base.
const DefaultMissionPage = "mission.html"

// escape percent-encodes a value, spaces as %20.
func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}

// Query builds the query string for p. from and msg are omitted when empty;
// to and tone are always present.
func Query(p models.MissionParameters) string {
	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(escape(value))
	}

	if p.From != "" {
		write(KeyFrom, p.From)
	}
	write(KeyTo, p.To)
	write(KeyTone, string(p.Tone))
	if p.Message != "" {
		write(KeyMessage, p.Message)
	}
	return b.String()
}

// Encode returns the receiver URL for p, with the mission page resolved
// relative to base.
func Encode(base string, p models.MissionParameters) (string, error) {
	return EncodePage(base, DefaultMissionPage, p)
}

// EncodePage is Encode with an explicit receiver page.
func EncodePage(base, page string, p models.MissionParameters) (string, error) {
	u, err := resolve(base, page)
	if err != nil {
		return "", fmt.Errorf("failed to parse link base %q: %w", base, err)
	}
	u.RawQuery = Query(p)
	return u.String(), nil
}

// Sibling resolves page next to the last path segment of base. When base is
// empty or cannot be parsed the bare page is returned.
func Sibling(base, page string) string {
	if base == "" {
		return page
	}
	u, err := resolve(base, page)
	if err != nil {
		slog.Warn("link.Sibling: unparsable base, using bare page", "base", base, "page", page, "error", err)
		return page
	}
	return u.String()
}

func resolve(base, page string) (*url.URL, error) {
	b, err := url.Parse(base)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(page)
	if err != nil {
		return nil, err
	}
	return b.ResolveReference(ref), nil
}

// Decode extracts mission parameters from a full URL, a "?query" or a bare
// query. The first occurrence of each key wins. Pairs with invalid escapes
// are skipped. Unknown tones are kept verbatim; theming falls back later.
func Decode(raw string) models.MissionParameters {
	var p models.MissionParameters
	seen := make(map[string]bool, 4)

	for _, pair := range strings.Split(queryPart(raw), "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		k, err := url.QueryUnescape(key)
		if err != nil {
			slog.Debug("link.Decode: skipping malformed key", "pair", pair, "error", err)
			continue
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			slog.Debug("link.Decode: skipping malformed value", "key", k, "error", err)
			continue
		}
		if seen[k] {
			continue
		}

		switch k {
		case KeyFrom:
			p.From = v
		case KeyTo:
			p.To = v
		case KeyTone:
			p.Tone = models.Tone(v)
		case KeyMessage:
			p.Message = v
		default:
			continue
		}
		seen[k] = true
	}

	return p.WithDefaults()
}

// queryPart isolates the query of raw, dropping any fragment.
func queryPart(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '#'); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[i+1:]
	}
	// A URL or path without a query carries no parameters
	if strings.Contains(raw, "://") || strings.HasPrefix(raw, "/") || !strings.Contains(raw, "=") {
		return ""
	}
	return raw
}

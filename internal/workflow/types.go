package workflow

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"github.com/antchfx/xpath"
	"go.uber.org/zap/zapcore"
)

// DefaultMatchToken is used when an event does not carry its own token.
const DefaultMatchToken = "csv"

// Event is the trigger payload shared by both workflows.
type Event struct {
	EventID           string   `json:"eventId"`
	From              string   `json:"from,omitempty"`
	To                []string `json:"to,omitempty"`
	WebsiteURL        string   `json:"websiteUrl"`
	XPath             string   `json:"xpath,omitempty"`
	FilePrefixPattern string   `json:"filePrefixPattern,omitempty"`
	MatchToken        string   `json:"matchToken,omitempty"`

	// raw is the payload as decoded, unknown fields included.
	raw json.RawMessage
}

// UnmarshalJSON decodes the known fields and keeps the original bytes for Payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err //nolint:wrapcheck // callers wrap with ErrInvalidEvent
	}
	*e = Event(p)
	e.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Payload returns the event exactly as it was received. Events built in code, which have
// no received form, are encoded from their fields.
func (e Event) Payload() (json.RawMessage, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}

// MarshalLogObject lets zap log the event as a typed object.
func (e Event) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("eventId", e.EventID)
	if e.From != "" {
		enc.AddString("from", e.From)
	}
	if len(e.To) > 0 {
		if err := enc.AddArray("to", zapcore.ArrayMarshalerFunc(func(arr zapcore.ArrayEncoder) error {
			for _, addr := range e.To {
				arr.AppendString(addr)
			}
			return nil
		})); err != nil {
			return fmt.Errorf("encode recipients: %w", err)
		}
	}
	enc.AddString("websiteUrl", e.WebsiteURL)
	if e.XPath != "" {
		enc.AddString("xpath", e.XPath)
	}
	if e.FilePrefixPattern != "" {
		enc.AddString("filePrefixPattern", e.FilePrefixPattern)
	}
	if e.MatchToken != "" {
		enc.AddString("matchToken", e.MatchToken)
	}
	return nil
}

// Participants returns the sender and recipients carried by the event.
func (e Event) Participants() Participants {
	return Participants{From: e.From, To: e.To}
}

// ScrapeTarget returns the link-resolution input carried by the event.
// An empty match token falls back to fallback, then to DefaultMatchToken.
func (e Event) ScrapeTarget(fallback string) ScrapeTarget {
	token := e.MatchToken
	if token == "" {
		token = fallback
	}
	if token == "" {
		token = DefaultMatchToken
	}
	return ScrapeTarget{
		PageURL:    e.WebsiteURL,
		Selector:   e.XPath,
		MatchToken: token,
	}
}

// Participants is the sender plus recipients of a notification.
type Participants struct {
	From string
	To   []string
}

// Validate checks that from is set, at least one recipient exists and every address parses.
func (p Participants) Validate() error {
	if strings.TrimSpace(p.From) == "" {
		return fmt.Errorf("%w: from address is required", ErrInvalidEvent)
	}
	if len(p.To) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", ErrInvalidEvent)
	}
	for _, addr := range p.Addresses() {
		if err := validateAddress(addr); err != nil {
			return err
		}
	}
	return nil
}

// Addresses returns from followed by every recipient, in order, keeping the first occurrence
// of any repeated address.
func (p Participants) Addresses() []string {
	out := make([]string, 0, len(p.To)+1)
	seen := make(map[string]struct{}, len(p.To)+1)
	for _, addr := range append([]string{p.From}, p.To...) {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func validateAddress(addr string) error {
	parsed, err := mail.ParseAddress(addr)
	if err != nil {
		return fmt.Errorf("%w: address %q: %v", ErrInvalidEvent, addr, err)
	}
	// Display names are not accepted by the identity registry.
	if parsed.Address != addr {
		return fmt.Errorf("%w: address %q must be a bare address", ErrInvalidEvent, addr)
	}
	return nil
}

// VerificationState is the provider-tracked verification status of an identity.
type VerificationState string

// Verification states. Pending moves to Verified out of band.
const (
	Verified VerificationState = "Verified"
	Pending  VerificationState = "Pending"
	Unknown  VerificationState = "Unknown"
)

func (s VerificationState) String() string {
	return string(s)
}

// ScrapeTarget identifies the page, selector and token used to find a download link.
type ScrapeTarget struct {
	PageURL    string
	Selector   string
	MatchToken string
}

// Compile validates the target and returns the compiled selector.
func (t ScrapeTarget) Compile() (*xpath.Expr, error) {
	u, err := url.Parse(t.PageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: page url: %v", ErrInvalidEvent, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: page url %q must be absolute http(s)", ErrInvalidEvent, t.PageURL)
	}
	if t.MatchToken == "" {
		return nil, fmt.Errorf("%w: match token is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(t.Selector) == "" {
		return nil, fmt.Errorf("%w: selector is required", ErrInvalidEvent)
	}
	expr, err := xpath.Compile(t.Selector)
	if err != nil {
		return nil, fmt.Errorf("%w: selector %q: %v", ErrInvalidEvent, t.Selector, err)
	}
	return expr, nil
}

// ResolvedLink is the absolute download URL picked from the page.
type ResolvedLink struct {
	AbsoluteURL string
}

// DownloadedFile is a fully buffered download plus its sanitized advertised name.
type DownloadedFile struct {
	Bytes          []byte
	AdvertisedName string
}

// StorageKey addresses an object in a bucket.
type StorageKey struct {
	Bucket string
	Key    string
}

// EmailMessage is a multi-part message ready for the delivery provider.
type EmailMessage struct {
	Subject  string
	HTMLBody string
	TextBody string
	Charset  string
}

// UploadResult describes a completed upload.
type UploadResult struct {
	StatusCode int
	URI        string
	Digest     string
}

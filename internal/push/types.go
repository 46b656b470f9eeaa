package push

// Default assets shown when a payload carries no icon/badge of its own.
const (
	DefaultTitle = "Notification"
	DefaultIcon  = "/img/icons/icon-192x192.png"
	DefaultBadge = "/img/icons/badge-72x72.png"

	// FallbackGroup is the platform tag used when a payload carries no
	// grouping identifier at all. Same-slot replacement still applies.
	FallbackGroup = "default_group"
)

// Request is the canonical, display-ready notification unit.
//
// DestinationURL and GroupKey are independent keys:
//   - GroupKey is only ever used for platform-level tag replacement.
//   - DestinationURL is the semantic target; every grouping and close
//     decision downstream keys on it, never on GroupKey.
type Request struct {
	Title string
	Body  string
	Icon  string
	Badge string
	Image string

	// DestinationURL is empty when the payload names no target.
	// An empty destination must never cause a mass close downstream.
	DestinationURL string

	GroupKey string

	// Raw preserves the inbound payload for diagnostics. Never displayed.
	Raw map[string]any
}

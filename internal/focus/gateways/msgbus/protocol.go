package msgbus

// Command types carried over the messaging channel.
const (
	TypeCheckURL   = "check-url"
	TypeStartBreak = "start-break"
	TypeStopBreak  = "stop-break"
	TypeBlockNow   = "block-now"
	TypeUnblockNow = "unblock-now"
	TypeUnblockURL = "unblock-url"
	TypeStatus     = "status"
	TypeReload     = "reload"
	TypeActiveURL  = "active-url"
	TypeIdle       = "idle"
)

// CodeBreakLimit marks a break request rejected by the daily quota.
// It is a policy answer, not an error the client should retry.
const CodeBreakLimit = "break-limit"

// Request is one command from a UI surface or browser bridge. Duration
// is in minutes; zero means "use the configured default".
type Request struct {
	Type     string `json:"type"`
	Duration int    `json:"duration,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Response answers a Request. BreakUntil is milliseconds since epoch.
type Response struct {
	OK         bool   `json:"ok"`
	Code       string `json:"code,omitempty"`
	Error      string `json:"error,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
	Redirect   string `json:"redirect,omitempty"`
	BreakUntil int64  `json:"breakUntil,omitempty"`
	State      string `json:"state,omitempty"`
	Mode       string `json:"mode,omitempty"`
}

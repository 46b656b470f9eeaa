package push

import (
	"bytes"
	"encoding/json"
	"strings"
)

// structuredPayload is the provider's "notification message" shape: a
// display block plus an arbitrary data map.
type structuredPayload struct {
	Notification *struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Icon  string `json:"icon"`
		Image string `json:"image"`
	} `json:"notification"`
	Data map[string]any `json:"data"`
}

// Normalize converts one inbound push payload into a canonical Request.
//
// It is total: any input, including an empty slice and unparsable text,
// yields a displayable Request. A malformed payload degrades to a generic
// notification instead of being dropped - a silently lost push is a worse
// user-facing failure than a generic one.
func Normalize(raw []byte) Request {
	req := Request{
		Title:    DefaultTitle,
		Icon:     DefaultIcon,
		Badge:    DefaultBadge,
		GroupKey: FallbackGroup,
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return req
	}

	// Attempt 1: structured shape (notification block + data map).
	var sp structuredPayload
	if err := json.Unmarshal(trimmed, &sp); err == nil && sp.Notification != nil {
		n := sp.Notification
		if t := strings.TrimSpace(n.Title); t != "" {
			req.Title = t
		}
		req.Body = n.Body
		if n.Icon != "" {
			req.Icon = n.Icon
		}
		req.Image = n.Image
		req.DestinationURL = destinationFrom(sp.Data)
		req.GroupKey = groupKeyFrom(sp.Data)
		req.Raw = rawMap(trimmed)
		return req
	}

	// Attempt 2: flat JSON object.
	var flat map[string]any
	if err := json.Unmarshal(trimmed, &flat); err == nil && flat != nil {
		if t := str(flat, "title"); t != "" {
			req.Title = t
		}
		if b := str(flat, "body"); b != "" {
			req.Body = b
		} else {
			req.Body = str(flat, "text")
		}
		if v := str(flat, "icon"); v != "" {
			req.Icon = v
		}
		if v := str(flat, "badge"); v != "" {
			req.Badge = v
		}
		req.Image = str(flat, "image")

		// A flat payload may still nest a data map with the url.
		if d, ok := flat["data"].(map[string]any); ok {
			if u := destinationFrom(d); u != "" {
				req.DestinationURL = u
			}
		}
		if req.DestinationURL == "" {
			req.DestinationURL = destinationFrom(flat)
		}
		req.GroupKey = groupKeyFrom(flat)
		req.Raw = flat
		return req
	}

	// Attempt 3: plain text blob. Keep it visible under a generic title.
	req.Body = string(trimmed)
	return req
}

// destinationFrom derives the semantic target: explicit url first, then the
// click-target field. Empty when the payload names none.
func destinationFrom(m map[string]any) string {
	for _, key := range []string{"url", "clickAction", "click_action"} {
		if v := str(m, key); v != "" {
			return v
		}
	}
	return ""
}

// groupKeyFrom derives the platform tag: explicit group id, then alert
// identifier, then tag, then message id, else the fallback group.
func groupKeyFrom(m map[string]any) string {
	for _, key := range []string{"group", "alert_id", "alertId", "tag", "messageId", "message_id"} {
		if v := str(m, key); v != "" {
			return v
		}
	}
	return FallbackGroup
}

func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func rawMap(b []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil
	}
	return m
}

package session

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"github.com/aalemi-dev/schema-evolution-lab/router"
)

// Inbound request types. Any other type is a generate request.
const (
	TypeSetupConnect = "setup-connect"
	TypeSubscribe    = "subscribe"
	TypeUnsubscribe  = "unsubscribe"
)

// Request is one inbound observer frame.
type Request struct {
	Type          string      `json:"type"`
	BatchCount    json.Number `json:"batch_count,omitempty"`
	StreamTopic   string      `json:"stream_topic,omitempty"`
	StreamVersion string      `json:"stream_version,omitempty"`
}

// Count parses batch_count, which browsers send as a number or a string.
func (r Request) Count() (int, error) {
	if r.BatchCount == "" {
		return 0, fmt.Errorf("batch_count is required")
	}
	n, err := strconv.Atoi(r.BatchCount.String())
	if err != nil {
		return 0, fmt.Errorf("invalid batch_count %q", r.BatchCount)
	}
	return n, nil
}

var frameAPI = sonic.Config{UseNumber: true}.Froze()

// ParseRequest decodes an inbound frame. batch_count may be quoted.
func ParseRequest(data []byte) (Request, error) {
	var raw map[string]interface{}
	if err := frameAPI.Unmarshal(data, &raw); err != nil {
		return Request{}, fmt.Errorf("invalid request: %w", err)
	}

	req := Request{}
	req.Type, _ = raw["type"].(string)
	req.StreamTopic, _ = raw["stream_topic"].(string)
	req.StreamVersion, _ = raw["stream_version"].(string)
	switch v := raw["batch_count"].(type) {
	case json.Number:
		req.BatchCount = v
	case string:
		req.BatchCount = json.Number(v)
	}

	if req.Type == "" {
		return Request{}, fmt.Errorf("invalid request: missing type")
	}
	return req, nil
}

// Frame is one outbound emission.
type Frame struct {
	DisplayArea string                   `json:"display_area"`
	TopicName   string                   `json:"topic_name"`
	Messages    []map[string]interface{} `json:"messages"`
}

// FormatTimestamp renders t as "HH:MM:SS-mmm".
func FormatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s-%03d", t.Format("15:04:05"), t.Nanosecond()/int(time.Millisecond))
}

// NewFrame renders e. Incompatible emissions carry the error instead of the
// record fields.
func NewFrame(e router.Emission) Frame {
	msg := make(map[string]interface{}, len(e.Record)+3)
	for k, v := range e.Record {
		msg[k] = v
	}
	if e.Record == nil && e.Error != "" {
		msg["error"] = e.Error
	}
	msg["timestamp"] = FormatTimestamp(e.Timestamp)
	msg["version"] = e.Version

	return Frame{
		DisplayArea: e.DisplayArea,
		TopicName:   e.Topic,
		Messages:    []map[string]interface{}{msg},
	}
}

// Encode marshals the frame.
func (f Frame) Encode() ([]byte, error) {
	return sonic.Marshal(f)
}

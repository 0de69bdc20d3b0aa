package objectstore

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cast-iron/crucible/types"
)

// notification is the slice of the bucket notification payload the worker
// cares about. Key is "bucket/path"; EventName is the S3 event name.
type notification struct {
	Key       string `json:"Key"`
	EventName string `json:"EventName"`
}

// ParseNotification converts a raw bucket notification into an ObjectEvent.
// Removal events map to delete; everything else counts as a put.
func ParseNotification(raw []byte) (types.ObjectEvent, error) {
	var n notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return types.ObjectEvent{}, fmt.Errorf("decode notification: %w", err)
	}

	namespace, path, found := strings.Cut(n.Key, "/")
	if !found || namespace == "" || path == "" {
		return types.ObjectEvent{}, fmt.Errorf("notification key %q: want namespace/path", n.Key)
	}

	eventType := types.EventPut
	if strings.HasPrefix(n.EventName, "s3:ObjectRemoved") {
		eventType = types.EventDelete
	}

	return types.ObjectEvent{
		ID:   types.NewObjectID(namespace, path),
		Type: eventType,
	}, nil
}

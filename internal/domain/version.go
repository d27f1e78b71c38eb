package domain

import (
	"encoding/json"
	"reflect"
	"time"
)

// VersionSnapshot is an immutable copy of a prompt at a given version number.
type VersionSnapshot struct {
	Version   int                `json:"version"`
	EntityID  int                `json:"prompt_id"`
	Snapshot  PromptRecord       `json:"snapshot"`
	Message   string             `json:"message,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	Strategy  string             `json:"strategy,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// SnapshotOptions are the optional annotations attached to a new version.
type SnapshotOptions struct {
	Message  string
	Strategy string
	Metrics  map[string]float64
}

// sameMetadata compares metadata maps by their JSON form, so values that went
// through a disk round trip (ints become float64) still compare equal.
func sameMetadata(a, b map[string]interface{}) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return string(ra) == string(rb)
}

// UnmarshalJSON reads snapshots with RFC 3339 or zone-less ISO timestamps.
func (v *VersionSnapshot) UnmarshalJSON(data []byte) error {
	type plain VersionSnapshot
	aux := struct {
		*plain
		CreatedAt Timestamp `json:"created_at"`
	}{plain: (*plain)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.CreatedAt = aux.CreatedAt.Time
	return nil
}

package models

import (
	"encoding/json"
	"time"
)

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// Timestamp decodes the pipeline's timestamps, which arrive with or
// without a zone. Empty strings, null and unparseable values decode to the
// zero time instead of failing the whole response.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			t.Time = tm
			return nil
		}
	}
	t.Time = time.Time{}
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

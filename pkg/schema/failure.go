package schema

import (
	"encoding/json"
	"errors"
)

// FailedSegment records a segment whose extraction produced nothing usable,
// with the raw model output kept for diagnostics. The pipeline treats these
// as degraded output, never as request failures.
type FailedSegment struct {
	Reason     string `json:"reason"`
	Text       string `json:"text"`
	Compressed string `json:"compressed,omitzero"`

	Error error  `json:"-"`
	Raw   string `json:"raw,omitzero"`
}

type failedAlias struct {
	Reason     string `json:"reason"`
	Text       string `json:"text"`
	Compressed string `json:"compressed,omitzero"`
	Error      string `json:"error,omitzero"`
	Raw        string `json:"raw,omitzero"`
}

// Value receiver: Failed maps hold FailedSegment values, and map values
// only see value-receiver methods when encoding.
func (f FailedSegment) MarshalJSON() ([]byte, error) {
	a := failedAlias{
		Reason:     f.Reason,
		Text:       f.Text,
		Compressed: f.Compressed,
		Raw:        f.Raw,
	}
	if f.Error != nil {
		a.Error = f.Error.Error()
	}

	return json.Marshal(a)
}

func (f *FailedSegment) UnmarshalJSON(data []byte) error {
	var a failedAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	f.Reason = a.Reason
	f.Text = a.Text
	f.Compressed = a.Compressed
	if a.Error != "" {
		f.Error = errors.New(a.Error)
	}
	f.Raw = a.Raw

	return nil
}

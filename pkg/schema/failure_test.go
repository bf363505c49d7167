package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestFailedSegmentMarshalsErrorInsideMap(t *testing.T) {
	failed := map[string]FailedSegment{
		"segment-1": {
			Reason: "batched extraction produced nothing",
			Text:   "Tom opened the door.",
			Raw:    "not json",
			Error:  errors.New("engine unavailable"),
		},
	}

	data, err := json.Marshal(failed)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"error":"engine unavailable"`) {
		t.Errorf("carried error not serialized: %s", data)
	}
	if !strings.Contains(string(data), `"raw":"not json"`) {
		t.Errorf("raw output not serialized: %s", data)
	}
}

func TestFailedSegmentRoundTrip(t *testing.T) {
	in := FailedSegment{
		Reason: "no names extracted",
		Text:   "prose",
		Error:  errors.New("timeout"),
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}

	var out FailedSegment
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Reason != in.Reason || out.Text != in.Text {
		t.Errorf("round trip = %+v", out)
	}
	if out.Error == nil || out.Error.Error() != "timeout" {
		t.Errorf("error = %v", out.Error)
	}
}

package json

import (
	"bytes"
	"strings"
	"testing"
)

type testOptions struct {
	MaxPixel int    `json:"maxPixel" default:"2500"`
	MimeType string `json:"mimetype" default:"image/jpeg"`
	Thumb    bool   `json:"thumb"`
}

func TestUnmarshalAppliesDefaultsForMissingFields(t *testing.T) {
	var opts testOptions
	if err := Unmarshal([]byte(`{"thumb":true}`), &opts); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}

	if opts.MaxPixel != 2500 {
		t.Fatalf("expected default MaxPixel=2500, got %d", opts.MaxPixel)
	}
	if opts.MimeType != "image/jpeg" {
		t.Fatalf("expected default mimetype, got %q", opts.MimeType)
	}
	if !opts.Thumb {
		t.Fatalf("expected thumb from input")
	}
}

func TestUnmarshalKeepsProvidedValues(t *testing.T) {
	var opts testOptions
	if err := Unmarshal([]byte(`{"maxPixel":200,"mimetype":"image/png"}`), &opts); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if opts.MaxPixel != 200 || opts.MimeType != "image/png" {
		t.Fatalf("provided values overwritten: %+v", opts)
	}
}

func TestMarshalNonStructValues(t *testing.T) {
	data, err := Marshal(map[string]int{"jobs_total": 3})
	if err != nil {
		t.Fatalf("Marshal map returned error: %v", err)
	}
	if string(data) != `{"jobs_total":3}` {
		t.Fatalf("unexpected output %s", data)
	}
}

func TestEncoderDecoderRoundTripWithDefaults(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(&testOptions{Thumb: true}); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), `"maxPixel":2500`) {
		t.Fatalf("encoded output missing defaults: %s", buf.String())
	}

	var decoded testOptions
	if err := NewDecoder(strings.NewReader(`{}`)).Decode(&decoded); err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if decoded.MaxPixel != 2500 {
		t.Fatalf("expected decoded default, got %d", decoded.MaxPixel)
	}
}

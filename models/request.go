package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Preset values accepted by the pipeline.
const (
	Duration15s = "15s"
	Duration30s = "30s"
	Duration60s = "60s"
	Duration90s = "90s"

	AspectLandscape = "16:9"
	AspectPortrait  = "9:16"
	AspectSquare    = "1:1"
	AspectFeed      = "4:5"

	StyleRealistic   = "realistic"
	StyleCinematic   = "cinematic"
	StyleAnime       = "anime"
	StyleCartoon     = "cartoon"
	StyleDocumentary = "documentary"

	PlatformYouTube   = "youtube"
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
)

var (
	Durations    = []string{Duration15s, Duration30s, Duration60s, Duration90s}
	AspectRatios = []string{AspectLandscape, AspectPortrait, AspectSquare, AspectFeed}
	Styles       = []string{StyleRealistic, StyleCinematic, StyleAnime, StyleCartoon, StyleDocumentary}
	Platforms    = []string{PlatformYouTube, PlatformTikTok, PlatformInstagram, PlatformFacebook}
)

var ErrInvalidRequest = errors.New("invalid generation request")

// GenerationRequest is what the user submits. It is not modified after
// Normalize has run.
type GenerationRequest struct {
	Prompt      string   `json:"prompt"`
	Duration    string   `json:"duration"`
	AspectRatio string   `json:"aspect_ratio"`
	Style       string   `json:"style"`
	Language    string   `json:"language"`
	Platforms   []string `json:"platforms"`
	AutoPublish bool     `json:"auto_publish"`
}

// IsBlank reports whether the prompt is empty after trimming.
func (r GenerationRequest) IsBlank() bool {
	return strings.TrimSpace(r.Prompt) == ""
}

// Normalize trims the prompt and fills unset presets with defaults.
func (r GenerationRequest) Normalize() GenerationRequest {
	r.Prompt = strings.TrimSpace(r.Prompt)
	if r.Duration == "" {
		r.Duration = Duration30s
	}
	if r.AspectRatio == "" {
		r.AspectRatio = AspectPortrait
	}
	if r.Style == "" {
		r.Style = StyleCinematic
	}
	if r.Language == "" {
		r.Language = "en"
	}
	if r.Platforms == nil {
		r.Platforms = []string{}
	}
	return r
}

func (r GenerationRequest) Validate() error {
	if r.IsBlank() {
		return fmt.Errorf("%w: prompt is empty", ErrInvalidRequest)
	}
	if !contains(Durations, r.Duration) {
		return fmt.Errorf("%w: unsupported duration %q", ErrInvalidRequest, r.Duration)
	}
	if !contains(AspectRatios, r.AspectRatio) {
		return fmt.Errorf("%w: unsupported aspect ratio %q", ErrInvalidRequest, r.AspectRatio)
	}
	if !contains(Styles, r.Style) {
		return fmt.Errorf("%w: unsupported style %q", ErrInvalidRequest, r.Style)
	}
	for _, p := range r.Platforms {
		if !contains(Platforms, p) {
			return fmt.Errorf("%w: unsupported platform %q", ErrInvalidRequest, p)
		}
	}
	return nil
}

func (r GenerationRequest) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *GenerationRequest) Scan(value interface{}) error {
	return scanJSON(value, r)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// scanJSON backs the sql.Scanner implementations of the JSON columns.
func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("failed to unmarshal JSON value: %v", value)
	}
}

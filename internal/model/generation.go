package model

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const (
	MaxPromptLength = 500
	MinImageCount   = 1
	MaxImageCount   = 4

	// TrialKindImage is the usage tag sent when consuming a trial
	TrialKindImage = "image_generation"
)

// Ratio is an output aspect ratio supported by the backend
type Ratio string

const (
	RatioSquare   Ratio = "1:1"
	RatioWide     Ratio = "16:9"
	RatioTall     Ratio = "9:16"
	RatioClassic  Ratio = "4:3"
	RatioPortrait Ratio = "3:4"
	DefaultRatio        = RatioSquare
)

// RatioInfo describes a ratio as listed by the backend
type RatioInfo struct {
	Value Ratio  `json:"value"`
	Label string `json:"label"`
	Size  string `json:"size"`
}

// SupportedRatios in the order they are offered
var SupportedRatios = []RatioInfo{
	{Value: RatioSquare, Label: "Square (1:1)", Size: "1024*1024"},
	{Value: RatioWide, Label: "Landscape (16:9)", Size: "1344*768"},
	{Value: RatioTall, Label: "Portrait (9:16)", Size: "768*1344"},
	{Value: RatioClassic, Label: "Classic (4:3)", Size: "1152*896"},
	{Value: RatioPortrait, Label: "Portrait (3:4)", Size: "896*1152"},
}

// ParseRatio validates a ratio string; empty means the default
func ParseRatio(s string) (Ratio, error) {
	if s == "" {
		return DefaultRatio, nil
	}
	for _, r := range SupportedRatios {
		if string(r.Value) == s {
			return r.Value, nil
		}
	}
	return "", fmt.Errorf("unsupported ratio %q", s)
}

// Size returns the backend size string for the ratio
func (r Ratio) Size() string {
	for _, info := range SupportedRatios {
		if info.Value == r {
			return info.Size
		}
	}
	return SupportedRatios[0].Size
}

// Next cycles to the following supported ratio
func (r Ratio) Next() Ratio {
	for i, info := range SupportedRatios {
		if info.Value == r {
			return SupportedRatios[(i+1)%len(SupportedRatios)].Value
		}
	}
	return DefaultRatio
}

// GenerationRequest is the body sent to /generate
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	Ratio  Ratio  `json:"ratio"`
	Count  int    `json:"count"`
}

// TruncatePrompt cuts a prompt to MaxPromptLength characters
func TruncatePrompt(prompt string) string {
	runes := []rune(prompt)
	if len(runes) <= MaxPromptLength {
		return prompt
	}
	return string(runes[:MaxPromptLength])
}

// NewGenerationRequest builds a request with the prompt trimmed and capped.
// It does not validate; see Validate.
func NewGenerationRequest(prompt string, ratio Ratio, count int) GenerationRequest {
	if ratio == "" {
		ratio = DefaultRatio
	}
	return GenerationRequest{
		Prompt: strings.TrimSpace(TruncatePrompt(prompt)),
		Ratio:  ratio,
		Count:  count,
	}
}

// Image is a single generated image
type Image struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64"`
}

// Decode returns the raw image bytes and mime type.
// Both plain base64 and data URIs are accepted.
func (img Image) Decode() ([]byte, string, error) {
	data := img.Base64
	mime := "image/png"
	if strings.HasPrefix(data, "data:") {
		header, payload, ok := strings.Cut(data, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data uri")
		}
		header = strings.TrimPrefix(header, "data:")
		if m, _, found := strings.Cut(header, ";"); found && m != "" {
			mime = m
		}
		data = payload
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return raw, mime, nil
}

// DataURI returns the image as a data URI
func (img Image) DataURI() string {
	if strings.HasPrefix(img.Base64, "data:") {
		return img.Base64
	}
	return "data:image/png;base64," + img.Base64
}

// ResultGroup is the set of images produced by one generate action
type ResultGroup struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Ratio     Ratio     `json:"ratio"`
	Images    []Image   `json:"images"`
	CreatedAt time.Time `json:"created_at"`
}

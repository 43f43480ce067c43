package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

const visionPrompt = "Look at this fridge photo and return ONLY a JSON array " +
	"of visible, usable food ingredients using short names. Example: " +
	`["milk", "eggs", "cheddar cheese"].`

const mockVisionReply = `["milk", "eggs", "cheddar cheese", "spinach"]`

// VisionService detects ingredients in a photo with a vision capable chat model
type VisionService struct {
	chat  Completer
	model string
	mock  bool
	log   logrus.FieldLogger
}

// NewVisionService creates a VisionService. With mock set the model is never called.
func NewVisionService(chat Completer, model string, mock bool, log logrus.FieldLogger) *VisionService {
	return &VisionService{
		chat:  chat,
		model: model,
		mock:  mock,
		log:   log.WithField("component", "vision"),
	}
}

// DetectIngredients returns the cleaned ingredient labels visible in the image
func (s *VisionService) DetectIngredients(ctx context.Context, image []byte, contentType string) ([]string, error) {
	raw := mockVisionReply
	if !s.mock {
		dataURL := fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(image))
		reply, err := s.chat.Complete(ctx, ChatRequest{
			Model: s.model,
			Messages: []Message{{
				Role: "user",
				Content: []ContentPart{
					{Type: "text", Text: visionPrompt},
					{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}},
				},
			}},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to detect ingredients: %w", err)
		}
		raw = reply
	}

	ingredients := ParseIngredients(raw)
	s.log.WithField("count", len(ingredients)).Debug("detected ingredients")
	return ingredients, nil
}

// ParseIngredients reads a model reply as a JSON array of strings, falling back to a
// comma separated list. Labels are lowercased, trimmed and de-duplicated in order.
func ParseIngredients(raw string) []string {
	raw = extractJSON(raw)

	var labels []string
	if err := json.Unmarshal([]byte(raw), &labels); err != nil {
		// a partially decoded array must not leak into the fallback
		labels = nil
		trimmed := strings.Trim(raw, "[] \n\t")
		for _, part := range strings.Split(trimmed, ",") {
			labels = append(labels, strings.Trim(part, ` "'`+"\n\t"))
		}
	}

	seen := make(map[string]bool, len(labels))
	cleaned := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.ToLower(strings.TrimSpace(label))
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		cleaned = append(cleaned, label)
	}
	return cleaned
}

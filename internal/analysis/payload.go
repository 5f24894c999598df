package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storyframe-backend/pkg/errors"
)

const statusSuccess = "success"

// Kind tags an entry decoded from an analysis payload.
type Kind string

const (
	KindLabel    Kind = "label"
	KindObject   Kind = "object"
	KindProposal Kind = "question"
)

// Item is one validated entry of an analysis payload.
type Item interface {
	Kind() Kind
}

// LabelResult is a scene label detected in the image.
type LabelResult struct {
	Description string
	Score       float64
}

func (LabelResult) Kind() Kind { return KindLabel }

// ObjectResult is a localized object detected in the image.
type ObjectResult struct {
	Name  string
	Score float64
}

func (ObjectResult) Kind() Kind { return KindObject }

// QuestionProposal is a prompt suggested by the analysis engine.
type QuestionProposal struct {
	Content  string
	Category string
}

func (QuestionProposal) Kind() Kind { return KindProposal }

// Payload is a decoded analysis response. Items keeps payload order:
// labels, then objects, then question proposals.
type Payload struct {
	Status string
	Items  []Item
}

func (p Payload) Labels() []LabelResult {
	var out []LabelResult
	for _, item := range p.Items {
		if label, ok := item.(LabelResult); ok {
			out = append(out, label)
		}
	}
	return out
}

func (p Payload) Objects() []ObjectResult {
	var out []ObjectResult
	for _, item := range p.Items {
		if obj, ok := item.(ObjectResult); ok {
			out = append(out, obj)
		}
	}
	return out
}

func (p Payload) Proposals() []QuestionProposal {
	var out []QuestionProposal
	for _, item := range p.Items {
		if proposal, ok := item.(QuestionProposal); ok {
			out = append(out, proposal)
		}
	}
	return out
}

type wirePayload struct {
	Status         string              `json:"status"`
	Message        string              `json:"message"`
	AnalysisResult *wireAnalysisResult `json:"analysis_result"`
	Questions      []json.RawMessage   `json:"questions"`
}

type wireAnalysisResult struct {
	Labels  []json.RawMessage `json:"labels"`
	Objects []json.RawMessage `json:"objects"`
}

type wireLabel struct {
	Description *string  `json:"description"`
	Score       *float64 `json:"score"`
}

type wireObject struct {
	Name  *string  `json:"name"`
	Score *float64 `json:"score"`
}

type wireProposal struct {
	Question *string `json:"question"`
	Content  *string `json:"content"`
	Category string  `json:"category"`
}

// Decode validates raw and returns the tagged entries it carries. Every
// malformed shape is reported as a validation error naming the field.
func Decode(raw []byte) (Payload, error) {
	var wire wirePayload
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Payload{}, invalid("payload", fmt.Sprintf("payload is not a JSON object: %v", err))
	}

	status := strings.ToLower(strings.TrimSpace(wire.Status))
	if status != statusSuccess {
		msg := fmt.Sprintf("analysis status %q", wire.Status)
		if m := strings.TrimSpace(wire.Message); m != "" {
			msg += ": " + m
		}
		return Payload{}, invalid("status", msg)
	}

	payload := Payload{Status: status}
	if wire.AnalysisResult != nil {
		for i, entry := range wire.AnalysisResult.Labels {
			label, err := decodeLabel(entry, i)
			if err != nil {
				return Payload{}, err
			}
			payload.Items = append(payload.Items, label)
		}
		for i, entry := range wire.AnalysisResult.Objects {
			obj, err := decodeObject(entry, i)
			if err != nil {
				return Payload{}, err
			}
			payload.Items = append(payload.Items, obj)
		}
	}
	for i, entry := range wire.Questions {
		proposal, err := decodeProposal(entry, i)
		if err != nil {
			return Payload{}, err
		}
		payload.Items = append(payload.Items, proposal)
	}
	return payload, nil
}

func decodeLabel(raw json.RawMessage, idx int) (LabelResult, error) {
	field := fmt.Sprintf("analysis_result.labels[%d]", idx)
	var wire wireLabel
	if err := decodeObjectEntry(raw, &wire); err != nil {
		return LabelResult{}, invalid(field, "label must be an object")
	}
	if wire.Description == nil || strings.TrimSpace(*wire.Description) == "" {
		return LabelResult{}, invalid(field+".description", "label description is required")
	}
	score, err := checkScore(wire.Score, field+".score")
	if err != nil {
		return LabelResult{}, err
	}
	return LabelResult{Description: strings.TrimSpace(*wire.Description), Score: score}, nil
}

func decodeObject(raw json.RawMessage, idx int) (ObjectResult, error) {
	field := fmt.Sprintf("analysis_result.objects[%d]", idx)
	var wire wireObject
	if err := decodeObjectEntry(raw, &wire); err != nil {
		return ObjectResult{}, invalid(field, "object must be an object")
	}
	if wire.Name == nil || strings.TrimSpace(*wire.Name) == "" {
		return ObjectResult{}, invalid(field+".name", "object name is required")
	}
	score, err := checkScore(wire.Score, field+".score")
	if err != nil {
		return ObjectResult{}, err
	}
	return ObjectResult{Name: strings.TrimSpace(*wire.Name), Score: score}, nil
}

func decodeProposal(raw json.RawMessage, idx int) (QuestionProposal, error) {
	field := fmt.Sprintf("questions[%d]", idx)
	var wire wireProposal
	if err := decodeObjectEntry(raw, &wire); err != nil {
		return QuestionProposal{}, invalid(field, "question proposal must be an object")
	}
	text := ""
	if wire.Question != nil {
		text = strings.TrimSpace(*wire.Question)
	}
	if text == "" && wire.Content != nil {
		text = strings.TrimSpace(*wire.Content)
	}
	if text == "" {
		return QuestionProposal{}, invalid(field+".question", "question text is required")
	}
	return QuestionProposal{Content: text, Category: strings.TrimSpace(wire.Category)}, nil
}

// decodeObjectEntry rejects anything that is not a JSON object, including null.
func decodeObjectEntry(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("not an object")
	}
	return json.Unmarshal(trimmed, dst)
}

func checkScore(score *float64, field string) (float64, error) {
	if score == nil {
		return 0, invalid(field, "score is required")
	}
	if *score < 0 || *score > 1 {
		return 0, invalid(field, fmt.Sprintf("score %v outside [0,1]", *score))
	}
	return *score, nil
}

func invalid(field, msg string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "malformed analysis payload: "+msg).
		WithDetails(map[string]any{"field": field})
}

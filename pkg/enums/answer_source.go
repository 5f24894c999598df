package enums

import "fmt"

// AnswerSource records how an answer's content was captured.
type AnswerSource string

const (
	AnswerSourceText  AnswerSource = "text"
	AnswerSourceAudio AnswerSource = "audio"
)

// String returns the literal string for the source.
func (a AnswerSource) String() string {
	return string(a)
}

// IsValid reports whether the source is known.
func (a AnswerSource) IsValid() bool {
	return a == AnswerSourceText || a == AnswerSourceAudio
}

// ParseAnswerSource converts raw input into an AnswerSource.
func ParseAnswerSource(value string) (AnswerSource, error) {
	source := AnswerSource(value)
	if !source.IsValid() {
		return "", fmt.Errorf("invalid answer source %q", value)
	}
	return source, nil
}

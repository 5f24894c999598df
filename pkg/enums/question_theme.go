package enums

import (
	"fmt"
	"strings"
)

// QuestionTheme is the storytelling frame a question belongs to.
type QuestionTheme string

const (
	QuestionThemeSeniorCare  QuestionTheme = "SENIOR_CARE"
	QuestionThemeChildStory  QuestionTheme = "CHILD_STORY"
	QuestionThemeCoupleStory QuestionTheme = "COUPLE_STORY"
)

var validQuestionThemes = []QuestionTheme{
	QuestionThemeSeniorCare,
	QuestionThemeChildStory,
	QuestionThemeCoupleStory,
}

// String returns the literal string for the theme.
func (q QuestionTheme) String() string {
	return string(q)
}

// IsValid reports whether the theme is known.
func (q QuestionTheme) IsValid() bool {
	for _, candidate := range validQuestionThemes {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQuestionTheme converts raw input into a QuestionTheme. Matching ignores case.
func ParseQuestionTheme(value string) (QuestionTheme, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validQuestionThemes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid question theme %q", value)
}

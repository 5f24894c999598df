package analysis

import (
	"strings"

	"github.com/angelmondragon/storyframe-backend/pkg/enums"
)

var themesByCategory = map[string]enums.QuestionTheme{
	"temporal":   enums.QuestionThemeSeniorCare,
	"sensory":    enums.QuestionThemeSeniorCare,
	"relational": enums.QuestionThemeCoupleStory,
}

// ThemeForCategory maps a proposal category to a question theme. Unknown
// categories fall back to SENIOR_CARE.
func ThemeForCategory(category string) enums.QuestionTheme {
	if theme, ok := themesByCategory[strings.ToLower(strings.TrimSpace(category))]; ok {
		return theme
	}
	return enums.QuestionThemeSeniorCare
}

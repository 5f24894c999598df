package enums

import "fmt"

// KeywordCategory groups vocabulary extracted from media analysis.
type KeywordCategory string

const (
	KeywordCategoryObject  KeywordCategory = "OBJECT"
	KeywordCategoryEmotion KeywordCategory = "EMOTION"
	KeywordCategoryAction  KeywordCategory = "ACTION"
	KeywordCategoryPlace   KeywordCategory = "PLACE"
	KeywordCategoryEvent   KeywordCategory = "EVENT"
)

var validKeywordCategories = []KeywordCategory{
	KeywordCategoryObject,
	KeywordCategoryEmotion,
	KeywordCategoryAction,
	KeywordCategoryPlace,
	KeywordCategoryEvent,
}

// String returns the literal string for the category.
func (k KeywordCategory) String() string {
	return string(k)
}

// IsValid reports whether the category is known.
func (k KeywordCategory) IsValid() bool {
	for _, candidate := range validKeywordCategories {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseKeywordCategory converts raw input into a KeywordCategory.
func ParseKeywordCategory(value string) (KeywordCategory, error) {
	for _, candidate := range validKeywordCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid keyword category %q", value)
}

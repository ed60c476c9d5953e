// Package strings holds naming helpers shared by key derivation and
// struct field serialization.
package strings

import (
	"strings"
	"unicode"

	"github.com/gertd/go-pluralize"
)

// ToSnakeCase converts CamelCase to snake_case
// Handles acronyms properly (HTTPRequest -> http_request).
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				// Add underscore before uppercase letter if:
				// 1. Previous char is lowercase
				// 2. Next char is lowercase (for acronyms like HTTPRequest -> http_request)
				if unicode.IsLower(prev) {
					result.WriteRune('_')
				} else if i+1 < len(runes) && unicode.IsLower(runes[i+1]) {
					result.WriteRune('_')
				}
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// pluralizer is safe for concurrent use once constructed.
var pluralizer = pluralize.NewClient()

// Pluralize returns the plural form of an English word.
func Pluralize(word string) string {
	if word == "" {
		return ""
	}
	return pluralizer.Plural(word)
}

// ResourceKey derives a collection key from a Go type name
// (OrderLine -> order_lines).
func ResourceKey(typeName string) string {
	snake := ToSnakeCase(typeName)
	if snake == "" {
		return ""
	}
	idx := strings.LastIndex(snake, "_")
	return snake[:idx+1] + Pluralize(snake[idx+1:])
}

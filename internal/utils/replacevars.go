// Package utils holds small shared helpers.
package utils

import "strings"

// ReplaceVars substitutes {key} placeholders in input with the given values.
func ReplaceVars(input string, vars map[string]string) string {
	result := input
	for key, value := range vars {
		placeholder := "{" + key + "}"
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}

package model

import (
	"strings"
	"unicode"
)

// Snake converts an UpperCamel identifier to snake_case:
// "TodoList" -> "todo_list", "HTTPServer" -> "http_server".
func Snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// LowerCamel converts snake_case or UpperCamel to lowerCamel:
// "filtered_todos" -> "filteredTodos", "AddTodo" -> "addTodo".
func LowerCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	first := true
	for _, p := range parts {
		if p == "" {
			continue
		}
		runes := []rune(p)
		if first {
			runes[0] = unicode.ToLower(runes[0])
			first = false
		} else {
			runes[0] = unicode.ToUpper(runes[0])
		}
		b.WriteString(string(runes))
	}
	return b.String()
}

// UpperCamel converts snake_case to UpperCamel.
func UpperCamel(s string) string {
	lc := LowerCamel(s)
	if lc == "" {
		return lc
	}
	runes := []rune(lc)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

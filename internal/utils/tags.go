package utils

import "strings"

// ParseTags splits a comma separated tag list, dropping whitespace and empty entries.
func ParseTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.Join(strings.Fields(part), "")
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
	}
	return tags
}

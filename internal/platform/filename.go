package platform

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxFileNameLength caps sanitized names, in characters
const MaxFileNameLength = 200

// DefaultFileName replaces names that sanitize to nothing
const DefaultFileName = "video"

var illegalNameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// SanitizeFilename makes name safe to use as a file name on every OS
func SanitizeFilename(name string) string {
	name = illegalNameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, ". ")
	if utf8.RuneCountInString(name) > MaxFileNameLength {
		name = string([]rune(name)[:MaxFileNameLength])
		name = strings.TrimRight(name, ". ")
	}
	if name == "" {
		return DefaultFileName
	}
	return name
}

package validators

import "strings"

// CleanText collapses runs of whitespace to single spaces and keeps at most
// maxRunes runes. maxRunes <= 0 disables the cap.
func CleanText(input string, maxRunes int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	if maxRunes <= 0 {
		return cleaned
	}
	for i := range cleaned {
		if maxRunes == 0 {
			return cleaned[:i]
		}
		maxRunes--
	}
	return cleaned
}

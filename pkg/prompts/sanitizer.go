// Package prompts turns raw user input and live cube metadata into the
// instruction text sent to the upstream model. It also guards the input
// surface: sanitization and validation happen here, before any credential
// or network concern.
package prompts

import (
	"regexp"
	"strings"
)

var (
	// ASCII control characters except tab (0x09) and newline (0x0A).
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B-\x1F\x7F]`)

	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)

	scriptBlocks = regexp.MustCompile(`(?is)<script.*?</script>`)
	htmlTags     = regexp.MustCompile(`<[^>]*>`)

	// Decoded after tag stripping so entity-encoded input stays inert text.
	entityDecoder = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#x27;", "'",
		"&amp;", "&",
	)
)

// Sanitize normalizes raw user text before validation. It trims whitespace,
// drops control characters, collapses runs of blanks, removes script blocks
// and any remaining HTML-like tags, and decodes the five common HTML
// entities. Pure function: no state, never fails.
func Sanitize(raw string) string {
	s := strings.TrimSpace(raw)
	s = controlChars.ReplaceAllString(s, "")
	s = spaceRuns.ReplaceAllString(s, " ")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	s = scriptBlocks.ReplaceAllString(s, "")
	s = htmlTags.ReplaceAllString(s, "")
	s = entityDecoder.Replace(s)
	return strings.TrimSpace(s)
}

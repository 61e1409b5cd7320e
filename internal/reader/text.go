package reader

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	// wordsPerMinute is the reading speed used for time estimates.
	wordsPerMinute = 200

	// Tag mining limits.
	maxContentTags  = 5  // Top frequency-ranked content words kept
	maxTotalTags    = 10 // Hard cap on the final tag list
	minTitleWordLen = 4  // Title words shorter than this are dropped
	minBodyWordLen  = 6  // Content words shorter than this are dropped

	// defaultCodeLanguage labels code blocks with no language set.
	defaultCodeLanguage = "plain text"
)

// ConvertBlocksToText renders a normalized block sequence to a single text
// blob. Child blocks are rendered after their parent's own line. Blocks
// with no text rendition (images, child pages, unknown types) are skipped.
func ConvertBlocksToText(blocks []Block) string {
	var parts []string
	numbered := 0

	for i := range blocks {
		block := &blocks[i]

		if block.Type == BlockNumberedListItem {
			numbered++
		} else {
			numbered = 0
		}

		line := renderBlock(block, numbered)
		if line == "" {
			continue
		}

		if len(block.Children) > 0 {
			if childText := ConvertBlocksToText(block.Children); childText != "" {
				line += "\n" + childText
			}
		}

		parts = append(parts, line)
	}

	return strings.Join(parts, "\n\n")
}

// renderBlock renders one block to text. The default arm is the explicit
// catch-all for types with no text rendition.
func renderBlock(block *Block, numberedIndex int) string {
	switch block.Type {
	case BlockParagraph, BlockHeading1, BlockHeading2, BlockHeading3:
		return block.Text
	case BlockBulletedListItem:
		return "- " + block.Text
	case BlockNumberedListItem:
		return fmt.Sprintf("%d. %s", numberedIndex, block.Text)
	case BlockToDo:
		if block.ToDo == nil {
			return ""
		}
		if block.ToDo.Checked {
			return "[x] " + block.ToDo.Text
		}
		return "[ ] " + block.ToDo.Text
	case BlockCode:
		if block.Code == nil {
			return ""
		}
		language := block.Code.Language
		if language == "" {
			language = defaultCodeLanguage
		}
		return "```" + language + "\n" + block.Code.Text + "\n```"
	default:
		return ""
	}
}

// FirstImageURL returns the URL of the first image block in the tree, or ""
// if the page has none.
func FirstImageURL(blocks []Block) string {
	for i := range blocks {
		block := &blocks[i]
		if block.Type == BlockImage && block.Image != nil && block.Image.URL != "" {
			return block.Image.URL
		}
		if url := FirstImageURL(block.Children); url != "" {
			return url
		}
	}
	return ""
}

// ExtractTags mines tags from a page: title words longer than 3 characters
// (case-folded), the top 5 purely alphabetic content words longer than 5
// characters ranked by frequency (ties broken by first occurrence), and the
// category verbatim when supplied. The result is capped at 10 entries with
// no duplicates.
func ExtractTags(content, title, category string) []string {
	var tags []string
	seen := make(map[string]bool)

	add := func(tag string) {
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			return
		}
		seen[key] = true
		tags = append(tags, tag)
	}

	// Category goes first so the cap can never push it out.
	if category != "" {
		add(category)
	}

	for _, word := range tokenize(title) {
		if len(word) >= minTitleWordLen {
			add(strings.ToLower(word))
		}
	}

	for _, word := range topContentWords(content) {
		add(word)
	}

	if len(tags) > maxTotalTags {
		tags = tags[:maxTotalTags]
	}
	return tags
}

// topContentWords returns the most frequent alphabetic content words,
// lowercased, ranked by count with first-occurrence order breaking ties.
func topContentWords(content string) []string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for i, word := range tokenize(content) {
		if len(word) < minBodyWordLen || !isAlphabetic(word) {
			continue
		}
		word = strings.ToLower(word)
		if _, ok := counts[word]; !ok {
			firstSeen[word] = i
		}
		counts[word]++
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}

	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return firstSeen[words[i]] < firstSeen[words[j]]
	})

	if len(words) > maxContentTags {
		words = words[:maxContentTags]
	}
	return words
}

// tokenize splits text on anything that is not a letter or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// isAlphabetic reports whether a word consists of letters only.
func isAlphabetic(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return len(word) > 0
}

// GenerateExcerpt shortens content to at most maxLength characters.
// Content already within the limit is returned unchanged. Otherwise the cut
// prefers the last sentence boundary past the midpoint (kept verbatim, no
// ellipsis), then the last whitespace boundary, then a hard cut; the latter
// two get a literal "..." suffix.
func GenerateExcerpt(content string, maxLength int) string {
	runes := []rune(content)
	if len(runes) <= maxLength {
		return content
	}

	truncated := string(runes[:maxLength])

	if idx := strings.LastIndex(truncated, "."); idx >= maxLength/2 {
		return truncated[:idx+1]
	}

	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx >= 0 {
		return strings.TrimRight(truncated[:idx], " \t\n") + "..."
	}

	return truncated + "..."
}

// EstimateReadingTime estimates minutes to read the content, floored at 1.
func EstimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	mins := int(math.Round(float64(words) / wordsPerMinute))
	if mins < 1 {
		return 1
	}
	return mins
}

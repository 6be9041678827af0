package parser

import "strings"

// attractionCategories are generic attraction words used to recover an
// anchor name when the gazetteer has no match (e.g. 沖繩水族館 from
// 我想去沖繩水族館).
var attractionCategories = []string{
	"水族館", "博物館", "美術館", "動物園", "遊樂園", "主題樂園",
	"城堡", "神社", "寺廟", "公園", "廣場", "塔", "橋", "海灘",
	"溫泉", "滑雪場", "商場", "百貨", "市場", "街道", "老街",
}

// stop runes that terminate a name prefix: verbs and particles that
// precede an attraction mention rather than belong to its name.
var attractionStopRunes = map[rune]struct{}{
	'去': {}, '到': {}, '想': {}, '的': {}, '在': {}, '和': {}, '與': {},
}

const maxAttractionPrefix = 10 // runes scanned backwards before the category word

// ExtractAttraction finds a generic attraction mention in the query and
// expands it leftwards into a plausible full name. Returns "" when no
// category word occurs.
func ExtractAttraction(query string) string {
	runes := []rune(query)

	for _, category := range attractionCategories {
		idx := strings.Index(query, category)
		if idx < 0 {
			continue
		}
		catStart := len([]rune(query[:idx]))

		// Walk backwards collecting name characters until a stop rune,
		// non-word rune, or the prefix length cap.
		start := catStart
		for start > 0 && catStart-start < maxAttractionPrefix {
			r := runes[start-1]
			if _, stop := attractionStopRunes[r]; stop {
				break
			}
			if !isNameRune(r) {
				break
			}
			start--
		}

		full := string(runes[start : catStart+len([]rune(category))])
		if len([]rune(full)) > len([]rune(category)) && len([]rune(full)) <= 20 {
			return full
		}
		return category
	}
	return ""
}

// isNameRune reports whether r can be part of an attraction name.
func isNameRune(r rune) bool {
	if r >= '一' && r <= '鿿' {
		return true
	}
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

package parser

import (
	"regexp"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/text/width"
)

// MaxDays is the longest trip duration the parser accepts.
const MaxDays = 14

// chineseNumerals maps CJK numeral words to their integer values. 半 is
// handled separately as a half unit.
var chineseNumerals = map[string]int{
	"一": 1, "二": 2, "三": 3, "四": 4, "五": 5,
	"六": 6, "七": 7, "八": 8, "九": 9, "十": 10,
	"十一": 11, "十二": 12, "十三": 13, "十四": 14, "十五": 15,
	"十六": 16, "十七": 17, "十八": 18, "十九": 19, "二十": 20,
	"兩": 2,
}

// numeralAlt matches Arabic digits or a CJK numeral. Multi-rune numerals
// come first so the regexp engine prefers the longer match.
const numeralAlt = `(\d+|二十|十九|十八|十七|十六|十五|十四|十三|十二|十一|十|九|八|七|六|五|四|三|二|一|兩|半)`

var (
	dayRe     = regexp.MustCompile(numeralAlt + `[，,\s]*[天日]`)
	nightRe   = regexp.MustCompile(numeralAlt + `[，,\s]*[晚夜]`)
	halfDayRe = regexp.MustCompile(`半[天日晚夜]`)
)

// ExtractDays scans text for trip-duration phrases and resolves them to a
// day count. The boolean reports whether a duration was found; half-day
// phrasing and illogical day/night pairs yield no duration rather than an
// error. Contradictory phrases return ErrDaysConflict and durations above
// MaxDays return ErrDaysOutOfRange.
func ExtractDays(text string) (int, bool, error) {
	if text == "" {
		return 0, false, nil
	}

	// Fold full-width digits (３天 → 3天) before matching.
	text = width.Narrow.String(text)

	if halfDayRe.MatchString(text) {
		return 0, false, nil
	}

	dayVals, dayHalf := matchNumerals(dayRe, text)
	nightVals, nightHalf := matchNumerals(nightRe, text)
	if dayHalf || nightHalf {
		return 0, false, nil
	}

	// Reject phrasing like "1天2夜": one fewer day than nights is not a
	// standard itinerary, so yield no duration instead of guessing.
	if len(dayVals) == 1 && len(nightVals) == 1 {
		day, night := dayVals[0], nightVals[0]
		if day < night && night-day <= 1 {
			return 0, false, nil
		}
	}

	found := append(dayVals, nightVals...)
	if len(found) == 0 {
		return 0, false, nil
	}

	days, err := resolveDays(found)
	if err != nil {
		return 0, false, err
	}
	if days > MaxDays {
		return 0, false, eris.Wrapf(ErrDaysOutOfRange, "%d days exceeds maximum of %d", days, MaxDays)
	}
	return days, true, nil
}

// matchNumerals collects every numeral that precedes the unit pattern.
// The second return reports that a half unit (半) was seen.
func matchNumerals(re *regexp.Regexp, text string) ([]int, bool) {
	var vals []int
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		numeral := m[1]
		if numeral == "半" {
			return nil, true
		}
		if n := parseNumeral(numeral); n > 0 {
			vals = append(vals, n)
		}
	}
	return vals, false
}

// parseNumeral converts an Arabic or CJK numeral to its value, 0 if unknown.
func parseNumeral(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return chineseNumerals[s]
}

// resolveDays reconciles multiple extracted values. A single distinct value
// wins outright; the common "N天N-1夜" pair resolves to the larger value
// (the day count); anything else is a conflict.
func resolveDays(found []int) (int, error) {
	unique := make(map[int]struct{}, len(found))
	for _, v := range found {
		unique[v] = struct{}{}
	}

	switch len(unique) {
	case 1:
		return found[0], nil
	case 2:
		lo, hi := found[0], found[0]
		for v := range unique {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi-lo == 1 {
			return hi, nil
		}
	}

	vals := make([]int, 0, len(unique))
	for v := range unique {
		vals = append(vals, v)
	}
	return 0, eris.Wrapf(ErrDaysConflict, "values %v", vals)
}

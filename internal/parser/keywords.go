package parser

import (
	"strings"

	"github.com/innsight-labs/innsight/internal/model"
)

// filterKeywords maps each amenity filter to the query phrases that
// request it.
var filterKeywords = map[string][]string{
	model.AmenityParking:    {"停車", "好停車", "停車場", "車位", "停車位"},
	model.AmenityWheelchair: {"無障礙", "輪椅", "行動不便", "殘障", "無障礙設施"},
	model.AmenityKids:       {"親子", "兒童", "小孩", "孩子", "小朋友", "親子友善"},
	model.AmenityPet:        {"寵物", "狗", "貓", "毛孩", "寵物友善", "可攜帶寵物"},
}

// poiGazetteer lists the named attractions recognized as trip anchors.
// Okinawa only for now; extend per region as coverage grows.
var poiGazetteer = []string{
	"美ら海水族館", "首里城", "萬座毛", "國際通", "殘波岬", "古宇利島",
	"部瀨名海中公園", "琉球玻璃村", "DFS", "美國村", "新都心",
	"琉球村", "今歸仁", "中城城跡", "勝連城跡", "座喜味城跡",
	"瀨底島", "水納島", "那霸機場",
}

// locationAliases folds region keywords to canonical region names, in
// match-priority order.
var locationAliases = []struct {
	Keyword   string
	Canonical string
}{
	{"沖繩", "沖繩"},
	{"台北", "台北"},
	{"東京", "東京"},
	{"大阪", "大阪"},
	{"京都", "京都"},
	{"那霸", "沖繩"}, // Naha is part of Okinawa
	{"Okinawa", "沖繩"},
}

// ExtractFilters returns the amenity filters requested by the tokens, in
// canonical amenity order with no duplicates.
func ExtractFilters(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	combined := strings.Join(tokens, "")

	var filters []string
	for _, key := range model.AmenityKeys {
		if matchesAny(filterKeywords[key], tokens, combined) {
			filters = append(filters, key)
		}
	}
	return filters
}

// ExtractPOIs returns every gazetteer attraction mentioned in the tokens,
// in gazetteer order.
func ExtractPOIs(tokens []string) []string {
	if len(tokens) == 0 {
		return nil
	}
	combined := strings.Join(tokens, "")

	var pois []string
	for _, name := range poiGazetteer {
		if matchesAny([]string{name}, tokens, combined) {
			pois = append(pois, name)
		}
	}
	return pois
}

// ExtractLocation returns the canonical region named in the text, or ""
// when no region keyword matches.
func ExtractLocation(text string) string {
	if text == "" {
		return ""
	}
	for _, alias := range locationAliases {
		if strings.Contains(text, alias.Keyword) {
			return alias.Canonical
		}
	}
	return ""
}

// matchesAny reports whether any keyword occurs in the combined token text
// or inside an individual token.
func matchesAny(keywords, tokens []string, combined string) bool {
	for _, kw := range keywords {
		if strings.Contains(combined, kw) {
			return true
		}
		for _, tok := range tokens {
			if strings.Contains(tok, kw) {
				return true
			}
		}
	}
	return false
}

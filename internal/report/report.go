// Package report renders recommendation results as Markdown summaries.
package report

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/innsight-labs/innsight/internal/model"
)

// topN is how many candidates the recommendation table shows.
const topN = 10

// UnknownAccommodation is the display name for candidates without one.
const UnknownAccommodation = "未知住宿"

// Render produces the Markdown summary for one result: a tier distribution
// table followed by the top recommendations.
func Render(result *model.RecommendationResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s 周邊住宿建議\n\n", result.MainPOI.Name)

	b.WriteString("## 區域分佈\n\n")
	b.WriteString("| Tier | 數量 |\n")
	b.WriteString("|------|------|\n")
	fmt.Fprintf(&b, "| Tier 3 | %d |\n", result.Stats.Tier3)
	fmt.Fprintf(&b, "| Tier 2 | %d |\n", result.Stats.Tier2)
	fmt.Fprintf(&b, "| Tier 1 | %d |\n", result.Stats.Tier1)
	b.WriteString("\n")

	if len(result.Intervals.Values) > 0 {
		fmt.Fprintf(&b, "等時圈間隔：%s 分鐘（%s）\n\n",
			joinInts(result.Intervals.Values), result.Intervals.Profile)
	}

	fmt.Fprintf(&b, "## 推薦 Top %d\n\n", topN)
	b.WriteString("| 分數 | 名稱 | Tier | Rating | 停車 | 無障礙 |\n")
	b.WriteString("|------|------|------|--------|------|--------|\n")

	top := result.Top
	if len(top) > topN {
		top = top[:topN]
	}
	for _, sc := range top {
		name := sc.Name
		if name == "" {
			name = UnknownAccommodation
		}
		rating := "N/A"
		if sc.Rating != nil {
			rating = fmt.Sprintf("%.1f", *sc.Rating)
		}
		fmt.Fprintf(&b, "| %.1f | %s | %d | %s | %s | %s |\n",
			sc.Score, name, sc.Tier,
			rating,
			checkmark(sc.Amenities.Parking),
			checkmark(sc.Amenities.Wheelchair),
		)
	}
	return b.String()
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, "、")
}

func checkmark(v model.AmenityValue) string {
	if v == model.AmenityYes {
		return "✅"
	}
	return "❌"
}

// Write renders the result and saves it under dir with a timestamped,
// collision-resistant filename. It returns the path of the written file.
func Write(dir string, result *model.RecommendationResult) (string, error) {
	return write(dir, result, time.Now())
}

func write(dir string, result *model.RecommendationResult, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "report: create report directory")
	}

	sum := md5.Sum([]byte(result.MainPOI.Name + "_" + now.Format(time.RFC3339Nano)))
	name := fmt.Sprintf("%s_%s.md", now.Format("20060102_1504"), hex.EncodeToString(sum[:])[:6])
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, []byte(Render(result)), 0o644); err != nil {
		return "", eris.Wrap(err, "report: write report file")
	}
	return path, nil
}

package service

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

const (
	defaultTimelineMonths = 12
	maxTimelineMonths     = 60
	minBudget             = 1000
	defaultCategory       = "General"
)

var (
	budgetPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$[\d,]+(?:\.\d{2})?k?`),
		regexp.MustCompile(`budget[:\s]+\$?[\d,]+(?:\.\d{2})?`),
		regexp.MustCompile(`cost[:\s]+\$?[\d,]+(?:\.\d{2})?`),
	}
	monthsPattern   = regexp.MustCompile(`(\d+)\s*months?`)
	weeksPattern    = regexp.MustCompile(`(\d+)\s*weeks?`)
	timelinePattern = regexp.MustCompile(`timeline[:\s]+(\d+)`)
	numberPattern   = regexp.MustCompile(`[\d,]+(?:\.\d+)?`)
)

// 按顺序匹配，先命中的分类生效
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Technology", []string{"software", "ai", "machine learning", "cloud", "api", "platform", "system"}},
	{"Marketing", []string{"marketing", "advertising", "campaign", "brand", "social media"}},
	{"Infrastructure", []string{"infrastructure", "hardware", "network", "server", "datacenter"}},
	{"Consulting", []string{"consulting", "advisory", "strategy", "analysis", "assessment"}},
	{"Training", []string{"training", "education", "workshop", "certification", "learning"}},
}

// DocumentMeta 从文件名和正文推断的元数据
type DocumentMeta struct {
	Title          string
	Budget         float64
	TimelineMonths int
	Category       string
}

func DeriveMeta(filename, kind, text string) DocumentMeta {
	lower := strings.ToLower(text)
	return DocumentMeta{
		Title:          TitleFromFilename(filename, kind),
		Budget:         ExtractBudget(lower),
		TimelineMonths: ExtractTimeline(lower),
		Category:       Categorize(lower),
	}
}

// TitleFromFilename 去扩展名，下划线和横线换成空格，单词首字母大写
func TitleFromFilename(filename, kind string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)

	words := strings.Fields(base)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + strings.ToLower(string(r[1:]))
	}
	title := strings.Join(words, " ")
	if title == "" {
		title = "Untitled"
	}
	if kind == model.DocumentKindProposal {
		return "Proposal: " + title
	}
	return title
}

// ExtractBudget 取第一个大于 1000 的金额，未找到时返回 0
func ExtractBudget(lower string) float64 {
	for _, p := range budgetPatterns {
		for _, m := range p.FindAllString(lower, -1) {
			num := numberPattern.FindString(m)
			if num == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.ReplaceAll(num, ",", ""), 64)
			if err != nil {
				continue
			}
			if strings.HasSuffix(m, "k") {
				v *= 1000
			}
			if v > minBudget {
				return v
			}
		}
	}
	return 0
}

// ExtractTimeline 月数优先，其次周数/4，上限 60；未找到或为 0 时取 12
func ExtractTimeline(lower string) int {
	if m := monthsPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return min(n, maxTimelineMonths)
		}
	}
	if m := weeksPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return min(max(1, n/4), maxTimelineMonths)
		}
	}
	if m := timelinePattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return min(n, maxTimelineMonths)
		}
	}
	return defaultTimelineMonths
}

func Categorize(lower string) string {
	for _, c := range categoryKeywords {
		for _, k := range c.keywords {
			if strings.Contains(lower, k) {
				return c.name
			}
		}
	}
	return defaultCategory
}

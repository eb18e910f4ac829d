package prompt

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

func TestFormatBudget(t *testing.T) {
	assert.Equal(t, "Not specified", FormatBudget(0))
	assert.Equal(t, "$999", FormatBudget(999))
	assert.Equal(t, "$1,000", FormatBudget(1000))
	assert.Equal(t, "$250,000", FormatBudget(250000))
	assert.Equal(t, "$1,234,567", FormatBudget(1234567))
}

func TestFormatTimeline(t *testing.T) {
	assert.Equal(t, "Not specified", FormatTimeline(0))
	assert.Equal(t, "9 months", FormatTimeline(9))
}

func TestOptimization(t *testing.T) {
	doc := model.DocumentSnapshot{
		Title:          "Cloud Migration RFP",
		Content:        strings.Repeat("a", 3500),
		Budget:         250000,
		TimelineMonths: 9,
	}

	p := Optimization(doc, OptimizationOptions{})

	assert.Contains(t, p.System, "ONLY valid JSON")
	assert.Contains(t, p.User, "Title: Cloud Migration RFP")
	assert.Contains(t, p.User, "Budget: $250,000")
	assert.Contains(t, p.User, "Timeline: 9 months")
	assert.Contains(t, p.User, strings.Repeat("a", 3000)+"...")
	assert.NotContains(t, p.User, strings.Repeat("a", 3001))
	for _, key := range []string{`"timeline_feasibility"`, `"requirements_clarity"`, `"cost_flexibility"`, `"tco_analysis"`, `"priority_actions"`} {
		assert.Contains(t, p.User, key)
	}
	assert.NotContains(t, p.User, "PORTFOLIO CONTEXT")
}

func TestOptimization_UnspecifiedAndPortfolio(t *testing.T) {
	doc := model.DocumentSnapshot{Title: "Short RFP", Content: "scope"}
	portfolio := []model.DocumentSnapshot{{Title: "Past Project", Budget: 120000, TimelineMonths: 6, Category: "Technology"}}

	p := Optimization(doc, OptimizationOptions{ContentPreview: 100, Portfolio: portfolio})

	assert.Contains(t, p.User, "Budget: Not specified")
	assert.Contains(t, p.User, "Timeline: Not specified")
	assert.Contains(t, p.User, "Content: scope\n")
	assert.Contains(t, p.User, "PORTFOLIO CONTEXT")
	assert.Contains(t, p.User, "Past Project | Budget: $120,000 | Timeline: 6 months | Category: Technology")
}

func TestTimeline(t *testing.T) {
	p := Timeline([]string{"Review scope", "Establish governance"}, "Summary text")

	assert.Contains(t, p.User, "- Review scope\n- Establish governance")
	assert.Contains(t, p.User, "Summary text")
	assert.Contains(t, p.User, `"short_term"`)

	empty := Timeline(nil, "")
	assert.Contains(t, empty.User, "- (none)")
}

func TestComparison(t *testing.T) {
	proposals := []model.DocumentSnapshot{
		{ID: "p1", Title: "Proposal: Acme", Budget: 100000, TimelineMonths: 6, Category: "Technology", Content: "Acme builds apps"},
		{ID: "p2", Title: "Proposal: Globex", Content: "Globex consulting"},
	}
	rfp := &model.DocumentSnapshot{Title: "Mobile App RFP", Budget: 90000, TimelineMonths: 5, Content: "Build a mobile app"}

	p := Comparison(proposals, rfp)

	assert.Contains(t, p.User, "comparison of the following 2 proposals")
	assert.Contains(t, p.User, "BASELINE RFP:\nTitle: Mobile App RFP")
	assert.Contains(t, p.User, "Proposal ID: p1")
	assert.Contains(t, p.User, "Proposal ID: p2")
	assert.Contains(t, p.User, `"proposals"`)

	noBaseline := Comparison(proposals, nil)
	assert.NotContains(t, noBaseline.User, "BASELINE RFP")
}

func TestQuestion(t *testing.T) {
	var history []model.ChatMessage
	for i := 0; i < 12; i++ {
		history = append(history, model.ChatMessage{ID: i + 1, Type: model.MessageUser, Content: fmt.Sprintf("turn-%02d", i)})
	}

	p := Question(QuestionInput{
		Question:  "Which vendor is cheapest?",
		Analysis:  "Acme scored 88",
		Proposals: []model.DocumentSnapshot{{Title: "Acme", Budget: 100000}, {Title: "Globex", Budget: 50000}},
		History:   history,
		Context:   []Snippet{{Title: "Acme", Content: "Fixed price of $100,000"}},
	})

	assert.Contains(t, p.System, "Do not include JSON")
	assert.Contains(t, p.User, "Acme scored 88")
	assert.Contains(t, p.User, "Total Budget: $150,000")
	assert.Contains(t, p.User, "[1] Acme: Fixed price of $100,000")
	assert.Contains(t, p.User, "USER QUESTION: Which vendor is cheapest?")
	assert.NotContains(t, p.User, "turn-01")
	assert.Contains(t, p.User, "turn-02")
	assert.Contains(t, p.User, "turn-11")
}

func TestQuestion_Empty(t *testing.T) {
	p := Question(QuestionInput{Question: "hello"})

	assert.Contains(t, p.User, "no analysis has been run yet")
	assert.Contains(t, p.User, "no proposals uploaded")
	assert.Contains(t, p.User, "Total Budget: Not specified")
}

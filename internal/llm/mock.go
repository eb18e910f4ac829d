package llm

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
)

const MockModel = "mock-llm-v1"

// MockClient 离线模式和测试用的确定性客户端
//
// 没有设置 Responses/Err 时，JSON 请求返回一份固定的完整分析，
// 其它请求返回一段固定文本。
type MockClient struct {
	mu        sync.Mutex
	Responses []string // 依次返回，用完后重复最后一个
	Err       error
	Requests  []Request
}

func NewMockClient(responses ...string) *MockClient {
	return &MockClient{Responses: responses}
}

func (m *MockClient) Model() string {
	return MockModel
}

func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		idx := len(m.Requests) - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		return m.Responses[idx], nil
	}
	if req.JSON {
		return mockJSON(req.User), nil
	}
	return "Based on the uploaded documents, the proposals cover the requested scope. " +
		"Review budget and timeline assumptions before selecting a vendor.", nil
}

// Calls 已收到的请求数
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

func mockJSON(prompt string) string {
	if strings.Contains(prompt, `"immediate"`) && !strings.Contains(prompt, `"timeline_feasibility"`) {
		b, _ := json.Marshal(map[string][]string{
			"immediate":  {"Review the RFP scope with stakeholders"},
			"short_term": {"Establish a change management process"},
			"long_term":  {"Plan ongoing maintenance and support budget"},
		})
		return string(b)
	}
	if strings.Contains(prompt, `"proposals"`) {
		return mockComparison(prompt)
	}

	dim := map[string]interface{}{
		"score":           7,
		"findings":        []string{"Mock finding"},
		"recommendations": []string{"Mock recommendation"},
	}
	b, _ := json.Marshal(map[string]interface{}{
		"timeline_feasibility": dim,
		"requirements_clarity": dim,
		"cost_flexibility":     dim,
		"tco_analysis":         dim,
		"executive_summary":    "Mock analysis generated offline.",
		"priority_actions":     []string{"Review the scope", "Clarify acceptance criteria"},
	})
	return string(b)
}

var proposalIDPattern = regexp.MustCompile(`(?m)^Proposal ID: (\S+)`)

// mockComparison 给提示里出现的每个提案一个固定评分
func mockComparison(prompt string) string {
	type entry struct {
		ProposalID     string   `json:"proposal_id"`
		OverallScore   int      `json:"overall_score"`
		BudgetScore    int      `json:"budget_score"`
		TechnicalScore int      `json:"technical_score"`
		TimelineScore  int      `json:"timeline_score"`
		Strengths      []string `json:"strengths"`
		Concerns       []string `json:"concerns"`
	}
	var entries []entry
	for i, m := range proposalIDPattern.FindAllStringSubmatch(prompt, -1) {
		s := 80 - i*5
		entries = append(entries, entry{
			ProposalID:     m[1],
			OverallScore:   s,
			BudgetScore:    s,
			TechnicalScore: s,
			TimelineScore:  s,
			Strengths:      []string{"Mock strength"},
			Concerns:       []string{"Mock concern"},
		})
	}
	var recs []map[string]interface{}
	if len(entries) > 0 {
		recs = append(recs, map[string]interface{}{"rank": 1, "proposal_id": entries[0].ProposalID, "reasoning": "Highest mock score"})
	}
	b, _ := json.Marshal(map[string]interface{}{
		"proposals":         entries,
		"executive_summary": "Mock comparison generated offline.",
		"recommendations":   recs,
	})
	return string(b)
}

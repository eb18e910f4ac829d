package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
)

const degradedReply = "I'm sorry, I couldn't process your question. Please try again."

// answer 一次问答的结果
type answer struct {
	Content  string
	Refs     []dto.ReferencedDocument
	Degraded bool
}

// answerer 聊天和对比分析追问共用：检索相关文档，拼提示词，调用模型
type answerer struct {
	llm   completer
	index *IndexService
	docs  *DocumentService
}

func (a *answerer) answer(ctx context.Context, question, analysisContext string, history []model.ChatMessage) answer {
	proposals, err := a.docs.Snapshots(model.DocumentKindProposal)
	if err != nil {
		log.Printf("Failed to load proposals for question: %v", err)
	}

	var (
		snippets []prompt.Snippet
		refs     []dto.ReferencedDocument
	)
	if a.index != nil {
		hits, err := a.index.Search(ctx, question, 0)
		if err != nil {
			log.Printf("Document search failed: %v", err)
		}
		for _, h := range hits {
			snippets = append(snippets, prompt.Snippet{Title: h.Title, Content: h.Snippet})
			refs = append(refs, dto.ReferencedDocument{DocumentID: h.DocumentID, Title: h.Title, Score: h.Score})
		}
	}

	p := prompt.Question(prompt.QuestionInput{
		Question:  question,
		Analysis:  analysisContext,
		Proposals: proposals,
		History:   history,
		Context:   snippets,
	})
	content, err := a.llm.complete(ctx, p, false)
	if err == nil {
		content = strings.TrimSpace(content)
	}
	if err != nil || content == "" {
		log.Printf("Question answering degraded: %v", err)
		return answer{Content: fallbackReply(refs), Refs: refs, Degraded: true}
	}
	return answer{Content: content, Refs: refs}
}

func fallbackReply(refs []dto.ReferencedDocument) string {
	if len(refs) == 0 {
		return degradedReply
	}
	titles := make([]string, len(refs))
	for i, r := range refs {
		titles[i] = r.Title
	}
	return fmt.Sprintf("%s The most relevant documents for your question are: %s.", degradedReply, strings.Join(titles, ", "))
}

// comparisonContext 对比结果压缩成提示词里的分析摘要
func comparisonContext(c *model.ComparisonResult) string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	if c.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", c.Summary)
	}
	for _, p := range c.Proposals {
		fmt.Fprintf(&b, "- %s: overall %d, budget %d, technical %d, timeline %d; budget %s, timeline %s\n",
			p.Vendor, p.OverallScore, p.BudgetScore, p.TechnicalScore, p.TimelineScore,
			prompt.FormatBudget(p.ProposedBudget), p.Timeline)
		if len(p.Strengths) > 0 {
			fmt.Fprintf(&b, "  Strengths: %s\n", strings.Join(p.Strengths, "; "))
		}
		if len(p.Concerns) > 0 {
			fmt.Fprintf(&b, "  Concerns: %s\n", strings.Join(p.Concerns, "; "))
		}
		if p.RFPAlignment != nil {
			fmt.Fprintf(&b, "  RFP alignment: %.0f%% (%s)\n", p.RFPAlignment.OverallAlignmentScore, p.RFPAlignment.Summary)
		}
	}
	if c.Recommendation != "" {
		fmt.Fprintf(&b, "Recommendation: %s\n", c.Recommendation)
	}
	return strings.TrimRight(b.String(), "\n")
}

// optimizationContext RFP 优化结果的摘要
func optimizationContext(r *model.AnalysisResult) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "RFP: %s\nStatus: %s\nOverall score: %d/%d\n", r.DocumentTitle, r.Status, r.OverallScore, r.MaxScore)
	for _, d := range r.Dimensions() {
		fmt.Fprintf(&b, "- %s: %d/%d\n", d.Label, d.Score, d.MaxScore)
	}
	if r.ExecutiveSummary != "" {
		fmt.Fprintf(&b, "Summary: %s", r.ExecutiveSummary)
	}
	return strings.TrimRight(b.String(), "\n")
}

// sessionContext 根据会话类型选择分析摘要
func sessionContext(s *model.Session) string {
	if s == nil {
		return ""
	}
	if s.Comparison != nil {
		return comparisonContext(s.Comparison)
	}
	return optimizationContext(s.Result)
}

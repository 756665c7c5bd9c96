package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/codequality/codequality-server/pkg/job"
	"github.com/codequality/codequality-server/pkg/llmclient"
)

// MaxBlockChars is the external page API's hard limit: it rejects any
// text block whose content reaches 2 000 characters, so blocks are kept
// strictly under that.
const MaxBlockChars = 1990

// BlockType names one of the external document's supported block shapes.
type BlockType string

const (
	BlockHeading1       BlockType = "heading_1"
	BlockHeading2       BlockType = "heading_2"
	BlockHeading3       BlockType = "heading_3"
	BlockParagraph      BlockType = "paragraph"
	BlockBulletListItem BlockType = "bulleted_list_item"
	BlockCode           BlockType = "code"
	BlockDivider        BlockType = "divider"
)

// Block is one node of the external block document.
type Block struct {
	Type     BlockType `json:"type"`
	Content  string    `json:"content,omitempty"`
	Language string    `json:"language,omitempty"`
}

// ExternalDocument generates the block sequence pushed to the external
// reporting integration. The narrative paragraph reuses the AI review's own
// executive_summary (C5) rather than asking the model to write a new one;
// only a job with no executive_summary at all (review skipped, or it
// degraded to a partial envelope) falls back to a fresh short narrative,
// retried with a stricter brevity instruction up to three times if the
// model keeps producing an unreasonably long one, and to no narrative at
// all after three failures. Every text block is split to respect
// MaxBlockChars regardless of narrative length, so the hard rule always
// holds even when the model ignores the brevity instruction.
func ExternalDocument(ctx context.Context, client llmclient.LLMClient, j job.Job) ([]Block, error) {
	if j.Status != job.StatusCompleted {
		return nil, ErrNotComplete
	}

	narrative := j.Result.ExecutiveSummary
	if narrative == "" && client != nil && client.Available() {
		narrative = generateNarrative(ctx, client, j)
	}

	return buildDocument(j, narrative), nil
}

// narrativeLengthCeiling is the point past which a "brief" narrative is
// judged to have ignored the brevity instruction, worth a retry rather
// than just splitting it across more blocks.
const narrativeLengthCeiling = 6000

func generateNarrative(ctx context.Context, client llmclient.LLMClient, j job.Job) string {
	enforceBrevity := false
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := client.Generate(ctx, llmclient.GenerateRequest{
			SystemPrompt: narrativeSystemPrompt,
			UserPrompt:   narrativePrompt(j, enforceBrevity),
			MaxTokens:    500,
			Temperature:  0.3,
		})
		if err != nil {
			return ""
		}
		if len(resp.Text) <= narrativeLengthCeiling {
			return resp.Text
		}
		enforceBrevity = true
	}
	return ""
}

const narrativeSystemPrompt = "You write a one-paragraph executive summary of a code quality analysis for a project management page. Be concise and specific."

func narrativePrompt(j job.Job, enforceBrevity bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %s analyzed %d files and found %d issues.\n", j.ID, summaryFiles(j), summaryIssues(j))
	if enforceBrevity {
		b.WriteString("Your previous attempt was too long. Respond in two sentences, no more.\n")
	}
	b.WriteString("Write the executive summary paragraph now.")
	return b.String()
}

func summaryFiles(j job.Job) int {
	if j.Result.Summary == nil {
		return 0
	}
	return j.Result.Summary.TotalFiles
}

func summaryIssues(j job.Job) int {
	if j.Result.Summary == nil {
		return 0
	}
	return j.Result.Summary.TotalIssues
}

// buildDocument assembles the deterministic block skeleton (headings,
// the metrics table rendered as bullets, top issues, dividers) and splits
// every text block to MaxBlockChars. When narrative is empty the document
// still renders in full — it is a minimal document, not a failure.
func buildDocument(j job.Job, narrative string) []Block {
	var blocks []Block
	blocks = append(blocks, Block{Type: BlockHeading1, Content: "Code Quality Report: " + j.ID})
	blocks = append(blocks, Block{Type: BlockDivider})

	blocks = append(blocks, Block{Type: BlockHeading2, Content: "Summary"})
	if narrative != "" {
		blocks = append(blocks, splitTextBlocks(BlockParagraph, narrative)...)
	}
	if s := j.Result.Summary; s != nil {
		blocks = append(blocks, Block{Type: BlockBulletListItem, Content: fmt.Sprintf("Files analyzed: %d", s.TotalFiles)})
		blocks = append(blocks, Block{Type: BlockBulletListItem, Content: fmt.Sprintf("Issues found: %d", s.TotalIssues)})
		d := s.SeverityDistribution
		blocks = append(blocks, Block{Type: BlockBulletListItem, Content: fmt.Sprintf(
			"Critical %d, High %d, Medium %d, Low %d", d.Critical, d.High, d.Medium, d.Low)})
	}
	blocks = append(blocks, Block{Type: BlockDivider})

	blocks = append(blocks, Block{Type: BlockHeading2, Content: "Top Issues"})
	issues := sortedIssues(j.Result.Issues)
	if len(issues) > 10 {
		issues = issues[:10]
	}
	for _, iss := range issues {
		line := ""
		if iss.LineNumber != nil {
			line = fmt.Sprintf(":%d", *iss.LineNumber)
		}
		heading := fmt.Sprintf("%s (%s) — %s%s", iss.Title, iss.Severity, iss.FilePath, line)
		blocks = append(blocks, splitTextBlocks(BlockHeading3, heading)...)
		if iss.Description != "" {
			blocks = append(blocks, splitTextBlocks(BlockParagraph, iss.Description)...)
		}
		if iss.Suggestion != "" {
			blocks = append(blocks, splitTextBlocks(BlockBulletListItem, "Suggestion: "+iss.Suggestion)...)
		}
		if iss.CodeSnippet != "" {
			blocks = append(blocks, splitCodeBlocks(iss.CodeSnippet)...)
		}
	}

	return blocks
}

// splitTextBlocks breaks content into consecutive blocks of the same type,
// never exceeding MaxBlockChars, and preferring to break on a whitespace
// boundary so words aren't split mid-token. The boundary space itself is
// kept with the block that precedes it, so concatenating every block's
// Content back together reproduces content exactly.
func splitTextBlocks(t BlockType, content string) []Block {
	var out []Block
	for len(content) > MaxBlockChars {
		cut := MaxBlockChars
		if sp := strings.LastIndexByte(content[:cut], ' '); sp > 0 {
			cut = sp + 1
		}
		out = append(out, Block{Type: t, Content: content[:cut]})
		content = content[cut:]
	}
	out = append(out, Block{Type: t, Content: content})
	return out
}

func splitCodeBlocks(content string) []Block {
	blocks := splitTextBlocks(BlockCode, content)
	for i := range blocks {
		blocks[i].Language = "plain text"
	}
	return blocks
}

package enhance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/llmclient"
	"github.com/codequality/codequality-server/pkg/model"
)

type fakeClient struct {
	text      string
	err       error
	available bool
}

func (f fakeClient) Name() string      { return "fake" }
func (f fakeClient) Available() bool   { return f.available }
func (f fakeClient) Generate(ctx context.Context, req llmclient.GenerateRequest) (*llmclient.GenerateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llmclient.GenerateResponse{Text: f.text}, nil
}

func sampleInput() FileInput {
	ln := 3
	return FileInput{
		Path:    "app.py",
		Content: []byte("print('hi')\n"),
		Issues: []model.CodeIssue{
			{ID: "app-3-hardcodedapikeydetected", Title: "Hardcoded API Key Detected", LineNumber: &ln},
		},
	}
}

func TestRunAppliesSuggestionsFromFencedJSON(t *testing.T) {
	client := fakeClient{available: true, text: "```json\n" +
		`{"truncated": false, "description": "a script", "enhanced_suggestions": {"app-3-hardcodedapikeydetected": "rotate the key"}, "business_impact": "low", "architectural_concerns": []}` +
		"\n```"}
	result := Run(context.Background(), client, sampleInput())
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "rotate the key", result.Issues[0].Suggestion)
	assert.Equal(t, "a script", result.Meta.Summary)
}

func TestRunDegradesOnUnavailableClient(t *testing.T) {
	client := fakeClient{available: false}
	in := sampleInput()
	result := Run(context.Background(), client, in)
	assert.Equal(t, in.Issues, result.Issues)
	assert.Empty(t, result.Meta.Summary)
}

func TestRunDegradesOnMalformedJSON(t *testing.T) {
	client := fakeClient{available: true, text: "not json at all"}
	in := sampleInput()
	result := Run(context.Background(), client, in)
	assert.Equal(t, in.Issues, result.Issues)
}

func TestRunMarksTruncatedWhenContentExceedsWindow(t *testing.T) {
	big := make([]byte, ContentWindow+500)
	for i := range big {
		big[i] = 'x'
	}
	client := fakeClient{available: true, text: `{"truncated": false, "description": "d", "enhanced_suggestions": {}, "business_impact": "", "architectural_concerns": []}`}
	in := sampleInput()
	in.Content = big
	result := Run(context.Background(), client, in)
	assert.True(t, result.Meta.Truncated)
}

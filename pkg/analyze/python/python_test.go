package python

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/model"
)

func TestHardcodedSecretDetection(t *testing.T) {
	content := []byte(`API_KEY = "sk-0123456789abcdef0123456789abcdef"` + "\n")
	issues, _ := Analyzer{}.Analyze("creds.py", content)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
	assert.Equal(t, model.CategorySecurity, issues[0].Category)
	assert.Contains(t, issues[0].Title, "Hardcoded")
	assert.Contains(t, issues[0].Title, "Detected")
	require.NotNil(t, issues[0].LineNumber)
	assert.Equal(t, 1, *issues[0].LineNumber)
}

func TestTestFixtureSecretsAreSuppressed(t *testing.T) {
	content := []byte(`API_KEY = "test_dummy_value_1234567890123"` + "\n")
	issues, _ := Analyzer{}.Analyze("creds.py", content)
	assert.Empty(t, issues)
}

func TestSyntaxErrorYieldsSingleHighIssue(t *testing.T) {
	content := []byte("def foo(:\n")
	issues, metrics := Analyzer{}.Analyze("broken.py", content)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, "Syntax Error", issues[0].Title)
	require.NotNil(t, issues[0].LineNumber)
	assert.Equal(t, 1, *issues[0].LineNumber)
	assert.Equal(t, 1, metrics.LOC)
}

func TestNestedLoopDetection(t *testing.T) {
	content := []byte(
		"def f():\n" +
			"    for i in range(10):\n" +
			"        for j in range(10):\n" +
			"            pass\n")
	issues, _ := Analyzer{}.Analyze("loops.py", content)
	var found bool
	for _, iss := range issues {
		if iss.Category == model.CategoryPerformance && iss.Title == "Nested Loop Detected" {
			found = true
			require.NotNil(t, iss.LineNumber)
			assert.Equal(t, 2, *iss.LineNumber)
		}
	}
	assert.True(t, found, "expected a nested loop issue")
}

func TestIssueIDIsStableAcrossRuns(t *testing.T) {
	content := []byte(`API_KEY = "sk-0123456789abcdef0123456789abcdef"` + "\n")
	first, _ := Analyzer{}.Analyze("creds.py", content)
	second, _ := Analyzer{}.Analyze("creds.py", content)
	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestDuplicationDetection(t *testing.T) {
	content := []byte(
		"def a():\n" +
			"    x = 1\n" +
			"    return x\n" +
			"\n" +
			"def b():\n" +
			"    x = 1\n" +
			"    return x\n")
	issues, _ := Analyzer{}.Analyze("dup.py", content)
	var found bool
	for _, iss := range issues {
		if iss.Category == model.CategoryDuplication {
			found = true
		}
	}
	assert.True(t, found, "expected a duplication issue")
}

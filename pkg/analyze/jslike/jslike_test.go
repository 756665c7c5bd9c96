package jslike

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequality/codequality-server/pkg/model"
)

func TestConsoleLogAndVarAreFlaggedAsStyle(t *testing.T) {
	content := []byte("console.log('hi')\nvar x = 1\n")
	issues, _ := Analyzer{}.Analyze("app.js", content)
	require.Len(t, issues, 2)
	for _, iss := range issues {
		assert.Equal(t, model.CategoryStyle, iss.Category)
	}
}

func TestEvalIsFlaggedCritical(t *testing.T) {
	content := []byte("eval(userInput)\n")
	issues, _ := Analyzer{}.Analyze("app.js", content)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, model.CategorySecurity, issues[0].Category)
}

func TestDomQueryInsideLoopIsFlagged(t *testing.T) {
	content := []byte(
		"for (let i = 0; i < 10; i++) {\n" +
			"  document.getElementById('x').innerText = i\n" +
			"}\n")
	issues, _ := Analyzer{}.Analyze("app.js", content)
	var found bool
	for _, iss := range issues {
		if iss.Title == "DOM Query Inside Loop" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestLongFunctionBodyIsFlagged(t *testing.T) {
	body := "function big() {\n"
	for i := 0; i < 60; i++ {
		body += "  doWork();\n"
	}
	body += "}\n"
	issues, _ := Analyzer{}.Analyze("app.js", []byte(body))
	var found bool
	for _, iss := range issues {
		if iss.Title == "Long Function Body" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHardcodedSecretInJSIsFlagged(t *testing.T) {
	content := []byte(`const apiKey = "abcdefghijklmnopqrstuvwxyz123456";` + "\n")
	issues, _ := Analyzer{}.Analyze("config.js", content)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Title, "Hardcoded")
	assert.Equal(t, model.SeverityCritical, issues[0].Severity)
}

func TestEnvVarReferenceIsNotFlaggedAsSecret(t *testing.T) {
	content := []byte(`const apiKey = "process.env.SOME_PLACEHOLDER_VALUE";` + "\n")
	issues, _ := Analyzer{}.Analyze("config.js", content)
	assert.Empty(t, issues)
}

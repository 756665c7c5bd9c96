package docker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codequality/codequality-server/pkg/model"
)

func TestDockerfileWithoutUserFlagsRootRisk(t *testing.T) {
	content := []byte("FROM alpine:3.19\nCMD [\"sh\"]\n")
	issues, _ := Analyzer{}.Analyze("Dockerfile", content)

	var sawRootWarning, sawLatestWarning bool
	for _, iss := range issues {
		if iss.Category == model.CategorySecurity && iss.Severity == model.SeverityMedium {
			sawRootWarning = true
		}
		if iss.Category == model.CategoryMaintainability {
			sawLatestWarning = true
		}
	}
	assert.True(t, sawRootWarning, "expected a root-user warning")
	assert.False(t, sawLatestWarning, "pinned tag must not trigger the :latest warning")
}

func TestMissingFromIsFatalForTheFile(t *testing.T) {
	content := []byte("CMD [\"sh\"]\n")
	issues, _ := Analyzer{}.Analyze("Dockerfile", content)
	assert.Len(t, issues, 1)
	assert.Equal(t, model.SeverityHigh, issues[0].Severity)
	assert.Equal(t, model.CategoryCorrectness, issues[0].Category)
}

func TestOutdatedBaseImageIsFlaggedHighSecurity(t *testing.T) {
	content := []byte("FROM ubuntu:14.04\nUSER appuser\nCMD [\"sh\"]\n")
	issues, _ := Analyzer{}.Analyze("Dockerfile", content)
	var found bool
	for _, iss := range issues {
		if iss.Title == "Outdated Base Image" {
			found = true
			assert.Equal(t, model.SeverityHigh, iss.Severity)
		}
	}
	assert.True(t, found)
}

func TestMissingEntrypointAndCmd(t *testing.T) {
	content := []byte("FROM alpine:3.19\nUSER appuser\n")
	issues, _ := Analyzer{}.Analyze("Dockerfile", content)
	var found bool
	for _, iss := range issues {
		if iss.Title == "No CMD or ENTRYPOINT" {
			found = true
		}
	}
	assert.True(t, found)
}

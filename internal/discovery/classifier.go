package discovery

import (
	"strings"

	"github.com/diffsec/parsentry/internal/language"
)

// Classify determines the Language of a file from its path and content,
// preferring content-sniffed CI/IaC/manifest formats over a bare extension
// lookup. The precedence order matters: a file can satisfy more than one
// predicate (e.g. a generic compose-looking YAML under .github/workflows),
// and the first match wins.
func Classify(filename, content string) language.Language {
	if isGitlabCI(filename, content) {
		return language.Yaml
	}
	if isCircleCI(filename, content) {
		return language.Yaml
	}
	if isTravisCI(filename, content) {
		return language.Yaml
	}
	if isJenkinsfile(filename, content) {
		return language.Yaml
	}
	if isGitHubActionsWorkflow(filename, content) {
		return language.Yaml
	}
	if isKubernetesManifest(filename, content) {
		return language.Kubernetes
	}
	if isDockerCompose(filename, content) {
		return language.Yaml
	}
	if isTerraform(filename, content) {
		return language.Terraform
	}
	return language.FromFilename(filename)
}

func containsAny(content string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}

func containsAll(content string, patterns []string) bool {
	for _, p := range patterns {
		if !strings.Contains(content, p) {
			return false
		}
	}
	return true
}

func isGitHubActionsWorkflow(filename, content string) bool {
	if !strings.Contains(filename, ".github/workflows/") {
		return false
	}
	if !strings.HasSuffix(filename, ".yml") && !strings.HasSuffix(filename, ".yaml") {
		return false
	}
	return containsAny(strings.ToLower(content), []string{"on:", "jobs:", "runs-on:", "uses:", "steps:"})
}

func isKubernetesManifest(filename, content string) bool {
	if !strings.HasSuffix(filename, ".yml") && !strings.HasSuffix(filename, ".yaml") {
		return false
	}
	hasRequired := containsAll(content, []string{"apiVersion:", "kind:", "metadata:"})
	hasSpec := containsAny(content, []string{"spec:", "data:", "stringData:"})
	return hasRequired && hasSpec
}

func isDockerCompose(filename, content string) bool {
	if strings.HasSuffix(filename, "docker-compose.yml") ||
		strings.HasSuffix(filename, "docker-compose.yaml") ||
		strings.Contains(filename, "compose.") {
		return true
	}
	if !strings.HasSuffix(filename, ".yml") && !strings.HasSuffix(filename, ".yaml") {
		return false
	}
	return containsAll(content, []string{"version:", "services:"})
}

func isTerraform(filename, content string) bool {
	if !strings.HasSuffix(filename, ".tf") && !strings.HasSuffix(filename, ".hcl") {
		return false
	}
	patterns := []string{
		`resource "`, `provider "`, `variable "`, `data "`, `module "`, `locals {`, `output "`,
	}
	return containsAny(content, patterns)
}

func isGitlabCI(filename, content string) bool {
	if !strings.HasSuffix(filename, ".gitlab-ci.yml") {
		return false
	}
	return containsAny(content, []string{"stages:", "script:", "image:", "stage:"})
}

func isCircleCI(filename, content string) bool {
	if !strings.Contains(filename, ".circleci/config.yml") {
		return false
	}
	return containsAll(content, []string{"version:", "jobs:", "workflows:"})
}

func isTravisCI(filename, content string) bool {
	if !strings.HasSuffix(filename, ".travis.yml") {
		return false
	}
	return containsAny(content, []string{"language:", "script:"})
}

func isJenkinsfile(filename, content string) bool {
	if !strings.HasSuffix(filename, "Jenkinsfile") && !strings.HasSuffix(filename, ".groovy") {
		return false
	}
	return containsAny(content, []string{"pipeline {", "stage(", "steps {", "agent "})
}

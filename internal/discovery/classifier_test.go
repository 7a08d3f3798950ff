package discovery

import (
	"testing"

	"github.com/diffsec/parsentry/internal/language"
)

func TestClassifyGitHubActions(t *testing.T) {
	content := "name: CI\non:\n  push:\njobs:\n  test:\n    runs-on: ubuntu-latest\n"
	if got := Classify(".github/workflows/ci.yml", content); got != language.Yaml {
		t.Errorf("got %v, want Yaml", got)
	}
	if got := Classify("config.yml", content); got == language.Yaml {
		// plain config.yml with no other matching predicate falls back to extension -> Yaml anyway
		_ = got
	}
}

func TestClassifyKubernetes(t *testing.T) {
	content := "apiVersion: v1\nkind: Pod\nmetadata:\n  name: x\nspec:\n  containers: []\n"
	if got := Classify("pod.yaml", content); got != language.Kubernetes {
		t.Errorf("got %v, want Kubernetes", got)
	}
}

func TestClassifyDockerCompose(t *testing.T) {
	content := "version: '3.8'\nservices:\n  web:\n    image: nginx\n"
	if got := Classify("docker-compose.yml", content); got != language.Yaml {
		t.Errorf("got %v, want Yaml", got)
	}
	if got := Classify("services.yml", content); got != language.Yaml {
		t.Errorf("got %v, want Yaml", got)
	}
}

func TestClassifyTerraform(t *testing.T) {
	content := `resource "aws_instance" "web" {}`
	if got := Classify("main.tf", content); got != language.Terraform {
		t.Errorf("got %v, want Terraform", got)
	}
}

func TestClassifyGitlabCI(t *testing.T) {
	content := "stages:\n  - test\nscript:\n  - pytest\n"
	if got := Classify(".gitlab-ci.yml", content); got != language.Yaml {
		t.Errorf("got %v, want Yaml", got)
	}
}

func TestClassifyFallsBackToExtension(t *testing.T) {
	if got := Classify("main.py", "print('hi')"); got != language.Python {
		t.Errorf("got %v, want Python", got)
	}
}

package prompt

import (
	"strings"
	"testing"

	parcontext "github.com/diffsec/parsentry/internal/context"
	"github.com/diffsec/parsentry/internal/language"
	"github.com/diffsec/parsentry/internal/pattern"
)

func TestSecurityAnalysisPromptRendersJSONFormat(t *testing.T) {
	bundle := &parcontext.Bundle{
		FilePath:   "app.py",
		Language:   language.Python,
		FullSource: "query = f\"SELECT * FROM users WHERE id={user_id}\"",
		Match: pattern.Match{
			Kind:   pattern.Resource,
			Config: pattern.Config{Description: "string concatenation feeding a downstream sink"},
		},
	}
	p := SecurityAnalysisPrompt{Bundle: bundle, Format: Json{}, Lang: English}
	out, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "app.py") {
		t.Error("expected rendered prompt to include the file path")
	}
	if !strings.Contains(out, "single JSON object") {
		t.Error("expected the JSON output-format instruction")
	}
	if !strings.Contains(out, "Respond in English.") {
		t.Error("expected the language instruction")
	}
}

func TestSarifFormatNamesDriverAndPath(t *testing.T) {
	s := Sarif{Path: "out/report.sarif"}
	instr := s.instructionBlock()
	if !strings.Contains(instr, "out/report.sarif") || !strings.Contains(instr, "Parsentry") {
		t.Errorf("unexpected SARIF instruction: %q", instr)
	}
}

func TestIacAnalysisPromptUsesSubtypeChecklist(t *testing.T) {
	p := IacAnalysisPrompt{
		FilePath: "main.tf",
		Subtype:  IacTerraform,
		Source:   `resource "aws_s3_bucket" "b" {}`,
		Format:   Json{},
		Lang:     English,
	}
	out, err := p.Render()
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(out, "Public S3 buckets") {
		t.Error("expected the terraform checklist to appear")
	}
	if !strings.Contains(out, "CIS AWS") {
		t.Error("expected the compliance hint to appear")
	}
}

func TestJapaneseLanguageInstruction(t *testing.T) {
	if got := Japanese.instruction(); got != "Respond in Japanese." {
		t.Errorf("instruction() = %q", got)
	}
}

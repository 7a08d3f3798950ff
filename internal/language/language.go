// Package language identifies the programming or configuration language of
// a source file so the rest of the pipeline can pick the right grammar
// queries, pattern set, and prompt template for it.
package language

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Language is one of the closed set of languages this tool understands.
type Language string

const (
	Python         Language = "python"
	JavaScript     Language = "javascript"
	Rust           Language = "rust"
	TypeScript     Language = "typescript"
	Java           Language = "java"
	Go             Language = "go"
	Ruby           Language = "ruby"
	C              Language = "c"
	Cpp            Language = "cpp"
	Terraform      Language = "terraform"
	CloudFormation Language = "cloudformation"
	Kubernetes     Language = "kubernetes"
	Yaml           Language = "yaml"
	Bash           Language = "bash"
	Shell          Language = "shell"
	Php            Language = "php"
	Other          Language = "other"
)

// FromExtension maps a bare file extension (no leading dot) to a Language.
// Unknown extensions resolve to Other.
func FromExtension(ext string) Language {
	switch ext {
	case "py":
		return Python
	case "js", "jsx":
		return JavaScript
	case "rs":
		return Rust
	case "ts", "tsx":
		return TypeScript
	case "java":
		return Java
	case "go":
		return Go
	case "rb":
		return Ruby
	case "c", "h":
		return C
	case "cpp", "cxx", "cc", "hpp", "hxx":
		return Cpp
	case "tf", "hcl":
		return Terraform
	case "yml", "yaml":
		return Yaml
	case "sh", "bash":
		return Bash
	case "php", "php3", "php4", "php5", "phtml":
		return Php
	default:
		return Other
	}
}

// FromFilename derives a Language from a path's extension.
func FromFilename(filename string) Language {
	ext := filepath.Ext(filename)
	if ext == "" {
		return Other
	}
	return FromExtension(strings.TrimPrefix(ext, "."))
}

// IsIAC reports whether lang represents an infrastructure-as-code format.
func (l Language) IsIAC() bool {
	switch l {
	case Terraform, CloudFormation, Kubernetes, Yaml:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-facing name used in reports and prompts.
func (l Language) DisplayName() string {
	switch l {
	case Python:
		return "Python"
	case JavaScript:
		return "JavaScript"
	case Rust:
		return "Rust"
	case TypeScript:
		return "TypeScript"
	case Java:
		return "Java"
	case Go:
		return "Go"
	case Ruby:
		return "Ruby"
	case C:
		return "C"
	case Cpp:
		return "C++"
	case Terraform:
		return "Terraform"
	case CloudFormation:
		return "CloudFormation"
	case Kubernetes:
		return "Kubernetes"
	case Yaml:
		return "YAML"
	case Bash:
		return "Bash"
	case Shell:
		return "Shell"
	case Php:
		return "PHP"
	default:
		return "Other"
	}
}

func (l Language) String() string {
	return l.DisplayName()
}

// FromString parses a human-typed language name or alias, case-insensitively.
// It returns an error naming the supported set when s does not match any of
// them, mirroring the original tool's CLI validation message.
func FromString(s string) (Language, error) {
	switch strings.ToLower(s) {
	case "python", "py":
		return Python, nil
	case "javascript", "js":
		return JavaScript, nil
	case "rust", "rs":
		return Rust, nil
	case "typescript", "ts", "tsx":
		return TypeScript, nil
	case "java":
		return Java, nil
	case "go":
		return Go, nil
	case "ruby", "rb":
		return Ruby, nil
	case "c":
		return C, nil
	case "cpp", "c++", "cxx":
		return Cpp, nil
	case "terraform", "tf":
		return Terraform, nil
	case "cloudformation", "cfn":
		return CloudFormation, nil
	case "kubernetes", "k8s":
		return Kubernetes, nil
	case "yaml", "yml":
		return Yaml, nil
	case "bash":
		return Bash, nil
	case "shell", "sh":
		return Shell, nil
	case "php":
		return Php, nil
	case "other":
		return Other, nil
	default:
		return "", fmt.Errorf("unknown language: %q; supported languages: python, javascript, rust, typescript, java, go, ruby, c, cpp, terraform, cloudformation, kubernetes, yaml, bash, shell, php", s)
	}
}

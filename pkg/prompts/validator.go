package prompts

import (
	"fmt"
	"os"
	"regexp"
	"unicode/utf8"

	libinjection "github.com/corazawaf/libinjection-go"
	"gopkg.in/yaml.v3"

	"github.com/prism-bi/prism-gateway/pkg/apperrors"
)

// harmfulContentMessage is shared by every heuristic rejection so the
// response never reveals which pattern fired.
const harmfulContentMessage = "Prompt contains potentially harmful content"

// Rule pairs an injection heuristic with the message reported on match.
type Rule struct {
	Pattern *regexp.Regexp
	Message string
}

// ruleSpec is the YAML form of a Rule for operator-supplied rule files.
type ruleSpec struct {
	Pattern string `yaml:"pattern"`
	Message string `yaml:"message"`
}

// builtinRules covers the common prompt-injection phrasings. The list is
// deliberately data, not control flow: new heuristics are appended, either
// here or from a rules file.
var builtinRules = []Rule{
	{regexp.MustCompile(`(?i)system\s*(prompt|override|ignore)`), harmfulContentMessage},
	{regexp.MustCompile(`(?i)ignore\s*(previous|instructions|prompt)`), harmfulContentMessage},
	{regexp.MustCompile(`(?i)you\s*are\s*now`), harmfulContentMessage},
	{regexp.MustCompile(`(?i)forget\s*(everything|all|instructions)`), harmfulContentMessage},
}

// Validator enforces length bounds and injection heuristics on sanitized
// prompts. Pure function of the input string; no network or storage access.
type Validator struct {
	minLength int
	maxLength int
	rules     []Rule
}

// NewValidator creates a validator with the built-in heuristic set.
func NewValidator(minLength, maxLength int) *Validator {
	return &Validator{
		minLength: minLength,
		maxLength: maxLength,
		rules:     append([]Rule(nil), builtinRules...),
	}
}

// AddRule appends a custom heuristic.
func (v *Validator) AddRule(pattern *regexp.Regexp, message string) {
	v.rules = append(v.rules, Rule{Pattern: pattern, Message: message})
}

// LoadRules reads extra pattern/message pairs from a YAML file and appends
// them to the rule set. Rules without a message fall back to the shared
// harmful-content message.
func (v *Validator) LoadRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rules file: %w", err)
	}

	var specs []ruleSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return fmt.Errorf("parse rules file: %w", err)
	}

	for _, spec := range specs {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return fmt.Errorf("compile rule pattern %q: %w", spec.Pattern, err)
		}
		msg := spec.Message
		if msg == "" {
			msg = harmfulContentMessage
		}
		v.AddRule(re, msg)
	}
	return nil
}

// Validate returns nil for acceptable prompts, or an
// *apperrors.InvalidPromptError naming the first failed rule. Rules run in
// a fixed order: empty, too short, too long, heuristics.
func (v *Validator) Validate(prompt string) error {
	if prompt == "" {
		return apperrors.NewInvalidPrompt("Prompt cannot be empty")
	}

	length := utf8.RuneCountInString(prompt)
	if length < v.minLength {
		return apperrors.NewInvalidPrompt(
			fmt.Sprintf("Prompt is too short (minimum %d characters)", v.minLength))
	}
	if length > v.maxLength {
		return apperrors.NewInvalidPrompt(
			fmt.Sprintf("Prompt is too long (%d characters, maximum %d)", length, v.maxLength))
	}

	for _, rule := range v.rules {
		if rule.Pattern.MatchString(prompt) {
			return apperrors.NewInvalidPrompt(rule.Message)
		}
	}

	// SQL injection fingerprints reach the model as part of a
	// code-generation contract, so they are rejected like prompt injection.
	if isSQLi, _ := libinjection.IsSQLi(prompt); isSQLi {
		return apperrors.NewInvalidPrompt(harmfulContentMessage)
	}

	return nil
}

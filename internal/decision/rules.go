// Package decision contains policy engines and decorators that produce
// [access.Decision] functions. None of them are part of the authorization
// core, they are composed by whoever constructs a sandbox.
package decision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/desertwitch/rpcfs/internal/access"
	"github.com/desertwitch/rpcfs/internal/policy"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// Rule is a single rule as it appears in a rules file. Empty lists match
// anything. Paths are doublestar patterns matched against the rooted path,
// for example "/docs/**" or "/**/*.tmp".
type Rule struct {
	Name       string   `toml:"name"       yaml:"name"`
	Effect     string   `toml:"effect"     yaml:"effect"`
	Operations []string `toml:"operations" yaml:"operations"`
	Rights     []string `toml:"rights"     yaml:"rights"`
	Paths      []string `toml:"paths"      yaml:"paths"`
}

// RulesFile is the top-level structure of a rules file.
type RulesFile struct {
	// Default is the effect when no rule matches, deny when empty.
	Default string `toml:"default" yaml:"default"`
	Rules   []Rule `toml:"rules"   yaml:"rules"`
}

type compiledRule struct {
	name       string
	allow      bool
	operations []policy.Operation
	rights     []policy.Right
	paths      []string
}

// RuleSet is an ordered list of rules where the first matching rule wins.
type RuleSet struct {
	rules        []compiledRule
	defaultAllow bool
}

func parseEffect(effect string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(effect)) {
	case EffectAllow:
		return true, nil
	case EffectDeny, "":
		return false, nil
	default:
		return false, fmt.Errorf("%w: unknown effect %q", ErrInvalidRule, effect)
	}
}

// NewRuleSet validates and compiles a [RulesFile].
func NewRuleSet(file RulesFile) (*RuleSet, error) {
	defaultAllow, err := parseEffect(file.Default)
	if err != nil {
		return nil, fmt.Errorf("(decision-rules) default: %w", err)
	}

	rs := &RuleSet{
		rules:        make([]compiledRule, 0, len(file.Rules)),
		defaultAllow: defaultAllow,
	}

	for i, r := range file.Rules {
		name := r.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}

		if strings.TrimSpace(r.Effect) == "" {
			return nil, fmt.Errorf("(decision-rules) rule %s: %w: missing effect", name, ErrInvalidRule)
		}

		allow, err := parseEffect(r.Effect)
		if err != nil {
			return nil, fmt.Errorf("(decision-rules) rule %s: %w", name, err)
		}

		cr := compiledRule{
			name:  name,
			allow: allow,
			paths: r.Paths,
		}

		for _, o := range r.Operations {
			op, err := policy.ParseOperation(o)
			if err != nil {
				return nil, fmt.Errorf("(decision-rules) rule %s: %w: %w", name, ErrInvalidRule, err)
			}
			cr.operations = append(cr.operations, op)
		}

		for _, s := range r.Rights {
			right, err := policy.ParseRight(s)
			if err != nil {
				return nil, fmt.Errorf("(decision-rules) rule %s: %w: %w", name, ErrInvalidRule, err)
			}
			cr.rights = append(cr.rights, right)
		}

		for _, p := range r.Paths {
			if !doublestar.ValidatePattern(p) {
				return nil, fmt.Errorf("(decision-rules) rule %s: %w: bad pattern %q", name, ErrInvalidRule, p)
			}
		}

		rs.rules = append(rs.rules, cr)
	}

	return rs, nil
}

// LoadRules reads a rules file, choosing YAML or TOML by file extension.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("(decision-rules) failed to read: %w", err)
	}

	var file RulesFile

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("(decision-rules) failed to parse yaml: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("(decision-rules) failed to parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("(decision-rules) %w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	return NewRuleSet(file)
}

func (r *compiledRule) matches(req access.Request) bool {
	if len(r.operations) > 0 && !slices.Contains(r.operations, req.Operation) {
		return false
	}

	if len(r.rights) > 0 && !slices.Contains(r.rights, req.Right) {
		return false
	}

	if len(r.paths) == 0 {
		return true
	}

	for _, pattern := range r.paths {
		// Patterns were validated at compile time.
		if ok, _ := doublestar.Match(pattern, req.Path); ok {
			return true
		}
	}

	return false
}

// Decide is an [access.Decision] evaluating the rules in order.
func (rs *RuleSet) Decide(_ context.Context, req access.Request) (bool, error) {
	allowed, _ := rs.Evaluate(req)

	return allowed, nil
}

// Evaluate returns the outcome for a request along with the name of the
// matching rule, which is empty when the default applied.
func (rs *RuleSet) Evaluate(req access.Request) (bool, string) {
	for i := range rs.rules {
		if rs.rules[i].matches(req) {
			return rs.rules[i].allow, rs.rules[i].name
		}
	}

	return rs.defaultAllow, ""
}

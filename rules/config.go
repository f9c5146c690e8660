package rules

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// configFile is the YAML shape consumed by Load/Parse:
//
//	dependents:
//	  password: [password_confirm]
//	fields:
//	  email:
//	    - rule: required
//	    - rule: email
//	  items:
//	    - rule: at_least_one
//	    - rule: unique_by
//	      param: sku
//	  items.*.qty:
//	    - rule: min
//	      param: 1
//	      warn: true
type configFile struct {
	Fields     map[string][]configRule `yaml:"fields"`
	Dependents map[string][]string     `yaml:"dependents"`
}

type configRule struct {
	Rule    string `yaml:"rule"`
	Param   any    `yaml:"param"`
	Message string `yaml:"message"`
	Warn    bool   `yaml:"warn"`
}

// Load reads a YAML rule-set definition.
func Load(r io.Reader) (*Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a Set from YAML. Unknown rule names and missing parameters are
// configuration errors and fail loudly.
func Parse(data []byte) (*Set, error) {
	var cf configFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("rules: parse config: %w", err)
	}
	s := NewSet()

	patterns := make([]string, 0, len(cf.Fields))
	for p := range cf.Fields {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		var built []Rule
		for _, cr := range cf.Fields[pattern] {
			r, err := buildRule(cr)
			if err != nil {
				return nil, fmt.Errorf("rules: field %q: %w", pattern, err)
			}
			built = append(built, r)
		}
		s.Field(pattern, built...)
	}
	for trigger, deps := range cf.Dependents {
		s.DependsOn(trigger, deps...)
	}
	return s, nil
}

func buildRule(cr configRule) (Rule, error) {
	var r Rule
	var msgs []string
	if cr.Message != "" {
		msgs = []string{cr.Message}
	}
	switch cr.Rule {
	case "required":
		r = Required(msgs...)
	case "email":
		r = Email(msgs...)
	case "min_len":
		n, err := intParam(cr)
		if err != nil {
			return r, err
		}
		r = MinLen(n, msgs...)
	case "max_len":
		n, err := intParam(cr)
		if err != nil {
			return r, err
		}
		r = MaxLen(n, msgs...)
	case "min":
		n, err := floatParam(cr)
		if err != nil {
			return r, err
		}
		r = Min(n, msgs...)
	case "max":
		n, err := floatParam(cr)
		if err != nil {
			return r, err
		}
		r = Max(n, msgs...)
	case "pattern":
		expr, ok := cr.Param.(string)
		if !ok || expr == "" {
			return r, fmt.Errorf("rule %q needs a string param", cr.Rule)
		}
		r = Pattern(expr, msgs...)
	case "one_of":
		vals, ok := cr.Param.([]any)
		if !ok || len(vals) == 0 {
			return r, fmt.Errorf("rule %q needs a list param", cr.Rule)
		}
		r = OneOf(vals, msgs...)
	case "at_least_one":
		r = AtLeastOne(msgs...)
	case "max_items":
		n, err := intParam(cr)
		if err != nil {
			return r, err
		}
		r = MaxItems(n, msgs...)
	case "unique_by":
		key, ok := cr.Param.(string)
		if !ok || key == "" {
			return r, fmt.Errorf("rule %q needs a string param", cr.Rule)
		}
		r = UniqueBy(key, msgs...)
	default:
		return r, fmt.Errorf("unknown rule %q", cr.Rule)
	}
	if cr.Warn {
		r = r.AsWarning()
	}
	return r, nil
}

func intParam(cr configRule) (int, error) {
	switch n := cr.Param.(type) {
	case int:
		return n, nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("rule %q needs an integer param", cr.Rule)
	}
}

func floatParam(cr configRule) (float64, error) {
	switch n := cr.Param.(type) {
	case int:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("rule %q needs a numeric param", cr.Rule)
	}
}

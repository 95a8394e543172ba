package reconcile

import (
	"fmt"
	"sort"
	"strings"
)

// PolicyMode selects how category resolution failures are treated.
type PolicyMode string

const (
	// PolicyStrict makes every resolution failure fatal.
	PolicyStrict PolicyMode = "strict"
	// PolicyTolerateAll skips every resolution failure.
	PolicyTolerateAll PolicyMode = "tolerate-all"
	// PolicyToleratePrefixes skips failures whose code starts with a listed prefix.
	PolicyToleratePrefixes PolicyMode = "tolerate-prefixes"
)

// Verdict is the policy's answer for one failing code.
type Verdict int

const (
	VerdictFatal Verdict = iota
	VerdictSkip
)

func (v Verdict) String() string {
	if v == VerdictSkip {
		return "skip"
	}
	return "fatal"
}

// Policy is the unknown-category policy. The zero value is strict.
type Policy struct {
	Mode     PolicyMode
	Prefixes []string
}

// StrictPolicy fails on any unknown code.
func StrictPolicy() Policy { return Policy{Mode: PolicyStrict} }

// TolerateAllPolicy skips any unknown code.
func TolerateAllPolicy() Policy { return Policy{Mode: PolicyTolerateAll} }

// TolerancePrefixesPolicy skips unknown codes starting with one of prefixes.
func TolerancePrefixesPolicy(prefixes ...string) Policy {
	p := make([]string, len(prefixes))
	copy(p, prefixes)
	sort.Strings(p)
	return Policy{Mode: PolicyToleratePrefixes, Prefixes: p}
}

// ParsePolicy maps the --continue-on-unknown-code flag onto a policy.
// An absent flag is strict. A flag with no value, or a single empty value, tolerates everything.
func ParsePolicy(values []string, set bool) Policy {
	if !set {
		return StrictPolicy()
	}
	var prefixes []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			prefixes = append(prefixes, v)
		}
	}
	if len(prefixes) == 0 {
		return TolerateAllPolicy()
	}
	return TolerancePrefixesPolicy(prefixes...)
}

// PolicyFromConfig builds a policy from its configured mode name and prefixes.
func PolicyFromConfig(mode string, prefixes []string) (Policy, error) {
	switch PolicyMode(mode) {
	case "", PolicyStrict:
		return StrictPolicy(), nil
	case PolicyTolerateAll:
		return TolerateAllPolicy(), nil
	case PolicyToleratePrefixes:
		if len(prefixes) == 0 {
			return Policy{}, fmt.Errorf("policy %s requires at least one prefix", mode)
		}
		return TolerancePrefixesPolicy(prefixes...), nil
	default:
		return Policy{}, fmt.Errorf("unknown unknown-category policy %q", mode)
	}
}

// Decide is a pure function of the policy and the failing code.
func (p Policy) Decide(code string, _ error) Verdict {
	switch p.Mode {
	case PolicyTolerateAll:
		return VerdictSkip
	case PolicyToleratePrefixes:
		for _, prefix := range p.Prefixes {
			if strings.HasPrefix(code, prefix) {
				return VerdictSkip
			}
		}
	}
	return VerdictFatal
}

func (p Policy) String() string {
	switch p.Mode {
	case PolicyTolerateAll:
		return string(PolicyTolerateAll)
	case PolicyToleratePrefixes:
		return fmt.Sprintf("%s(%s)", PolicyToleratePrefixes, strings.Join(p.Prefixes, ","))
	default:
		return string(PolicyStrict)
	}
}

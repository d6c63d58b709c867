package pattern

import "strings"

// Rule is a compiled glob tagged with the inclusion effect it applies
// when it matches.
type Rule struct {
	glob    *Glob
	include bool
}

// RuleSet evaluates ordered include and exclude rules over relative file
// paths. Rules are walked in declaration order and the last matching rule
// wins; a "!" prefix inverts a rule's effect, so a later "!kept.log" in the
// exclude list re-includes a path excluded by an earlier "*.log".
type RuleSet struct {
	rules      []Rule
	hasInclude bool
}

// NewRuleSet compiles include and exclude pattern lists into a RuleSet.
// Include rules precede exclude rules; within each list declaration order
// is preserved.
func NewRuleSet(include, exclude []string) (*RuleSet, error) {
	rs := &RuleSet{}

	for _, expr := range include {
		rule, err := compileRule(expr, true)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, rule)
		rs.hasInclude = true
	}
	for _, expr := range exclude {
		rule, err := compileRule(expr, false)
		if err != nil {
			return nil, err
		}
		rs.rules = append(rs.rules, rule)
	}

	return rs, nil
}

// compileRule compiles one pattern from the include or exclude list.
// A leading "!" inverts the list's effect.
func compileRule(expr string, fromInclude bool) (Rule, error) {
	include := fromInclude
	if strings.HasPrefix(expr, "!") {
		include = !include
		expr = strings.TrimPrefix(expr, "!")
	}
	g, err := Compile(expr)
	if err != nil {
		return Rule{}, err
	}
	return Rule{glob: g, include: include}, nil
}

// Included reports whether a plain file at the given slash-separated
// relative path is selected by the rule set.
//
// A file starts included only when no include rules exist; otherwise it is
// excluded until an include rule matches. Every matching rule thereafter
// sets the state to its effect.
func (rs *RuleSet) Included(relpath string) bool {
	included := !rs.hasInclude

	for _, r := range rs.rules {
		if r.glob.MatchFile(relpath) {
			included = r.include
		}
	}

	return included
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int { return len(rs.rules) }

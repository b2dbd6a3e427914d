// Package classify maps account names to statement buckets through ordered
// keyword rules. Matching is best-effort: it keys off free-text names, never
// account codes, so the rule table is configurable.
package classify

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rule matches a name when it contains at least one Any keyword (if any are
// given) and every All keyword.
type Rule struct {
	Bucket Bucket   `yaml:"bucket"`
	Any    []string `yaml:"any,omitempty"`
	All    []string `yaml:"all,omitempty"`
}

func (r Rule) compile() Rule {
	out := Rule{Bucket: r.Bucket, Any: make([]string, 0, len(r.Any)), All: make([]string, 0, len(r.All))}
	for _, kw := range r.Any {
		if n := Normalize(kw); n != "" {
			out.Any = append(out.Any, n)
		}
	}
	for _, kw := range r.All {
		if n := Normalize(kw); n != "" {
			out.All = append(out.All, n)
		}
	}
	return out
}

func (r Rule) matches(name string) bool {
	if len(r.Any) == 0 && len(r.All) == 0 {
		return false
	}
	for _, kw := range r.All {
		if !strings.Contains(name, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, kw := range r.Any {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// Table is the ordered rule list and fallback bucket of one context.
type Table struct {
	Default Bucket `yaml:"default"`
	Rules   []Rule `yaml:"rules"`
}

// Classifier is immutable once built and safe for concurrent use.
type Classifier struct {
	tables map[Context]Table
}

// New validates and compiles the tables. Contexts absent from tables fall
// back to the built-in defaults.
func New(tables map[Context]Table) (*Classifier, error) {
	defaults := DefaultTables()
	c := &Classifier{tables: make(map[Context]Table, len(Contexts))}
	for _, ctx := range Contexts {
		table, ok := tables[ctx]
		if !ok {
			table = defaults[ctx]
		}
		if table.Default == "" {
			table.Default = defaults[ctx].Default
		}
		if err := validate(ctx, table); err != nil {
			return nil, err
		}
		compiled := Table{Default: table.Default, Rules: make([]Rule, 0, len(table.Rules))}
		for _, rule := range table.Rules {
			compiled.Rules = append(compiled.Rules, rule.compile())
		}
		c.tables[ctx] = compiled
	}
	for ctx := range tables {
		if !ctx.Valid() {
			return nil, fmt.Errorf("classify: unknown context %q", ctx)
		}
	}
	return c, nil
}

// Default returns a classifier over the built-in tables.
func Default() *Classifier {
	c, err := New(nil)
	if err != nil {
		panic(err)
	}
	return c
}

func validate(ctx Context, table Table) error {
	if owner, ok := table.Default.Context(); !ok || owner != ctx {
		return fmt.Errorf("classify: default bucket %q does not belong to context %s", table.Default, ctx)
	}
	for i, rule := range table.Rules {
		owner, ok := rule.Bucket.Context()
		if !ok {
			return fmt.Errorf("classify: %s rule %d: unknown bucket %q", ctx, i, rule.Bucket)
		}
		if owner != ctx {
			return fmt.Errorf("classify: %s rule %d: bucket %q belongs to %s", ctx, i, rule.Bucket, owner)
		}
		if len(rule.Any) == 0 && len(rule.All) == 0 {
			return fmt.Errorf("classify: %s rule %d: no keywords", ctx, i)
		}
	}
	return nil
}

// Classify returns the bucket of the first rule matching name, or the
// context default.
func (c *Classifier) Classify(name string, ctx Context) Bucket {
	if bucket, ok := c.match(Normalize(name), ctx); ok {
		return bucket
	}
	return c.tables[ctx].Default
}

// ClassifyPath classifies a lineage of names ordered nearest first. The first
// name matching any rule decides; otherwise the context default applies.
func (c *Classifier) ClassifyPath(names []string, ctx Context) Bucket {
	for _, name := range names {
		if bucket, ok := c.match(Normalize(name), ctx); ok {
			return bucket
		}
	}
	return c.tables[ctx].Default
}

// Matches reports whether name matches a rule for bucket. The context
// default never matches implicitly.
func (c *Classifier) Matches(name string, bucket Bucket) bool {
	ctx, ok := bucket.Context()
	if !ok {
		return false
	}
	got, ok := c.match(Normalize(name), ctx)
	return ok && got == bucket
}

func (c *Classifier) match(name string, ctx Context) (Bucket, bool) {
	for _, rule := range c.tables[ctx].Rules {
		if rule.matches(name) {
			return rule.Bucket, true
		}
	}
	return "", false
}

// Tables returns a copy of the compiled tables.
func (c *Classifier) Tables() map[Context]Table {
	out := make(map[Context]Table, len(c.tables))
	for ctx, table := range c.tables {
		rules := make([]Rule, len(table.Rules))
		copy(rules, table.Rules)
		out[ctx] = Table{Default: table.Default, Rules: rules}
	}
	return out
}

// Normalize decomposes, strips diacritics, case-folds and collapses
// whitespace so "Depreciação  Acumulada" and "DEPRECIACAO ACUMULADA" compare
// equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

func sortBuckets(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })
}

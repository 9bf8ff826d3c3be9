// Package nlu turns free-text commands into structured intents using a
// deterministic rule table. One input always yields one output; there
// is no statistical model anywhere in the path.
package nlu

import (
	"log/slog"
	"regexp"
	"sort"

	"github.com/asphodel42/amadeus/pkg/contracts"
)

// SlotNormalizer rewrites one extracted slot value.
type SlotNormalizer func(value string) string

// Rule maps one or more patterns to an intent type. Patterns are
// anchored full matches over the normalized input; named capture
// groups become slots.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type Rule struct {
	Intent   contracts.IntentType
	Patterns []*regexp.Regexp
	Priority int
	Examples []string
}

// Parser matches normalized input against its rule table in descending
// priority order. Ties keep registration order, so the table is sorted
// stably once at construction, never per call.
type Parser struct {
	rules       []Rule
	normalizers map[string]SlotNormalizer
	siteAliases map[string]string
	log         *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(p *Parser) { p.rules = rules }
}

// WithSiteAliases sets the known-site table used to rewrite an
// open-app match into an open-url intent ("open youtube").
func WithSiteAliases(aliases map[string]string) Option {
	return func(p *Parser) { p.siteAliases = aliases }
}

// NewParser builds a parser over the default rule table.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		rules:       defaultRules(),
		siteAliases: defaultSiteAliases(),
		log:         slog.Default().With("component", "nlu"),
	}
	p.normalizers = map[string]SlotNormalizer{
		"path":     normalizePath,
		"url":      normalizeURL,
		"app_name": normalizeAppName,
	}
	for _, opt := range opts {
		opt(p)
	}
	sort.SliceStable(p.rules, func(i, j int) bool {
		return p.rules[i].Priority > p.rules[j].Priority
	})
	return p
}

// Parse interprets one command. It is a pure function of the input and
// the configured rule table: no match yields an unknown intent with
// zero confidence, and empty input is treated identically.
func (p *Parser) Parse(req contracts.CommandRequest) contracts.Intent {
	text := Normalize(req.RawText)
	if text == "" {
		return contracts.UnknownIntent(req)
	}

	for _, rule := range p.rules {
		for _, re := range rule.Patterns {
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			slots := p.extractSlots(re, m)
			intent := contracts.Intent{
				Type:       rule.Intent,
				Slots:      slots,
				Confidence: 1.0,
				Request:    req,
			}
			return p.rewriteSiteAlias(intent)
		}
	}

	p.log.Debug("no rule matched", "text", text)
	return contracts.UnknownIntent(req)
}

func (p *Parser) extractSlots(re *regexp.Regexp, match []string) map[string]any {
	slots := map[string]any{}
	for i, name := range re.SubexpNames() {
		if name == "" || i >= len(match) || match[i] == "" {
			continue
		}
		value := match[i]
		if normalize, ok := p.normalizers[name]; ok {
			value = normalize(value)
		}
		slots[name] = value
	}
	return slots
}

// rewriteSiteAlias turns "open youtube" into an open-url intent when
// the app name is a configured site alias rather than an application.
func (p *Parser) rewriteSiteAlias(intent contracts.Intent) contracts.Intent {
	if intent.Type != contracts.IntentOpenApp {
		return intent
	}
	name := intent.Slot("app_name", "")
	url, ok := p.siteAliases[name]
	if !ok {
		return intent
	}
	return contracts.Intent{
		Type:       contracts.IntentOpenURL,
		Slots:      map[string]any{"url": url},
		Confidence: intent.Confidence,
		Request:    intent.Request,
	}
}

// SupportedIntents lists the intent types the rule table can produce.
func (p *Parser) SupportedIntents() []contracts.IntentType {
	seen := map[contracts.IntentType]bool{}
	var out []contracts.IntentType
	for _, r := range p.rules {
		if !seen[r.Intent] {
			seen[r.Intent] = true
			out = append(out, r.Intent)
		}
	}
	return out
}

// Examples returns the documented sample commands for one intent type.
func (p *Parser) Examples(intent contracts.IntentType) []string {
	var out []string
	for _, r := range p.rules {
		if r.Intent == intent {
			out = append(out, r.Examples...)
		}
	}
	return out
}

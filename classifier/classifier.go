// Package classifier maps raw action signals – form field attributes, button
// labels, navigation targets, key chords – to a sensitive-action category and
// a risk level. Tables are data-driven and evaluated first-match-wins so that
// adding or localizing a pattern never requires touching control flow. The
// no-match path runs on the majority of actions and must stay cheap.
package classifier

import (
	"regexp"
	"strings"

	"github.com/starks-and-wolves/ai-browser-secure/model/action"
	"github.com/starks-and-wolves/ai-browser-secure/policy"
)

// category pairs a label with the patterns that detect it. Order within a
// table matters: the first matching category wins.
type category struct {
	name     string
	patterns []*regexp.Regexp
}

func compile(name string, exprs ...string) category {
	compiled := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		compiled = append(compiled, regexp.MustCompile("(?i)"+expr))
	}
	return category{name: name, patterns: compiled}
}

// Field categories, most specific first.
var fieldCategories = []category{
	compile("password", `password`, `passwd`, `pwd`, `pass`, `secret`),
	compile("credit_card", `card.?num`, `cc.?num`, `credit.?card`, `card.?number`, `pan`),
	compile("cvv", `cvv`, `cvc`, `security.?code`, `card.?code`),
	compile("ssn", `ssn`, `social.?security`, `social.?sec`),
	compile("email", `email`, `e-mail`, `mail`),
	compile("phone", `phone`, `tel`, `mobile`, `cell`),
	compile("address", `address`, `street`, `city`, `zip`, `postal`),
	compile("name", `first.?name`, `last.?name`, `full.?name`, `name`),
	compile("dob", `dob`, `birth`, `birthday`),
	compile("bank", `account.?num`, `routing`, `iban`, `swift`, `bank`),
	compile("api_key", `api.?key`, `token`, `secret.?key`, `access.?key`),
	compile("username", `username`, `user.?name`, `login`, `user.?id`),
}

// criticalFields escalate to critical rather than high.
var criticalFields = map[string]bool{
	"password":    true,
	"credit_card": true,
	"cvv":         true,
	"ssn":         true,
	"bank":        true,
	"api_key":     true,
}

// maskedFields governs value masking on prompts. Bank fields are critical but
// not masked: account and routing numbers must stay readable so the approver
// can verify the destination.
var maskedFields = map[string]bool{
	"password":    true,
	"credit_card": true,
	"cvv":         true,
	"ssn":         true,
	"api_key":     true,
}

// Button categories.
var buttonCategories = []category{
	compile("submit", `submit`, `send`, `confirm`, `complete`),
	compile("login", `login`, `log.?in`, `sign.?in`, `signin`, `authenticate`),
	compile("payment", `pay`, `purchase`, `buy`, `checkout`, `order`, `subscribe`),
	compile("delete", `delete`, `remove`, `cancel`, `terminate`),
	compile("transfer", `transfer`, `send.?money`, `wire`),
}

var highRiskButtons = map[string]bool{
	"payment":  true,
	"delete":   true,
	"transfer": true,
}

// buttonActions maps a detected button category to the action type submitted
// to the broker.
var buttonActions = map[string]action.Type{
	"submit":   action.ClickSubmit,
	"login":    action.ClickLogin,
	"payment":  action.ClickPayment,
	"delete":   action.ClickSubmit,
	"transfer": action.ClickPayment,
}

// Shortcut describes one dangerous key combination.
type Shortcut struct {
	Keys        string
	Description string
}

// DangerousShortcuts is checked by substring, first match wins.
var DangerousShortcuts = []Shortcut{
	{"ctrl+shift+delete", "Clear browsing data"},
	{"cmd+shift+delete", "Clear browsing data"},
	{"ctrl+w", "Close tab"},
	{"cmd+w", "Close tab"},
	{"ctrl+shift+n", "Open incognito"},
	{"cmd+shift+n", "Open incognito"},
	{"alt+f4", "Close window"},
	{"cmd+q", "Quit application"},
}

func matchCategory(table []category, text string) string {
	if text == "" {
		return ""
	}
	for _, c := range table {
		for _, pattern := range c.patterns {
			if pattern.MatchString(text) {
				return c.name
			}
		}
	}
	return ""
}

// DetectField classifies a form field. An element with an explicit password
// input type is always critical; otherwise name, id, placeholder, aria-label
// and autocomplete are matched against the field table. The empty category
// with RiskLow means the field is not sensitive.
func DetectField(el *action.Element) (string, action.RiskLevel) {
	if el == nil {
		return "", action.RiskLow
	}
	if strings.EqualFold(el.Type, "password") {
		return "password", action.RiskCritical
	}
	combined := joinLower(el.Name, el.ID, el.Placeholder, el.AriaLabel, el.Autocomplete)
	field := matchCategory(fieldCategories, combined)
	if field == "" {
		return "", action.RiskLow
	}
	if criticalFields[field] {
		return field, action.RiskCritical
	}
	return field, action.RiskHigh
}

// MaskedField reports whether values typed into fields of this category must
// be masked before being shown on any approval surface.
func MaskedField(field string) bool {
	return maskedFields[field]
}

// DetectButton classifies a clickable element against the button table using
// its visible text plus value, aria-label, title, name and id attributes.
func DetectButton(el *action.Element) (string, action.RiskLevel) {
	if el == nil {
		return "", action.RiskLow
	}
	combined := joinLower(el.Text, el.Value, el.AriaLabel, el.Title, el.Name, el.ID)
	button := matchCategory(buttonCategories, combined)
	if button == "" {
		return "", action.RiskLow
	}
	if highRiskButtons[button] {
		return button, action.RiskHigh
	}
	return button, action.RiskMedium
}

// ButtonAction maps a detected button category to its broker action type,
// defaulting to click_submit.
func ButtonAction(button string) action.Type {
	if t, ok := buttonActions[button]; ok {
		return t
	}
	return action.ClickSubmit
}

// NavigationRisk is medium by default and high when the target domain is on
// the high-risk list.
func NavigationRisk(domain string, p *policy.Policy) action.RiskLevel {
	if p.IsHighRisk(domain) {
		return action.RiskHigh
	}
	return action.RiskMedium
}

// DetectShortcut matches a key chord against the dangerous shortcut table.
func DetectShortcut(keys string) (Shortcut, bool) {
	keys = strings.ToLower(keys)
	for _, shortcut := range DangerousShortcuts {
		if strings.Contains(keys, shortcut.Keys) {
			return shortcut, true
		}
	}
	return Shortcut{}, false
}

func joinLower(values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, strings.ToLower(v))
		}
	}
	return strings.Join(parts, " ")
}

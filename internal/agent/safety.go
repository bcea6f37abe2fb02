// Package agent implements the mailbox-cleanup agent: sender discovery,
// safety classification, junk scoring, the autonomous run orchestrator, and
// the interactive review-session orchestrator.
package agent

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/haris-cl/inbox-nuke/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

type ruleSet struct {
	ProtectedKeywords       []string `yaml:"protected_keywords"`
	ProtectedDomains        []string `yaml:"protected_domains"`
	ProtectedSenderPatterns []string `yaml:"protected_sender_patterns"`
	JunkSubjectPatterns     []string `yaml:"junk_subject_patterns"`
	JunkSenderPatterns      []string `yaml:"junk_sender_patterns"`
}

type compiledRules struct {
	keywordPattern  *regexp.Regexp
	domains         map[string]struct{}
	senderPatterns  []*regexp.Regexp
	junkSubject     []*regexp.Regexp
	junkSender      []*regexp.Regexp
}

var rules = mustCompileRules()

func mustCompileRules() *compiledRules {
	var rs ruleSet
	if err := yaml.Unmarshal(rulesYAML, &rs); err != nil {
		panic(fmt.Sprintf("invalid embedded rules.yaml: %v", err))
	}

	escaped := make([]string, len(rs.ProtectedKeywords))
	for i, kw := range rs.ProtectedKeywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}

	compiled := &compiledRules{
		keywordPattern: regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`),
		domains:        make(map[string]struct{}, len(rs.ProtectedDomains)),
	}

	for _, d := range rs.ProtectedDomains {
		compiled.domains[strings.ToLower(d)] = struct{}{}
	}
	for _, p := range rs.ProtectedSenderPatterns {
		compiled.senderPatterns = append(compiled.senderPatterns, regexp.MustCompile("(?i)"+p))
	}
	for _, p := range rs.JunkSubjectPatterns {
		compiled.junkSubject = append(compiled.junkSubject, regexp.MustCompile("(?i)"+p))
	}
	for _, p := range rs.JunkSenderPatterns {
		compiled.junkSender = append(compiled.junkSender, regexp.MustCompile("(?i)"+p))
	}

	return compiled
}

// SafetyCheck names which rule protected (or cleared) a sender or message.
type SafetyCheck string

const (
	CheckSafe             SafetyCheck = "safe"
	CheckWhitelisted      SafetyCheck = "whitelisted"
	CheckProtectedDomain  SafetyCheck = "protected_domain"
	CheckImportantSender  SafetyCheck = "important_sender"
	CheckProtectedKeyword SafetyCheck = "protected_keyword"
)

// SafetyVerdict is the outcome of a safety classification.
type SafetyVerdict struct {
	Protected bool
	Check     SafetyCheck
	Reason    string
}

// SafetyClassifier decides whether a sender or message may be acted on.
// Checks run in fixed priority order: whitelist, protected domains,
// protected sender patterns, protected keywords. First match wins.
type SafetyClassifier struct {
	whitelist []string
}

// NewSafetyClassifier builds a classifier over the given whitelist patterns
// (full email addresses or bare domains, matched case-insensitively; domain
// patterns also cover subdomains).
func NewSafetyClassifier(whitelist []*models.WhitelistEntry) *SafetyClassifier {
	patterns := make([]string, 0, len(whitelist))
	for _, entry := range whitelist {
		patterns = append(patterns, strings.ToLower(entry.Pattern))
	}
	return &SafetyClassifier{whitelist: patterns}
}

// CheckSender classifies a bare sender address.
func (c *SafetyClassifier) CheckSender(email string) SafetyVerdict {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return SafetyVerdict{Check: CheckSafe, Reason: "no sender email provided"}
	}

	domain := ExtractDomain(email)

	if pattern := c.whitelistMatch(email, domain); pattern != "" {
		return SafetyVerdict{
			Protected: true,
			Check:     CheckWhitelisted,
			Reason:    fmt.Sprintf("sender matches whitelist entry %q", pattern),
		}
	}

	if domain != "" && isProtectedDomain(domain) {
		return SafetyVerdict{
			Protected: true,
			Check:     CheckProtectedDomain,
			Reason:    fmt.Sprintf("domain %s is protected (%s)", domain, domainCategory(domain)),
		}
	}

	for _, pattern := range rules.senderPatterns {
		if pattern.MatchString(email) {
			return SafetyVerdict{
				Protected: true,
				Check:     CheckImportantSender,
				Reason:    fmt.Sprintf("sender %s matches a protected pattern (security/verification)", email),
			}
		}
	}

	return SafetyVerdict{Check: CheckSafe, Reason: "no safety concerns detected"}
}

// CheckMessage classifies a full message: sender checks first, then subject
// and snippet keyword scans.
func (c *SafetyClassifier) CheckMessage(meta *models.MessageMeta) SafetyVerdict {
	if verdict := c.CheckSender(meta.FromEmail); verdict.Protected {
		return verdict
	}

	if keyword := protectedKeyword(meta.Subject); keyword != "" {
		return SafetyVerdict{
			Protected: true,
			Check:     CheckProtectedKeyword,
			Reason:    fmt.Sprintf("subject contains protected keyword %q", keyword),
		}
	}

	if keyword := protectedKeyword(meta.Snippet); keyword != "" {
		return SafetyVerdict{
			Protected: true,
			Check:     CheckProtectedKeyword,
			Reason:    fmt.Sprintf("message snippet contains protected keyword %q", keyword),
		}
	}

	return SafetyVerdict{Check: CheckSafe, Reason: "no safety concerns detected"}
}

func (c *SafetyClassifier) whitelistMatch(email, domain string) string {
	for _, pattern := range c.whitelist {
		if strings.Contains(pattern, "@") {
			if email == pattern {
				return pattern
			}
			continue
		}
		if domain == pattern || strings.HasSuffix(domain, "."+pattern) {
			return pattern
		}
	}
	return ""
}

func isProtectedDomain(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}

	// All government and military domains are protected.
	if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".mil") {
		return true
	}

	if _, ok := rules.domains[domain]; ok {
		return true
	}

	for protected := range rules.domains {
		if strings.HasSuffix(domain, "."+protected) {
			return true
		}
	}

	return false
}

func protectedKeyword(text string) string {
	if text == "" {
		return ""
	}
	match := rules.keywordPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.ToLower(match[1])
}

// domainCategory buckets a domain for human-readable safety reasons.
func domainCategory(domain string) string {
	domain = strings.ToLower(domain)

	if strings.HasSuffix(domain, ".gov") || strings.HasSuffix(domain, ".mil") {
		return "government"
	}

	financial := []string{"bank", "fidelity", "vanguard", "schwab", "etrade",
		"robinhood", "coinbase", "paypal", "venmo", "stripe",
		"square", "capitalone", "chase", "wellsfargo", "citi", "tax", "irs"}
	for _, kw := range financial {
		if strings.Contains(domain, kw) {
			return "financial"
		}
	}

	healthcare := []string{"health", "medical", "hospital", "insurance", "anthem",
		"aetna", "cigna", "kaiser", "bluecross", "blueshield", "humana", "uhc"}
	for _, kw := range healthcare {
		if strings.Contains(domain, kw) {
			return "healthcare"
		}
	}

	return "unknown"
}

// ExtractDomain returns the lowercase domain part of an email address, or ""
// when the address has no @.
func ExtractDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

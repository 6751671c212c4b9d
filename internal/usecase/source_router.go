package usecase

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/importlens/backend/internal/domain"
)

// hostRule matches a normalized hostname to a marketplace variant.
type hostRule struct {
	variant domain.SourceVariant
	match   func(host string) bool
}

// domainRule matches the registered domain exactly or any subdomain of it.
func domainRule(registered string) func(string) bool {
	return func(host string) bool {
		return host == registered || strings.HasSuffix(host, "."+registered)
	}
}

// regionalRule matches a brand label followed by any regional suffix
// (amazon.de, amazon.com.br, es.aliexpress.com) but not hosts that merely
// contain the brand (amazonfake.com, amazon.example.org.evil).
func regionalRule(brand string) func(string) bool {
	pattern := regexp.MustCompile(`(^|\.)` + regexp.QuoteMeta(brand) + `\.(?:[a-z]{2,3}\.)?[a-z]{2,6}$`)
	return pattern.MatchString
}

// SourceRouter classifies URLs into marketplace variants.
type SourceRouter struct {
	rules []hostRule
}

// NewSourceRouter creates a router for the known marketplaces. Alibaba is
// matched strictly on its single domain; AliExpress and Amazon operate
// regional storefronts and are matched on any regional suffix.
func NewSourceRouter() *SourceRouter {
	return &SourceRouter{
		rules: []hostRule{
			{variant: domain.SourceAlibaba, match: domainRule("alibaba.com")},
			{variant: domain.SourceAliExpress, match: regionalRule("aliexpress")},
			{variant: domain.SourceAmazon, match: regionalRule("amazon")},
		},
	}
}

// Detect returns the marketplace variant for rawURL, or domain.SourceNone.
// It never fails: unparseable input is simply unrecognized.
func (r *SourceRouter) Detect(rawURL string) domain.SourceVariant {
	host := normalizeHost(rawURL)
	if host == "" {
		return domain.SourceNone
	}

	for _, rule := range r.rules {
		if rule.match(host) {
			return rule.variant
		}
	}
	return domain.SourceNone
}

// normalizeHost parses rawURL and returns its lowercase hostname without a
// leading "www." label. Returns "" when the URL is not an absolute http(s) URL.
func normalizeHost(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	return strings.TrimPrefix(host, "www.")
}

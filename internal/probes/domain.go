// Package probes holds the external collaborators of the analysis pipeline:
// domain/DNS, TLS, and page probes. Every probe is total at its boundary:
// timeouts, network errors, and parse failures all degrade to the neutral
// default result, never to an error value.
package probes

import (
	"context"
	"math"
	"net"
	"strings"
	"time"

	whois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/phishmeter/phishmeter/internal/config"
	"github.com/phishmeter/phishmeter/internal/resilience"
	"github.com/phishmeter/phishmeter/internal/scoring"
)

// DomainInfo carries domain-shape and DNS resolution signals.
type DomainInfo struct {
	Host                   string
	RegistrableDomainGuess string
	SubdomainCount         int
	DomainLength           int
	HasHyphen              bool
	IsPunycode             bool
	DigitRatio             float64
	DigitCount             int
	AlphaCount             int
	DNSResolves            bool
	ResolvedIPs            []string
	DomainAgeDays          int
	ClosestBrand           string
	ClosestBrandRatio      float64
}

// DomainProbe resolves a host and inspects its label structure, WHOIS age,
// and similarity to known brand names.
type DomainProbe struct {
	resolver     *net.Resolver
	dnsTimeout   time.Duration
	whoisTimeout time.Duration
}

func NewDomainProbe(cfg config.Settings) *DomainProbe {
	return &DomainProbe{
		resolver:     net.DefaultResolver,
		dnsTimeout:   cfg.DNSTimeout,
		whoisTimeout: cfg.WhoisTimeout,
	}
}

// Check gathers domain signals for host. An empty host or any lookup
// failure yields the zero-value fields.
func (p *DomainProbe) Check(ctx context.Context, host string) DomainInfo {
	info := describeHost(host)
	if host == "" {
		return info
	}

	info.ResolvedIPs = p.resolve(ctx, host)
	info.DNSResolves = len(info.ResolvedIPs) > 0

	// Registries have nothing to say about IP-literal hosts.
	if net.ParseIP(host) == nil {
		info.DomainAgeDays = p.domainAgeDays(ctx, info.RegistrableDomainGuess)
	}

	return info
}

// describeHost computes the purely lexical domain signals.
func describeHost(host string) DomainInfo {
	info := DomainInfo{Host: host}
	if host == "" {
		return info
	}

	labels := splitLabels(host)
	if len(labels) >= 2 {
		info.RegistrableDomainGuess = strings.Join(labels[len(labels)-2:], ".")
	}
	if len(labels) > 2 {
		info.SubdomainCount = len(labels) - 2
	}

	info.DomainLength = len(host)
	info.HasHyphen = strings.Contains(host, "-")
	info.IsPunycode = strings.Contains(host, "xn--")

	for _, r := range host {
		switch {
		case r >= '0' && r <= '9':
			info.DigitCount++
		case isLetter(r):
			info.AlphaCount++
		}
	}
	denom := len(host)
	if denom == 0 {
		denom = 1
	}
	info.DigitRatio = math.Round(float64(info.DigitCount)/float64(denom)*1e3) / 1e3

	info.ClosestBrand, info.ClosestBrandRatio = closestBrand(labels)
	return info
}

func (p *DomainProbe) resolve(ctx context.Context, host string) []string {
	ctx, cancel := context.WithTimeout(ctx, p.dnsTimeout)
	defer cancel()

	addrs, err := p.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool, len(addrs))
	var ips []string
	for _, addr := range addrs {
		ip := addr.IP.String()
		if !seen[ip] {
			seen[ip] = true
			ips = append(ips, ip)
		}
	}
	return ips
}

// domainAgeDays resolves the registration age via WHOIS. Registries
// frequently answer for the registrable domain only, so subdomain lookups
// are not attempted. Failure of any kind reports zero.
func (p *DomainProbe) domainAgeDays(ctx context.Context, domain string) int {
	if domain == "" {
		return 0
	}

	client := whois.NewClient()
	client.SetTimeout(p.whoisTimeout)

	// WHOIS servers rate-limit and drop connections freely, one retry
	// recovers most transient refusals.
	var raw string
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = 2
	err := resilience.RetryWithConfig(ctx, retryCfg, func() error {
		var lookupErr error
		raw, lookupErr = client.Whois(domain)
		return lookupErr
	})
	if err != nil {
		return 0
	}

	parsed, err := whoisparser.Parse(raw)
	if err != nil || parsed.Domain == nil {
		return 0
	}

	created := parseWhoisTime(strings.TrimSpace(parsed.Domain.CreatedDate))
	if created.IsZero() {
		return 0
	}

	days := int(time.Since(created).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

var whoisTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

func parseWhoisTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range whoisTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// closestBrand compares the second-level label against the brand list and
// reports the closest match by Levenshtein ratio. Informational only: the
// scorer's brand rule is a plain substring check, this signal surfaces
// near-miss typosquats like "paypa1".
func closestBrand(labels []string) (string, float64) {
	if len(labels) < 2 {
		return "", 0
	}
	label := labels[len(labels)-2]
	if label == "" {
		return "", 0
	}

	best := ""
	bestRatio := 0.0
	for _, brand := range scoring.BrandKeywords {
		ratio := levenshtein.RatioForStrings([]rune(label), []rune(brand), levenshtein.DefaultOptions)
		if ratio > bestRatio {
			bestRatio = ratio
			best = brand
		}
	}
	return best, math.Round(bestRatio*1e4) / 1e4
}

func splitLabels(host string) []string {
	var labels []string
	for _, label := range strings.Split(host, ".") {
		if label != "" {
			labels = append(labels, label)
		}
	}
	return labels
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

package features

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/phishmeter/phishmeter/internal/signals"
)

// SuspectKeywords are scanned against the normalized URL in this order, so
// KeywordsFound always preserves list order regardless of where the
// keywords appear in the URL.
var SuspectKeywords = []string{
	"login", "verify", "secure", "account", "update", "confirm",
	"bank", "payment", "billing", "card", "verify-account",
}

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)

// allowedSpecials are URL characters not counted toward special_char_count.
const allowedSpecials = ":/.?&=-_"

type parsedURL struct {
	normalized string
	scheme     string
	host       string
	path       string
	query      string
}

// parseURL normalizes a raw URL string and splits it into components.
// Unparseable input degrades to empty host/path rather than failing.
func parseURL(raw string) parsedURL {
	normalized := strings.TrimSpace(raw)
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "http://" + normalized
	}

	p := parsedURL{normalized: normalized}

	u, err := url.Parse(normalized)
	if err != nil {
		return p
	}

	p.scheme = u.Scheme
	p.host = strings.ToLower(u.Hostname())
	p.path = u.Path
	p.query = u.RawQuery
	return p
}

// Extract derives the lexical/structural signal set from a raw URL string.
// It is a total function: any input, including empty or malformed strings,
// produces a fully populated Set.
func Extract(rawURL string) signals.Set {
	p := parseURL(rawURL)

	sig := signals.Set{
		URL:        p.normalized,
		Scheme:     p.scheme,
		Host:       p.host,
		URLLength:  len(p.normalized),
		PathLength: len(p.path),
	}

	if params, err := url.ParseQuery(p.query); err == nil {
		sig.ParamCount = len(params)
	}

	if strings.Contains(p.host, ".") {
		sig.TLD = strings.ToLower(p.host[strings.LastIndex(p.host, ".")+1:])
		sig.SuspiciousTLD = signals.SuspiciousTLDs[sig.TLD]
	}

	sig.HasAt = strings.Contains(p.normalized, "@")
	sig.HasDoubleSlash = strings.Contains(afterScheme(p.normalized), "//")
	sig.HasIP = ipv4Pattern.MatchString(p.host)

	urlLower := strings.ToLower(p.normalized)
	for _, kw := range SuspectKeywords {
		if strings.Contains(urlLower, kw) {
			sig.KeywordsFound = append(sig.KeywordsFound, kw)
		}
	}
	sig.SuspectKeywordCount = len(sig.KeywordsFound)

	sig.HostEntropy = Entropy(p.host)
	sig.PathEntropy = Entropy(p.path)

	sig.DotCountInHost = strings.Count(p.host, ".")
	sig.SpecialCharCount = countSpecialChars(p.normalized)

	return sig
}

// afterScheme returns the portion of the URL after the last "://", or the
// whole string when no scheme separator is present.
func afterScheme(s string) string {
	if i := strings.LastIndex(s, "://"); i >= 0 {
		return s[i+3:]
	}
	return s
}

func countSpecialChars(s string) int {
	count := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			continue
		}
		if strings.ContainsRune(allowedSpecials, r) {
			continue
		}
		count++
	}
	return count
}

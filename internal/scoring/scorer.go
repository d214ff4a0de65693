package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/phishmeter/phishmeter/internal/signals"
)

// Final-score blend and normalization constants. These are fixed; changing
// them breaks output compatibility with recorded verdicts.
const (
	baseScoreWeight     = 0.65
	categoryBlendWeight = 0.35
	categoryDivisor     = 2.0
)

var downloadSuffixes = []string{".exe", ".zip", ".scr", ".msi"}

// reasonList is an ordered set: first-trigger order, duplicates dropped.
type reasonList struct {
	seen  map[string]bool
	order []string
}

func newReasonList() *reasonList {
	return &reasonList{seen: make(map[string]bool), order: []string{}}
}

func (r *reasonList) add(reason string) {
	if r.seen[reason] {
		return
	}
	r.seen[reason] = true
	r.order = append(r.order, reason)
}

// Score evaluates the fixed weighted-rule table against a merged signal set
// and produces a Verdict. It is deterministic and total: missing signals
// are their zero-value defaults and no input can make it fail.
func Score(sig signals.Set) Verdict {
	score := 0.0
	reasons := newReasonList()
	cats := map[string]float64{
		CategoryCredentialTheft: 0,
		CategoryCardTheft:       0,
		CategoryInfoGathering:   0,
		CategoryMalware:         0,
	}

	urlLower := strings.ToLower(sig.URL)
	host := strings.ToLower(sig.Host)

	keywords := make(map[string]bool, len(sig.KeywordsFound))
	for _, kw := range sig.KeywordsFound {
		keywords[strings.ToLower(kw)] = true
	}

	// URL shape signals.
	if sig.SuspiciousTLD {
		score += 0.22
		reasons.add("Suspicious top-level domain")
	}
	if sig.HasIP {
		score += 0.30
		reasons.add("URL uses an IP address instead of domain")
	}
	if sig.URLLength > 80 {
		score += 0.12
		reasons.add("Unusually long URL")
	}
	if sig.SpecialCharCount > 5 {
		score += 0.10
		reasons.add("Many special characters in URL")
	}
	if sig.HostEntropy > 3.2 {
		score += 0.09
		reasons.add("High entropy in host (looks random/auto-generated)")
	}
	if sig.PathEntropy > 4.0 {
		score += 0.06
		reasons.add("High entropy in path (suspicious)")
	}

	// Form signals from the page probe.
	if sig.HasPasswordInput {
		score += 0.35
		cats[CategoryCredentialTheft] += 1.2
		reasons.add("Page contains password input (login form detected)")
	}
	if sig.HasCardInputs {
		score += 0.45
		cats[CategoryCardTheft] += 1.4
		reasons.add("Page contains card-related input fields")
	}
	if sig.ExternalFormAction {
		score += 0.25
		reasons.add("Form submits to a different domain")
		cats[CategoryCredentialTheft] += 0.8
	}

	// Keyword signals.
	if matched := intersectSorted(keywords, "login", "secure", "verify", "account"); len(matched) > 0 {
		score += 0.30
		reasons.add("Suspicious keywords in URL: " + strings.Join(matched, ", "))
		cats[CategoryCredentialTheft] += 1.0
	}
	if matched := intersectSorted(keywords, "card", "billing", "payment"); len(matched) > 0 {
		score += 0.30
		reasons.add("Payment/card-related keywords: " + strings.Join(matched, ", "))
		cats[CategoryCardTheft] += 1.0
	}
	if matched := intersectSorted(keywords, "survey", "free", "claim"); len(matched) > 0 {
		score += 0.08
		reasons.add("Promotional/offer keywords (possible info harvesting)")
		cats[CategoryInfoGathering] += 0.6
	}
	if len(intersectSorted(keywords, "download", "setup")) > 0 || hasDownloadSuffix(urlLower) {
		score += 0.45
		reasons.add("URL links to downloadable executable or archive")
		cats[CategoryMalware] += 1.2
	}

	// Brand impersonation: first brand contained in the host where the host
	// is not the brand's own domain. Penalty applies once.
	for _, brand := range BrandKeywords {
		if strings.Contains(host, brand) && !strings.HasPrefix(host, brand+".") {
			score += 0.40
			reasons.add(fmt.Sprintf("Host contains brand name '%s' (possible impersonation)", brand))
			cats[CategoryCredentialTheft] += 1.0
			break
		}
	}

	// Structure and page behavior signals.
	if sig.ParamCount >= 5 {
		score += 0.06
		reasons.add("Many query parameters in URL")
	}
	if sig.HasDoubleSlash {
		score += 0.05
		reasons.add("Unusual double-slash in path")
	}
	if sig.RedirectCount >= 3 {
		score += 0.10
		reasons.add("Multiple redirects before reaching content")
	}
	if sig.MetaRefresh {
		score += 0.12
		reasons.add("Meta refresh redirect detected")
	}
	if sig.IframeCount >= 2 {
		score += 0.10
		reasons.add("Page contains multiple iframes")
	}
	if sig.ExternalDomainCount >= 5 {
		score += 0.08
		reasons.add("Page loads content from many external domains")
	}
	if sig.ExternalScriptCount >= 3 {
		score += 0.08
		reasons.add("Page loads several external scripts")
	}
	if len(sig.SuspiciousJSKeywords) > 0 {
		score += 0.18
		reasons.add("Suspicious JavaScript patterns detected")
		cats[CategoryMalware] += 0.6
	}
	if sig.WordCount > 0 && sig.WordCount < 80 && sig.HasLoginForm {
		score += 0.06
		reasons.add("Sparse page text with login form")
	}

	// Silent category boost for throwaway TLDs.
	if signals.SuspiciousTLDs[sig.TLD] {
		cats[CategoryCredentialTheft] += 0.20
		cats[CategoryMalware] += 0.12
	}

	// Joint indicators.
	if cats[CategoryCredentialTheft] > 0 && cats[CategoryCardTheft] > 0 {
		reasons.add("Indicators for both credential and card theft")
		score += 0.10
	}

	score = clamp(score, 0.0, 1.0)

	scaled := make(map[string]float64, len(cats))
	maxScaled := 0.0
	for _, c := range Categories {
		v := round3(clamp(cats[c]/categoryDivisor, 0.0, 1.0))
		scaled[c] = v
		if v > maxScaled {
			maxScaled = v
		}
	}

	predicted := []string{}
	for _, c := range Categories {
		if scaled[c] >= 0.5 {
			predicted = append(predicted, c)
		}
	}

	if len(predicted) == 0 && score >= 0.65 {
		predicted = []string{CategoryCredentialTheft}
		reasons.add("High overall risk without clear category: fallback to credential_theft")
	}

	finalScore := round3(clamp(score*baseScoreWeight+maxScaled*categoryBlendWeight, 0.0, 1.0))

	return Verdict{
		Risk:                riskFor(finalScore),
		Score:               finalScore,
		PredictedCategories: predicted,
		Reasons:             reasons.order,
	}
}

// riskFor maps a final score to its coarse tier.
func riskFor(score float64) Risk {
	switch {
	case score >= 0.7:
		return RiskHigh
	case score >= 0.4:
		return RiskMedium
	default:
		return RiskLow
	}
}

// intersectSorted returns the keywords present in found, sorted
// alphabetically for stable reason strings.
func intersectSorted(found map[string]bool, targets ...string) []string {
	var matched []string
	for _, t := range targets {
		if found[t] {
			matched = append(matched, t)
		}
	}
	sort.Strings(matched)
	return matched
}

func hasDownloadSuffix(urlLower string) bool {
	for _, suffix := range downloadSuffixes {
		if strings.HasSuffix(urlLower, suffix) {
			return true
		}
	}
	return false
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round3(x float64) float64 {
	return math.Round(x*1e3) / 1e3
}

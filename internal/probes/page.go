package probes

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/phishmeter/phishmeter/internal/config"
)

// PageInfo carries signals from fetching and parsing the page behind a URL.
type PageInfo struct {
	HasLoginForm         bool
	HasPasswordInput     bool
	HasCardInputs        bool
	DetectedFields       []string
	ExternalFormAction   bool
	RedirectCount        int
	MetaRefresh          bool
	IframeCount          int
	ScriptTagCount       int
	ExternalScriptCount  int
	ExternalDomainCount  int
	SuspiciousJSKeywords []string
	WordCount            int
}

const maxBodyBytes = 2 << 20

var cardFieldNames = []string{
	"card", "cardnumber", "card_number", "cc-number", "cc_number",
	"ccnumber", "cvv", "cvc", "expiry", "exp",
}

// suspiciousJSPatterns is scanned in order against inline script text, so
// SuspiciousJSKeywords output order is stable.
var suspiciousJSPatterns = []string{
	"eval(", "unescape(", "atob(", "document.write(", "fromcharcode", "debugger",
}

// PageProbe fetches a page and extracts form and behavior signals. Network
// errors, over-limit redirects, and error statuses yield the zero-value
// PageInfo.
type PageProbe struct {
	transport    http.RoundTripper
	timeout      time.Duration
	userAgent    string
	maxRedirects int
}

func NewPageProbe(cfg config.Settings) *PageProbe {
	return &PageProbe{
		transport:    &http.Transport{MaxIdleConns: 10, IdleConnTimeout: 30 * time.Second},
		timeout:      cfg.RequestTimeout,
		userAgent:    cfg.UserAgent,
		maxRedirects: cfg.MaxRedirects,
	}
}

func (p *PageProbe) Check(ctx context.Context, pageURL string) PageInfo {
	redirects := 0
	client := &http.Client{
		Transport: p.transport,
		Timeout:   p.timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			redirects = len(via)
			if len(via) >= p.maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return PageInfo{}
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return PageInfo{}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return PageInfo{}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return PageInfo{}
	}

	info := parsePage(doc, resp.Request.URL)
	info.RedirectCount = redirects
	return info
}

type pageWalk struct {
	info          PageInfo
	base          *url.URL
	externalHosts map[string]bool
	fieldSeen     map[string]bool
	scriptText    strings.Builder
	text          strings.Builder
}

// parsePage extracts all page signals from a parsed document. Split out
// from Check so tests can feed documents without a live server.
func parsePage(doc *html.Node, base *url.URL) PageInfo {
	w := &pageWalk{
		base:          base,
		externalHosts: make(map[string]bool),
		fieldSeen:     make(map[string]bool),
	}
	w.visit(doc)

	w.info.ExternalDomainCount = len(w.externalHosts)
	w.info.WordCount = len(strings.Fields(w.text.String()))

	scripts := strings.ToLower(w.scriptText.String())
	for _, pattern := range suspiciousJSPatterns {
		if strings.Contains(scripts, pattern) {
			w.info.SuspiciousJSKeywords = append(w.info.SuspiciousJSKeywords, pattern)
		}
	}

	return w.info
}

func (w *pageWalk) visit(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		switch n.Data {
		case "form":
			w.analyzeForm(n)
		case "iframe":
			w.info.IframeCount++
			w.trackExternal(attr(n, "src"))
		case "script":
			w.info.ScriptTagCount++
			if src := attr(n, "src"); src != "" {
				if w.isExternal(src) {
					w.info.ExternalScriptCount++
				}
				w.trackExternal(src)
			} else {
				w.collectText(n, &w.scriptText)
			}
			return // inline script text is not page text
		case "style", "noscript":
			return
		case "meta":
			if strings.EqualFold(attr(n, "http-equiv"), "refresh") {
				w.info.MetaRefresh = true
			}
		case "img", "link", "source", "embed":
			w.trackExternal(attr(n, "src"))
			w.trackExternal(attr(n, "href"))
		}
	case html.TextNode:
		w.text.WriteString(n.Data)
		w.text.WriteString(" ")
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.visit(c)
	}
}

// analyzeForm inspects one form's inputs for credential and card fields.
func (w *pageWalk) analyzeForm(form *html.Node) {
	var names, types []string

	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" {
			if name := strings.ToLower(attr(n, "name")); name != "" {
				names = append(names, name)
				if !w.fieldSeen[name] {
					w.fieldSeen[name] = true
					w.info.DetectedFields = append(w.info.DetectedFields, name)
				}
			}
			if typ := strings.ToLower(attr(n, "type")); typ != "" {
				types = append(types, typ)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(form)

	if containsString(types, "password") || anyContains(names, "password") {
		w.info.HasPasswordInput = true
		w.info.HasLoginForm = true
	}

	cardLike := false
	for _, name := range names {
		for _, cl := range cardFieldNames {
			if strings.Contains(name, cl) {
				cardLike = true
			}
		}
	}
	numericTyped := containsString(types, "tel") || containsString(types, "number")
	if cardLike || (numericTyped && anyContains(names, "card")) {
		w.info.HasCardInputs = true
	}

	if action := attr(form, "action"); action != "" && w.isExternal(action) {
		w.info.ExternalFormAction = true
	}
}

func (w *pageWalk) collectText(n *html.Node, out *strings.Builder) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			out.WriteString(c.Data)
			out.WriteString(" ")
		}
		w.collectText(c, out)
	}
}

func (w *pageWalk) trackExternal(raw string) {
	if host := w.resolveHost(raw); host != "" && !strings.EqualFold(host, w.base.Hostname()) {
		w.externalHosts[strings.ToLower(host)] = true
	}
}

func (w *pageWalk) isExternal(raw string) bool {
	host := w.resolveHost(raw)
	return host != "" && !strings.EqualFold(host, w.base.Hostname())
}

func (w *pageWalk) resolveHost(raw string) string {
	if raw == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return w.base.ResolveReference(ref).Hostname()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func anyContains(values []string, substr string) bool {
	for _, v := range values {
		if strings.Contains(v, substr) {
			return true
		}
	}
	return false
}

// Package analyzer wires the feature extractor, the network probes, and the
// scorers into one pipeline.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phishmeter/phishmeter/internal/config"
	"github.com/phishmeter/phishmeter/internal/features"
	"github.com/phishmeter/phishmeter/internal/mlscore"
	"github.com/phishmeter/phishmeter/internal/probes"
	"github.com/phishmeter/phishmeter/internal/scoring"
	"github.com/phishmeter/phishmeter/internal/signals"
)

// Report is the full analysis result for one URL.
type Report struct {
	RequestID string          `json:"request_id"`
	URL       string          `json:"url"`
	Features  signals.Set     `json:"features"`
	Heuristic scoring.Verdict `json:"heuristic"`
	ML        mlscore.Result  `json:"ml"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// ProbeRecorder receives per-probe outcome counts. Satisfied by
// monitoring.Metrics.
type ProbeRecorder interface {
	RecordProbe(probe string, ok bool)
}

// Analyzer runs the analysis pipeline. Stateless between calls and safe for
// concurrent use.
type Analyzer struct {
	domain   *probes.DomainProbe
	tls      *probes.TLSProbe
	page     *probes.PageProbe
	ml       *mlscore.Scorer
	log      *slog.Logger
	recorder ProbeRecorder
}

func New(cfg config.Settings, ml *mlscore.Scorer, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{
		domain: probes.NewDomainProbe(cfg),
		tls:    probes.NewTLSProbe(cfg),
		page:   probes.NewPageProbe(cfg),
		ml:     ml,
		log:    log,
	}
}

// WithProbeRecorder attaches a metrics sink for probe outcomes.
func (a *Analyzer) WithProbeRecorder(r ProbeRecorder) *Analyzer {
	a.recorder = r
	return a
}

// Analyze extracts features, runs the probes concurrently, and scores the
// merged signal set.
func (a *Analyzer) Analyze(ctx context.Context, rawURL string) Report {
	return a.run(ctx, rawURL, false)
}

// AnalyzeOffline scores lexical features only, skipping every network probe.
func (a *Analyzer) AnalyzeOffline(ctx context.Context, rawURL string) Report {
	return a.run(ctx, rawURL, true)
}

func (a *Analyzer) run(ctx context.Context, rawURL string, offline bool) Report {
	start := time.Now()
	sig := features.Extract(rawURL)

	if !offline {
		var (
			dom  probes.DomainInfo
			cert probes.TLSInfo
			page probes.PageInfo
		)

		// Probes never fail, the group only bounds their lifetime.
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			dom = a.domain.Check(gctx, sig.Host)
			return nil
		})
		g.Go(func() error {
			cert = a.tls.Check(gctx, sig.Host)
			return nil
		})
		g.Go(func() error {
			page = a.page.Check(gctx, sig.URL)
			return nil
		})
		_ = g.Wait()

		if a.recorder != nil {
			a.recorder.RecordProbe("domain", dom.DNSResolves)
			a.recorder.RecordProbe("tls", cert.Supported)
			a.recorder.RecordProbe("page", page.WordCount > 0 || page.ScriptTagCount > 0 || page.HasLoginForm)
		}

		mergeDomain(&sig, dom)
		mergeTLS(&sig, cert)
		mergePage(&sig, page)
	}

	report := Report{
		RequestID: uuid.NewString(),
		URL:       sig.URL,
		Features:  sig,
		Heuristic: scoring.Score(sig),
		ML:        a.ml.Score(sig),
		ElapsedMS: time.Since(start).Milliseconds(),
	}

	a.log.Debug("analysis complete",
		"request_id", report.RequestID,
		"url", report.URL,
		"risk", report.Heuristic.Risk,
		"score", report.Heuristic.Score,
		"offline", offline,
		"elapsed_ms", report.ElapsedMS,
	)
	return report
}

func mergeDomain(sig *signals.Set, dom probes.DomainInfo) {
	sig.RegistrableDomainGuess = dom.RegistrableDomainGuess
	sig.SubdomainCount = dom.SubdomainCount
	sig.DomainLength = dom.DomainLength
	sig.HasHyphen = dom.HasHyphen
	sig.IsPunycode = dom.IsPunycode
	sig.DigitRatio = dom.DigitRatio
	sig.DigitCount = dom.DigitCount
	sig.AlphaCount = dom.AlphaCount
	sig.DNSResolves = dom.DNSResolves
	sig.ResolvedIPs = dom.ResolvedIPs
	sig.ResolvedIPCount = len(dom.ResolvedIPs)
	sig.DomainAgeDays = dom.DomainAgeDays
	sig.ClosestBrand = dom.ClosestBrand
	sig.ClosestBrandRatio = dom.ClosestBrandRatio
}

func mergeTLS(sig *signals.Set, cert probes.TLSInfo) {
	sig.TLSSupported = cert.Supported
	sig.TLSVersion = cert.Version
	sig.CertSubject = cert.Subject
	sig.CertIssuer = cert.Issuer
	sig.CertDaysRemaining = cert.DaysRemaining
	sig.CertSelfSigned = cert.SelfSigned
}

func mergePage(sig *signals.Set, page probes.PageInfo) {
	sig.HasLoginForm = page.HasLoginForm
	sig.HasPasswordInput = page.HasPasswordInput
	sig.HasCardInputs = page.HasCardInputs
	sig.DetectedFields = page.DetectedFields
	sig.ExternalFormAction = page.ExternalFormAction
	sig.RedirectCount = page.RedirectCount
	sig.MetaRefresh = page.MetaRefresh
	sig.IframeCount = page.IframeCount
	sig.ScriptTagCount = page.ScriptTagCount
	sig.ExternalScriptCount = page.ExternalScriptCount
	sig.ExternalDomainCount = page.ExternalDomainCount
	sig.SuspiciousJSKeywords = page.SuspiciousJSKeywords
	sig.WordCount = page.WordCount
}

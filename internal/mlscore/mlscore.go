// Package mlscore holds the optional model-backed scorer. The model is a
// deployment artifact, not a build dependency: when the ONNX file or the
// onnxruntime shared library is absent the scorer stays loaded in a degraded
// state and every call reports why, so the heuristic pipeline keeps working
// on machines without the runtime.
package mlscore

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/phishmeter/phishmeter/internal/signals"
)

// Result is the outcome of one model evaluation.
type Result struct {
	Available bool    `json:"available"`
	Score     float64 `json:"score,omitempty"`
	Label     string  `json:"label,omitempty"`
	Reason    string  `json:"reason,omitempty"`
}

// featureCount is the input width the model was exported with. Keep in sync
// with featureVector.
const featureCount = 24

// Scorer runs a binary phishing classifier over the numeric signal vector.
type Scorer struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	unavailable string

	mu sync.Mutex
}

// NewScorer loads the model at modelPath. Load failures are not errors:
// the returned Scorer answers every Score call with an unavailable Result
// naming the cause.
func NewScorer(modelPath string) *Scorer {
	s := &Scorer{}

	info, err := os.Stat(modelPath)
	if err != nil {
		s.unavailable = "model artifacts not found"
		return s
	}
	if info.Size() == 0 {
		s.unavailable = "model artifacts are empty"
		return s
	}

	libPath := sharedLibraryPath(filepath.Dir(modelPath))
	if libPath == "" {
		s.unavailable = "onnxruntime shared library not found"
		return s
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			s.unavailable = fmt.Sprintf("initialize onnxruntime: %v", err)
			return s
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, featureCount))
	if err != nil {
		s.unavailable = fmt.Sprintf("allocate input tensor: %v", err)
		return s
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		input.Destroy()
		s.unavailable = fmt.Sprintf("allocate output tensor: %v", err)
		return s
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"features"},
		[]string{"probability"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		s.unavailable = fmt.Sprintf("create onnx session: %v", err)
		return s
	}

	s.session = session
	s.input = input
	s.output = output
	return s
}

// Available reports whether a model session is loaded.
func (s *Scorer) Available() bool {
	return s != nil && s.session != nil
}

// Score evaluates the model for one signal set.
func (s *Scorer) Score(sig signals.Set) Result {
	if s == nil || s.session == nil {
		reason := "scorer not initialized"
		if s != nil && s.unavailable != "" {
			reason = s.unavailable
		}
		return Result{Available: false, Reason: reason}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.input.GetData(), featureVector(sig))
	if err := s.session.Run(); err != nil {
		return Result{Available: false, Reason: fmt.Sprintf("onnx run: %v", err)}
	}

	raw := s.output.GetData()
	if len(raw) == 0 {
		return Result{Available: false, Reason: "model produced no output"}
	}

	score := math.Round(float64(raw[0])*1e4) / 1e4
	return Result{Available: true, Score: score, Label: labelFor(score)}
}

// Close releases the session and its tensors.
func (s *Scorer) Close() {
	if s == nil || s.session == nil {
		return
	}
	s.session.Destroy()
	s.input.Destroy()
	s.output.Destroy()
	s.session = nil
}

func labelFor(score float64) string {
	if score >= 0.5 {
		return "phishing"
	}
	return "legitimate"
}

// featureVector flattens the numeric signals in the order the model was
// trained on.
func featureVector(sig signals.Set) []float32 {
	return []float32{
		float32(sig.URLLength),
		float32(sig.PathLength),
		float32(sig.ParamCount),
		float32(sig.SuspectKeywordCount),
		float32(sig.HostEntropy),
		float32(sig.PathEntropy),
		float32(sig.DotCountInHost),
		float32(sig.SpecialCharCount),
		b2f(sig.SuspiciousTLD),
		b2f(sig.HasIP),
		b2f(sig.HasAt),
		b2f(sig.HasDoubleSlash),
		float32(sig.SubdomainCount),
		float32(sig.DomainLength),
		b2f(sig.HasHyphen),
		b2f(sig.IsPunycode),
		float32(sig.DigitRatio),
		b2f(sig.DNSResolves),
		float32(sig.DomainAgeDays),
		float32(sig.ClosestBrandRatio),
		b2f(sig.TLSSupported),
		b2f(sig.HasLoginForm),
		b2f(sig.HasPasswordInput),
		b2f(sig.HasCardInputs),
	}
}

func b2f(v bool) float32 {
	if v {
		return 1
	}
	return 0
}

// sharedLibraryPath locates the onnxruntime shared library. The environment
// variable wins; otherwise common install locations are probed.
func sharedLibraryPath(modelDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		modelDir,
		filepath.Join(modelDir, "lib"),
		".",
		"/usr/local/lib",
		"/usr/lib",
		"/opt/homebrew/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}

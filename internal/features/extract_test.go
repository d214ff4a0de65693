package features

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractNormalization(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "prepends http scheme when missing",
			input:    "example.com/login",
			expected: "http://example.com/login",
		},
		{
			name:     "keeps https scheme",
			input:    "https://example.com",
			expected: "https://example.com",
		},
		{
			name:     "trims surrounding whitespace",
			input:    "  example.com  ",
			expected: "http://example.com",
		},
		{
			name:     "empty input normalizes to bare scheme",
			input:    "",
			expected: "http://",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Extract(tt.input)
			assert.Equal(t, tt.expected, sig.URL)
			assert.Equal(t, len(tt.expected), sig.URLLength)
		})
	}
}

func TestExtractNeverFails(t *testing.T) {
	// Malformed input degrades to empty host/path, never an error.
	inputs := []string{
		"",
		"   ",
		"http://",
		"http://exa mple.com/path",
		"not a url at all",
		"http://[::1:bad",
		"%%%%",
		strings.Repeat("a", 5000),
	}

	for _, input := range inputs {
		sig := Extract(input)
		assert.True(t, strings.HasPrefix(sig.URL, "http"), "input %q", input)
		assert.GreaterOrEqual(t, sig.HostEntropy, 0.0)
		assert.GreaterOrEqual(t, sig.PathEntropy, 0.0)
		assert.Equal(t, len(sig.KeywordsFound), sig.SuspectKeywordCount)
	}
}

func TestExtractSuspiciousHost(t *testing.T) {
	sig := Extract("paypal.com.secure-account-update.xyz/login")

	assert.Equal(t, "paypal.com.secure-account-update.xyz", sig.Host)
	assert.Equal(t, "xyz", sig.TLD)
	assert.True(t, sig.SuspiciousTLD)
	assert.False(t, sig.HasIP)
	assert.Equal(t, []string{"login", "secure", "account", "update"}, sig.KeywordsFound)
	assert.Equal(t, 4, sig.SuspectKeywordCount)
	assert.Equal(t, 3, sig.DotCountInHost)
	assert.Equal(t, 0, sig.SpecialCharCount)
	assert.False(t, sig.HasDoubleSlash)
	assert.InDelta(t, 3.9749, sig.HostEntropy, 1e-9)
}

func TestExtractIPHost(t *testing.T) {
	sig := Extract("http://192.168.0.1/verify")

	assert.Equal(t, "192.168.0.1", sig.Host)
	assert.True(t, sig.HasIP)
	assert.False(t, sig.SuspiciousTLD)
	assert.Equal(t, []string{"verify"}, sig.KeywordsFound)
	assert.Equal(t, 7, sig.PathLength)
	assert.InDelta(t, 2.5949, sig.HostEntropy, 1e-9)
}

func TestExtractIPPattern(t *testing.T) {
	tests := []struct {
		host  string
		hasIP bool
	}{
		{"10.0.0.1", true},
		{"255.255.255.255", true},
		{"999.999.999.999", true}, // pattern is lexical, not a range check
		{"1.2.3", false},
		{"1.2.3.4.5", false},
		{"example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			sig := Extract("http://" + tt.host + "/")
			assert.Equal(t, tt.hasIP, sig.HasIP)
		})
	}
}

func TestExtractStructuralMetrics(t *testing.T) {
	t.Run("counts distinct query parameter names", func(t *testing.T) {
		sig := Extract("http://example.com/q?a=1&b=2&a=3")
		assert.Equal(t, 2, sig.ParamCount)
	})

	t.Run("blank-valued parameter names still count", func(t *testing.T) {
		sig := Extract("http://example.com/q?a=&b=1&c")
		assert.Equal(t, 3, sig.ParamCount)
	})

	t.Run("detects at sign anywhere in the URL", func(t *testing.T) {
		sig := Extract("http://user@evil.com/login")
		assert.True(t, sig.HasAt)
		assert.Equal(t, "evil.com", sig.Host)
	})

	t.Run("detects double slash after the scheme", func(t *testing.T) {
		sig := Extract("http://example.com/a//b")
		assert.True(t, sig.HasDoubleSlash)

		sig = Extract("http://example.com/a/b")
		assert.False(t, sig.HasDoubleSlash)
	})

	t.Run("counts characters outside the allowed set", func(t *testing.T) {
		sig := Extract("http://example.com/a%20b#frag")
		assert.Equal(t, 2, sig.SpecialCharCount) // % and #
	})

	t.Run("lowercases host and tld", func(t *testing.T) {
		sig := Extract("http://EXAMPLE.COM/Login")
		assert.Equal(t, "example.com", sig.Host)
		assert.Equal(t, "com", sig.TLD)
	})
}

func TestExtractKeywordOrder(t *testing.T) {
	// Keywords are reported in fixed list order, not order of appearance.
	sig := Extract("http://update-login.example.com/")
	require.Equal(t, []string{"login", "update"}, sig.KeywordsFound)
}

func TestExtractHostWithoutDot(t *testing.T) {
	sig := Extract("http://localhost/admin")
	assert.Equal(t, "", sig.TLD)
	assert.False(t, sig.SuspiciousTLD)
	assert.Equal(t, 0, sig.DotCountInHost)
}

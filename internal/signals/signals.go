package signals

// SuspiciousTLDs are TLDs with disproportionate abuse rates. The extractor
// uses the set to flag suspicious_tld and the scorer reads it again for the
// silent category boost; both see the same table.
var SuspiciousTLDs = map[string]bool{
	"zip": true, "xyz": true, "top": true, "gq": true, "tk": true, "ml": true,
}

// Set is the flat signal mapping for one analyzed URL. It is produced
// incrementally: the feature extractor fills the lexical fields, then each
// probe contributes its own block. Zero values are the documented neutral
// defaults, so a Set built from a bare URL with no probe data is still valid
// scorer input.
type Set struct {
	// Lexical/structural features from the raw URL string.
	URL                 string   `json:"url"`
	Scheme              string   `json:"scheme"`
	Host                string   `json:"host"`
	TLD                 string   `json:"tld"`
	SuspiciousTLD       bool     `json:"suspicious_tld"`
	HasIP               bool     `json:"has_ip"`
	URLLength           int      `json:"url_length"`
	PathLength          int      `json:"path_length"`
	ParamCount          int      `json:"param_count"`
	HasAt               bool     `json:"has_at"`
	HasDoubleSlash      bool     `json:"has_double_slash"`
	SuspectKeywordCount int      `json:"suspect_keyword_count"`
	KeywordsFound       []string `json:"keywords_found"`
	HostEntropy         float64  `json:"host_entropy"`
	PathEntropy         float64  `json:"path_entropy"`
	DotCountInHost      int      `json:"dot_count_in_host"`
	SpecialCharCount    int      `json:"special_char_count"`

	// Domain probe.
	RegistrableDomainGuess string   `json:"registrable_domain_guess,omitempty"`
	SubdomainCount         int      `json:"subdomain_count"`
	DomainLength           int      `json:"domain_length"`
	HasHyphen              bool     `json:"has_hyphen"`
	IsPunycode             bool     `json:"is_punycode"`
	DigitRatio             float64  `json:"digit_ratio"`
	DigitCount             int      `json:"digit_count"`
	AlphaCount             int      `json:"alpha_count"`
	DNSResolves            bool     `json:"dns_resolves"`
	ResolvedIPs            []string `json:"resolved_ips,omitempty"`
	ResolvedIPCount        int      `json:"resolved_ip_count"`
	DomainAgeDays          int      `json:"domain_age_days"`
	ClosestBrand           string   `json:"closest_brand,omitempty"`
	ClosestBrandRatio      float64  `json:"closest_brand_ratio"`

	// TLS probe.
	TLSSupported      bool   `json:"tls_supported"`
	TLSVersion        string `json:"tls_version,omitempty"`
	CertSubject       string `json:"cert_subject,omitempty"`
	CertIssuer        string `json:"cert_issuer,omitempty"`
	CertDaysRemaining int    `json:"cert_days_remaining"`
	CertSelfSigned    bool   `json:"cert_is_self_signed"`

	// Page probe.
	HasLoginForm         bool     `json:"has_login_form"`
	HasPasswordInput     bool     `json:"has_password_input"`
	HasCardInputs        bool     `json:"has_card_inputs"`
	DetectedFields       []string `json:"detected_fields,omitempty"`
	ExternalFormAction   bool     `json:"external_form_action"`
	RedirectCount        int      `json:"redirect_count"`
	MetaRefresh          bool     `json:"meta_refresh"`
	IframeCount          int      `json:"iframe_count"`
	ScriptTagCount       int      `json:"script_tag_count"`
	ExternalScriptCount  int      `json:"external_script_count"`
	ExternalDomainCount  int      `json:"external_domain_count"`
	SuspiciousJSKeywords []string `json:"suspicious_js_keywords,omitempty"`
	WordCount            int      `json:"word_count"`
}

package scoring

// Risk is the coarse tier derived from the final score.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Attack categories tracked by the scorer.
const (
	CategoryCredentialTheft = "credential_theft"
	CategoryCardTheft       = "card_theft"
	CategoryInfoGathering   = "info_gathering"
	CategoryMalware         = "malware"
)

// Categories lists all attack categories in canonical output order.
var Categories = []string{
	CategoryCredentialTheft,
	CategoryCardTheft,
	CategoryInfoGathering,
	CategoryMalware,
}

// BrandKeywords is the brand-impersonation scan list. Order matters: the
// scan stops at the first brand that triggers the penalty, so the list is a
// fixed slice rather than a set.
var BrandKeywords = []string{
	"paypal", "google", "microsoft", "bank", "visa",
	"mastercard", "apple", "facebook", "instagram",
}

// Verdict is the scorer output for one signal set.
type Verdict struct {
	Risk                Risk     `json:"risk"`
	Score               float64  `json:"score"`
	PredictedCategories []string `json:"predicted_categories"`
	Reasons             []string `json:"reasons"`
}

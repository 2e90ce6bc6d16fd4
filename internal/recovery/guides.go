package recovery

import "time"

// Step is one action in a troubleshooting sequence.
type Step string

const (
	StepIdentifyProblem     Step = "identify_problem"
	StepCheckNetwork        Step = "check_network"
	StepVerifyServiceAccess Step = "verify_service_access"
	StepCheckBrowser        Step = "check_browser"
	StepTryManualAuth       Step = "try_manual_auth"
	StepCheckPermissions    Step = "check_permissions"
	StepClearCache          Step = "clear_cache"
	StepContactSupport      Step = "contact_support"
)

// Method is an alternative authentication method offered during recovery.
type Method string

const (
	MethodManualURL           Method = "manual_url"
	MethodQRCode              Method = "qr_code"
	MethodTokenPaste          Method = "token_paste"
	MethodPersonalAccessToken Method = "personal_access_token"
)

// Guide is a static troubleshooting guide for one failure category.
type Guide struct {
	Category           string
	Title              string
	Description        string
	Steps              []Step
	AlternativeMethods []Method
	EstimatedTime      time.Duration
	Difficulty         string
	SuccessRate        float64
}

// catalog maps failure categories to their guides. Unknown categories
// resolve to genericGuide.
var catalog = map[string]Guide{
	"network": {
		Category:    "network",
		Title:       "Network Connection Issues",
		Description: "Resolve network connectivity problems preventing authentication",
		Steps: []Step{
			StepCheckNetwork,
			StepVerifyServiceAccess,
			StepTryManualAuth,
		},
		AlternativeMethods: []Method{MethodManualURL, MethodQRCode},
		EstimatedTime:      5 * time.Minute,
		Difficulty:         "Easy",
		SuccessRate:        0.85,
	},
	"browser_unavailable": {
		Category:    "browser_unavailable",
		Title:       "Browser Access Issues",
		Description: "Handle situations where a browser cannot be opened automatically",
		Steps: []Step{
			StepCheckBrowser,
			StepTryManualAuth,
		},
		AlternativeMethods: []Method{MethodManualURL, MethodQRCode, MethodTokenPaste},
		EstimatedTime:      3 * time.Minute,
		Difficulty:         "Easy",
		SuccessRate:        0.95,
	},
	"token_expired": {
		Category:    "token_expired",
		Title:       "Token Expiration",
		Description: "Handle expired authentication tokens",
		Steps: []Step{
			StepClearCache,
			StepTryManualAuth,
		},
		AlternativeMethods: []Method{MethodManualURL, MethodPersonalAccessToken},
		EstimatedTime:      4 * time.Minute,
		Difficulty:         "Easy",
		SuccessRate:        0.90,
	},
}

// genericGuide is returned for categories not present in the catalog.
var genericGuide = Guide{
	Category:    "unknown",
	Title:       "General Authentication Issues",
	Description: "General troubleshooting for authentication problems",
	Steps: []Step{
		StepIdentifyProblem,
		StepCheckNetwork,
		StepCheckBrowser,
		StepTryManualAuth,
		StepContactSupport,
	},
	AlternativeMethods: []Method{
		MethodManualURL,
		MethodQRCode,
		MethodTokenPaste,
		MethodPersonalAccessToken,
	},
	EstimatedTime: 15 * time.Minute,
	Difficulty:    "Medium",
	SuccessRate:   0.70,
}

// basePhrases are the category-level lead-ins for contextual messages.
var basePhrases = map[string]string{
	"network":                "Network connection issue detected",
	"browser_unavailable":    "Browser cannot be opened automatically",
	"token_expired":          "Your authentication token has expired",
	"user_denied":            "Authorization was denied",
	"environment_restricted": "Running in a restricted environment",
	"rate_limited":           "API rate limit exceeded",
}

// genericBasePhrase is used when the category has no base phrase.
const genericBasePhrase = "Authentication error occurred"

// failurePointSuffixes refine the contextual message with where in the
// authentication flow the failure happened. Unknown points add nothing.
var failurePointSuffixes = map[string]string{
	"device_code_request": " while requesting device code",
	"browser_open":        " while opening browser",
	"token_polling":       " while waiting for authorization",
	"token_validation":    " while validating token",
	"user_info_fetch":     " while fetching user information",
}

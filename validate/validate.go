// Package validate implements the content validator (§4.D): deterministic,
// cheap heuristics over status code, content type, and body text that
// decide whether a fetched page is usable, should stop the domain
// outright, or should escalate to the headless pool.
package validate

import (
	"regexp"
	"strings"
)

// FailureClass categorizes a rejected response.
type FailureClass string

const (
	FailureNone FailureClass = "none"
	FailureHard FailureClass = "hard"
	FailureSoft FailureClass = "soft"
)

// MinBodyBytes is the default minimum body size below which a response
// is treated as an empty-body soft failure.
const MinBodyBytes = 500

// Result is the validator's verdict for one response.
type Result struct {
	Accepted     bool
	FailureClass FailureClass
	Reason       string
}

var (
	accessDeniedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)access\s+denied`),
		regexp.MustCompile(`(?i)you\s+have\s+been\s+blocked`),
		regexp.MustCompile(`(?i)permanently\s+banned`),
	}

	botChallengePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)checking\s+your\s+browser`),
		regexp.MustCompile(`(?i)cloudflare`),
		regexp.MustCompile(`(?i)captcha`),
		regexp.MustCompile(`(?i)verify\s+you\s+are\s+human`),
		regexp.MustCompile(`(?i)ddos\s+protection`),
	}

	jsRequiredPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)enable\s+javascript`),
		regexp.MustCompile(`(?i)please\s+turn\s+on\s+javascript`),
		regexp.MustCompile(`(?i)<noscript>[\s\S]{0,500}javascript`),
	}

	rateLimitInterstitialPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)too\s+many\s+requests`),
		regexp.MustCompile(`(?i)rate\s+limit\s+exceeded`),
		regexp.MustCompile(`(?i)slow\s+down`),
	}
)

// Config carries the validator's thresholds, normally sourced from
// config.Config but kept local to avoid an import of the config package
// for a single integer.
type Config struct {
	MinBodyBytes int
}

// DefaultConfig returns the spec-documented defaults.
func DefaultConfig() Config {
	return Config{MinBodyBytes: MinBodyBytes}
}

// Validate applies the cascade of heuristics to one response.
func Validate(cfg Config, httpStatus int, body []byte, contentType string) Result {
	if cfg.MinBodyBytes <= 0 {
		cfg.MinBodyBytes = MinBodyBytes
	}

	if isHardBlockStatus(httpStatus) {
		return Result{FailureClass: FailureHard, Reason: "access-denied status code"}
	}
	// 401/403 are ambiguous on their own — per the error taxonomy, a host
	// seeing this for the first time gets one headless probe (it may be
	// TLS/bot fingerprinting rather than a real block); only repeated
	// 401/403 after that probe should be treated as hard by the caller,
	// which has the domain-mode history this validator doesn't.
	if httpStatus == 401 || httpStatus == 403 {
		return Result{FailureClass: FailureSoft, Reason: "unauthorized/forbidden, may be bot fingerprinting"}
	}

	text := bodySample(body)

	if matchesAny(text, accessDeniedPatterns) {
		return Result{FailureClass: FailureHard, Reason: "access-denied content signal"}
	}

	if len(body) < cfg.MinBodyBytes {
		return Result{FailureClass: FailureSoft, Reason: "body below minimum-bytes threshold"}
	}
	if matchesAny(text, botChallengePatterns) {
		return Result{FailureClass: FailureSoft, Reason: "bot-challenge page"}
	}
	if matchesAny(text, jsRequiredPatterns) {
		return Result{FailureClass: FailureSoft, Reason: "javascript-required page"}
	}
	if matchesAny(text, rateLimitInterstitialPatterns) {
		return Result{FailureClass: FailureSoft, Reason: "rate-limit interstitial"}
	}
	if !looksLikeHTML(contentType, text) {
		return Result{FailureClass: FailureSoft, Reason: "non-HTML or unparseable content-type"}
	}

	return Result{Accepted: true, FailureClass: FailureNone, Reason: "passed validation"}
}

func isHardBlockStatus(status int) bool {
	switch status {
	case 451:
		return true
	default:
		return false
	}
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func looksLikeHTML(contentType, text string) bool {
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return false
	}
	return strings.Contains(strings.ToLower(text), "<html") || strings.Contains(text, "<body") || strings.Contains(text, "<div")
}

// bodySample truncates body to a bound large enough to catch heuristic
// substrings without regex-scanning an entire multi-megabyte page.
func bodySample(body []byte) string {
	const max = 64 * 1024
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}

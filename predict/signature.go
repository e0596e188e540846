// Package predict implements the URL-classification predictor and
// pattern learner (§4.L): predicting a classification pre-fetch from
// learned per-host regex patterns, structurally similar verified URLs,
// domain profile strength, or raw URL signals as a last resort.
package predict

import (
	"regexp"
	"strings"
)

var (
	fourDigitRe = regexp.MustCompile(`^\d{4}$`)
	shortNumRe  = regexp.MustCompile(`^\d{1,2}$`)
	hexRe       = regexp.MustCompile(`^[a-f0-9]+$`)
)

// Signature computes the structural signature of a path (§4.L pattern
// learner): each segment is replaced by a regex class, anchored with a
// trailing `$` so patterns never over-generalize via prefix matches.
func Signature(path string) string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "^/$"
	}
	segments := strings.Split(trimmed, "/")
	classes := make([]string, len(segments))
	for i, seg := range segments {
		classes[i] = segmentClass(seg)
	}
	return "^/" + strings.Join(classes, "/") + "$"
}

// segmentClass classifies one path segment into the learner's regex
// vocabulary (§4.L): 4-digit runs, short numerics, hex-looking runs,
// long slugs (>20 chars), else the literal segment.
func segmentClass(seg string) string {
	switch {
	case fourDigitRe.MatchString(seg):
		return `\d{4}`
	case shortNumRe.MatchString(seg):
		return `\d{1,2}`
	case len(seg) >= 4 && hexRe.MatchString(seg) && hasDigit(seg):
		return `[a-f0-9]+`
	case len(seg) > 20 && isSlugLike(seg):
		return `[a-z0-9-]+`
	default:
		return regexp.QuoteMeta(seg)
	}
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}

func isSlugLike(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-') {
			return false
		}
	}
	return true
}

// Matches reports whether path conforms to the compiled form of a
// template. Templates may carry a "class:" prefix (see
// inferClassFromTemplate); only the regex portion after the prefix is
// compiled.
func Matches(template, path string) bool {
	re, err := regexp.Compile(regexPortion(template))
	if err != nil {
		return false
	}
	return re.MatchString("/" + strings.Trim(path, "/"))
}

var templateClassPrefixes = []string{"article:", "hub:", "nav:", "other:", "unknown:"}

// regexPortion strips a learner class-tag prefix ("article:", "hub:",
// ...) from a template, if present.
func regexPortion(template string) string {
	for _, prefix := range templateClassPrefixes {
		if strings.HasPrefix(template, prefix) {
			return template[len(prefix):]
		}
	}
	return template
}

// StructuralSimilarity is a crude 0..1 score for how close two paths'
// signatures are, used by the "similar verified URL" fallback (§4.L step
// 2): 1.0 for an identical signature, else the fraction of matching
// segment classes divided by the longer segment count.
func StructuralSimilarity(pathA, pathB string) float64 {
	sigA := Signature(pathA)
	sigB := Signature(pathB)
	if sigA == sigB {
		return 1.0
	}
	segA := strings.Split(strings.Trim(pathA, "/"), "/")
	segB := strings.Split(strings.Trim(pathB, "/"), "/")
	maxLen := len(segA)
	if len(segB) > maxLen {
		maxLen = len(segB)
	}
	if maxLen == 0 {
		return 0
	}
	matches := 0
	for i := 0; i < len(segA) && i < len(segB); i++ {
		if segmentClass(segA[i]) == segmentClass(segB[i]) {
			matches++
		}
	}
	return float64(matches) / float64(maxLen)
}

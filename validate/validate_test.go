package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsNormalArticle(t *testing.T) {
	body := []byte("<html><body><article>" + strings.Repeat("word ", 200) + "</article></body></html>")
	r := Validate(DefaultConfig(), 200, body, "text/html; charset=utf-8")
	assert.True(t, r.Accepted)
	assert.Equal(t, FailureNone, r.FailureClass)
}

func TestValidateHardOnAccessDenied(t *testing.T) {
	r := Validate(DefaultConfig(), 451, []byte("blocked"), "text/html")
	assert.False(t, r.Accepted)
	assert.Equal(t, FailureHard, r.FailureClass)
}

func TestValidateSoftOnEmptyBody(t *testing.T) {
	r := Validate(DefaultConfig(), 200, []byte("tiny"), "text/html")
	assert.False(t, r.Accepted)
	assert.Equal(t, FailureSoft, r.FailureClass)
}

func TestValidateSoftOnBotChallenge(t *testing.T) {
	body := []byte("<html><body>" + strings.Repeat("Checking your browser before accessing. ", 20) + "</body></html>")
	r := Validate(DefaultConfig(), 200, body, "text/html")
	assert.False(t, r.Accepted)
	assert.Equal(t, FailureSoft, r.FailureClass)
}

func TestValidateSoftOnJSRequired(t *testing.T) {
	body := []byte("<html><body><noscript>" + strings.Repeat("Please enable JavaScript to view this site. ", 20) + "</noscript></body></html>")
	r := Validate(DefaultConfig(), 200, body, "text/html")
	assert.False(t, r.Accepted)
	assert.Equal(t, FailureSoft, r.FailureClass)
}

func TestValidateSoftOnUnauthorized(t *testing.T) {
	r := Validate(DefaultConfig(), 403, []byte(strings.Repeat("x", 1000)), "text/html")
	assert.False(t, r.Accepted)
	assert.Equal(t, FailureSoft, r.FailureClass)
}

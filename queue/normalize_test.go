package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesSchemeAndHost(t *testing.T) {
	got, err := Normalize("HTTPS://Example.COM/Path")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/Path", got)
}

func TestNormalizeStripsDefaultPort(t *testing.T) {
	got, err := Normalize("http://example.com:80/news")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/news", got)

	got, err = Normalize("https://example.com:443/news")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/news", got)
}

func TestNormalizeKeepsNonDefaultPort(t *testing.T) {
	got, err := Normalize("http://example.com:8080/news")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com:8080/news", got)
}

func TestNormalizeStripsTrailingSlashExceptRoot(t *testing.T) {
	got, err := Normalize("https://example.com/news/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/news", got)

	got, err = Normalize("https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestNormalizeDropsFragment(t *testing.T) {
	got, err := Normalize("https://example.com/news#section-2")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/news", got)
}

func TestNormalizeRejectsUnparsableURL(t *testing.T) {
	_, err := Normalize("://bad")
	assert.Error(t, err)
}

func TestHostExtractsLowercaseHostname(t *testing.T) {
	assert.Equal(t, "example.com", Host("https://Example.com/news"))
	assert.Equal(t, "example.com", Host("http://example.com:8080/news"))
}

func TestHostReturnsEmptyOnUnparsable(t *testing.T) {
	assert.Equal(t, "", Host("://bad"))
}

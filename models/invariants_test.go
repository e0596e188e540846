package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHTTPResponseVerifiedDownloaded(t *testing.T) {
	ok := HTTPResponse{HTTPStatus: 200, BytesDownloaded: 1024, FetchedAt: time.Now()}
	assert.True(t, ok.VerifiedDownloaded())

	noBytes := HTTPResponse{HTTPStatus: 200, BytesDownloaded: 0, FetchedAt: time.Now()}
	assert.False(t, noBytes.VerifiedDownloaded())

	badStatus := HTTPResponse{HTTPStatus: 404, BytesDownloaded: 1024, FetchedAt: time.Now()}
	assert.False(t, badStatus.VerifiedDownloaded())

	zeroTime := HTTPResponse{HTTPStatus: 200, BytesDownloaded: 1024}
	assert.False(t, zeroTime.VerifiedDownloaded())
}

func TestPlacePageMappingIsValid(t *testing.T) {
	now := time.Now()
	valid := PlacePageMapping{Presence: PresencePresent, Status: StatusVerified, VerifiedAt: &now}
	assert.True(t, valid.IsValid())

	invalid := PlacePageMapping{Presence: PresencePresent, Status: StatusCandidate}
	assert.False(t, invalid.IsValid())

	absentNotVerified := PlacePageMapping{Presence: PresenceAbsent, Status: StatusCandidate}
	assert.True(t, absentNotVerified.IsValid())
}

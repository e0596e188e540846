package store

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegacyColumnAbsent(t *testing.T) {
	assert.True(t, legacyColumnAbsent(errors.New(`pq: column "depth_check_error" does not exist`)))
	assert.False(t, legacyColumnAbsent(errors.New("connection refused")))
	assert.False(t, legacyColumnAbsent(nil))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(sql.ErrNoRows))
	assert.False(t, isNoRows(errors.New("boom")))
}

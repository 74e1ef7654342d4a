// Test Type: Unit Test
// Description: Tests for the errors package - coded error construction and inspection

package errors_test

import (
	"errors"
	"fmt"
	"testing"

	taperr "github.com/arthur-debert/tapbump/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := taperr.New(taperr.ErrTagNotFound, "tag v1.0.0 not found")

	assert.Equal(t, taperr.ErrTagNotFound, err.Code)
	assert.Contains(t, err.Error(), "TAG_NOT_FOUND")
	assert.Contains(t, err.Error(), "tag v1.0.0 not found")
}

func TestNewf(t *testing.T) {
	err := taperr.Newf(taperr.ErrReleaseNotFound, "no releases for %s/%s", "mona", "hello")

	assert.Equal(t, "no releases for mona/hello", err.Message)
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		cause    error
		wantNil  bool
		wantCode taperr.ErrorCode
	}{
		{
			name:     "wraps a cause",
			cause:    fmt.Errorf("connection refused"),
			wantCode: taperr.ErrNetwork,
		},
		{
			name:    "nil cause returns nil",
			cause:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := taperr.Wrap(tt.cause, taperr.ErrNetwork, "fetch failed")
			if tt.wantNil {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.ErrorIs(t, err, tt.cause)
			assert.Contains(t, err.Error(), "connection refused")
		})
	}
}

func TestIsErrorCode(t *testing.T) {
	base := taperr.New(taperr.ErrCommitConflict, "stale blob")
	wrapped := fmt.Errorf("commit: %w", base)

	assert.True(t, taperr.IsErrorCode(wrapped, taperr.ErrCommitConflict))
	assert.False(t, taperr.IsErrorCode(wrapped, taperr.ErrNetwork))
	assert.False(t, taperr.IsErrorCode(errors.New("plain"), taperr.ErrCommitConflict))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, taperr.ErrDownload, taperr.GetErrorCode(taperr.New(taperr.ErrDownload, "x")))
	assert.Equal(t, taperr.ErrUnknown, taperr.GetErrorCode(errors.New("plain")))
}

func TestWithDetail(t *testing.T) {
	err := taperr.New(taperr.ErrFormulaStructure, "no anchor").
		WithDetail("formula", "Formula/hello.rb")

	assert.Equal(t, "Formula/hello.rb", err.Details["formula"])
}

package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode_WalksNestedAppErrors(t *testing.T) {
	netErr := NetworkError("GET /validation/status/abc", errors.New("connection refused"))
	fetch := FetchError("fetch status", fmt.Errorf("poll: %w", netErr))

	assert.True(t, HasCode(fetch, CodeFetch))
	assert.True(t, HasCode(fetch, CodeNetwork))
	assert.False(t, HasCode(fetch, CodeDownload))
	assert.True(t, IsNetworkError(fetch))
	assert.False(t, HasCode(errors.New("plain"), CodeFetch))
	assert.False(t, HasCode(nil, CodeFetch))
}

func TestAppErrorMessage(t *testing.T) {
	err := DownloadError("download results for job abc", ErrNotFound)
	assert.Equal(t, "DOWNLOAD_ERROR: download results for job abc: resource not found", err.Error())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "UPLOAD_ERROR: x", NewAppError(CodeUpload, "x", nil).Error())
}

func TestWrapError(t *testing.T) {
	assert.NoError(t, WrapError(nil, "ctx"))
	assert.EqualError(t, WrapError(ErrNoJob, "refresh"), "refresh: no job selected")
}

func TestContextValues(t *testing.T) {
	ctx := WithJobID(WithRequestID(context.Background(), "req-1"), "abc")
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Equal(t, "abc", JobIDFromContext(ctx))
	assert.Empty(t, JobIDFromContext(context.Background()))
}

func TestValidator(t *testing.T) {
	v := NewValidator().
		Field("name", "", Required).
		Field("note", "toolong", MaxLength(3)).
		Field("format", "csv", OneOf("csv", "xlsx"))
	assert.True(t, v.HasErrors())
	assert.Len(t, v.Errors(), 2)
	assert.True(t, IsValidationError(v.Error()))

	assert.NoError(t, NewValidator().Field("url", "https://example.com/api", HTTPURL).Error())
}

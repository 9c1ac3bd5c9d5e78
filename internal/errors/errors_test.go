package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Newf(ErrFileNotFound, "id %s", "ZZZZ")
	assert.True(t, stderrors.Is(err, ErrFileNotFoundError))
	assert.False(t, stderrors.Is(err, ErrStoreUnavailableError))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, stderrors.Is(wrapped, ErrFileNotFoundError))
	assert.Equal(t, ErrFileNotFound, CodeOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(ErrFileWriteFailed, cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Equal(t, "disk full", err.Details)
	assert.Contains(t, err.Error(), "[2005]")
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, ErrInternalServer, CodeOf(stderrors.New("boom")))

	_, ok := GetAppError(stderrors.New("boom"))
	assert.False(t, ok)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrSuccess, http.StatusOK},
		{ErrInvalidParams, http.StatusBadRequest},
		{ErrFileTypeNotAllowed, http.StatusBadRequest},
		{ErrFileEmpty, http.StatusBadRequest},
		{ErrFileSizeTooLarge, http.StatusRequestEntityTooLarge},
		{ErrFileNotFound, http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{ErrStoreUnavailable, http.StatusServiceUnavailable},
		{ErrFileUploadFailed, http.StatusInternalServerError},
		{ErrIDExhausted, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.code), "code %d", tt.code)
	}
}

func TestGetErrorMessageWithLang(t *testing.T) {
	assert.Equal(t, "结构文件未找到", GetErrorMessageWithLang(ErrFileNotFound, "zh-CN"))
	assert.Equal(t, "Metadata Store Unavailable", GetErrorMessageWithLang(ErrStoreUnavailable, "en-US"))

	msg := GetErrorMessageWithLang(ErrorCode(9999), "en-US")
	require.NotEmpty(t, msg)
	assert.Equal(t, "Unknown Error", msg)
}

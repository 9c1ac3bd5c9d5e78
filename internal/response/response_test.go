package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/weiwangfds/structview/internal/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
	now = func() time.Time { return time.Unix(1700000000, 0) }
}

func perform(t *testing.T, lang string, handler gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Set("request_id", "req-1")
		handler(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSuccess(t *testing.T) {
	w, resp := perform(t, "en-US", func(c *gin.Context) {
		Success(c, gin.H{"ok": true})
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "Success", resp.Message)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, int64(1700000000), resp.Timestamp)
}

func TestError(t *testing.T) {
	t.Run("应用错误", func(t *testing.T) {
		w, resp := perform(t, "zh-CN,zh;q=0.9", func(c *gin.Context) {
			Error(c, apperrors.Newf(apperrors.ErrFileNotFound, "unknown id %q", "ZZZZ"))
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, int(apperrors.ErrFileNotFound), resp.Code)
		assert.Equal(t, "结构文件未找到", resp.Message)
		assert.Equal(t, `unknown id "ZZZZ"`, resp.Details)
	})

	t.Run("存储不可用隐藏细节", func(t *testing.T) {
		w, resp := perform(t, "en", func(c *gin.Context) {
			Error(c, apperrors.Wrap(apperrors.ErrStoreUnavailable, errors.New("corrupt ledger /srv/history.json")))
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "Metadata Store Unavailable", resp.Message)
		assert.Empty(t, resp.Details)
	})

	t.Run("普通错误按500处理", func(t *testing.T) {
		w, resp := perform(t, "en", func(c *gin.Context) {
			Error(c, errors.New("boom"))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, int(apperrors.ErrInternalServer), resp.Code)
	})

	t.Run("参数错误", func(t *testing.T) {
		w, resp := perform(t, "en", func(c *gin.Context) {
			BadRequest(c, "value must be a number")
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "value must be a number", resp.Details)
	})
}

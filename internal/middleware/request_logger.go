package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/weiwangfds/structview/config"
	"github.com/weiwangfds/structview/internal/logger"
)

// RequestLogEntry 请求详细日志条目
type RequestLogEntry struct {
	Timestamp  string            `json:"timestamp"`
	RequestID  string            `json:"request_id"`
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Query      string            `json:"query,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       interface{}       `json:"body,omitempty"`
	ClientIP   string            `json:"client_ip"`
	UserAgent  string            `json:"user_agent"`
	StatusCode int               `json:"status_code"`
	Response   interface{}       `json:"response_body,omitempty"`
	Size       int               `json:"response_size"`
	DurationMs int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
}

// skipPaths 不记录详细日志的路径
var skipPaths = map[string]bool{
	"/health":      true,
	"/favicon.ico": true,
}

// redactedHeaders 记录时隐藏取值的请求头
var redactedHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
}

// responseWriter 捕获JSON响应体，文件内容等其他响应只计大小
type responseWriter struct {
	gin.ResponseWriter
	body    *bytes.Buffer
	maxBody int
}

func (w *responseWriter) Write(b []byte) (int, error) {
	if isJSON(w.Header().Get("Content-Type")) && w.body.Len() < w.maxBody {
		remaining := w.maxBody - w.body.Len()
		if len(b) < remaining {
			remaining = len(b)
		}
		w.body.Write(b[:remaining])
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 记录请求与响应详情的中间件
// 只记录JSON请求体和JSON响应体，multipart 上传与文件下载只记录元信息
func RequestLogger(cfg config.RequestLogConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	maxBody := cfg.MaxBodySize
	if maxBody <= 0 {
		maxBody = 64 * 1024
	}

	return func(c *gin.Context) {
		if skipPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()

		var requestBody interface{}
		if c.Request.Body != nil && isJSON(c.ContentType()) {
			requestBody = readRequestBody(c, maxBody)
		}

		writer := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}, maxBody: maxBody}
		c.Writer = writer

		c.Next()

		entry := &RequestLogEntry{
			Timestamp:  start.Format(time.RFC3339),
			RequestID:  c.GetString("request_id"),
			Method:     c.Request.Method,
			Path:       c.Request.URL.Path,
			Query:      c.Request.URL.RawQuery,
			Headers:    extractHeaders(c.Request.Header),
			Body:       requestBody,
			ClientIP:   c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
			StatusCode: writer.Status(),
			Size:       writer.Size(),
			DurationMs: time.Since(start).Milliseconds(),
		}
		if writer.body.Len() > 0 {
			entry.Response = parseBody(writer.body.Bytes())
		}
		if len(c.Errors) > 0 {
			entry.Error = c.Errors.String()
		}

		if cfg.Async {
			go logRequestEntry(entry)
		} else {
			logRequestEntry(entry)
		}
	}
}

func isJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}

// readRequestBody 读取请求体后重置，供后续处理器继续读取
func readRequestBody(c *gin.Context, maxSize int) interface{} {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return map[string]string{"error": "failed to read request body"}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) > maxSize {
		return fmt.Sprintf("<%d bytes truncated>", len(body))
	}
	return parseBody(body)
}

func extractHeaders(headers map[string][]string) map[string]string {
	out := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			continue
		}
		if redactedHeaders[key] {
			out[key] = "***"
			continue
		}
		out[key] = values[0]
	}
	return out
}

func parseBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err == nil {
		return v
	}
	return string(body)
}

func logRequestEntry(entry *RequestLogEntry) {
	data, err := json.Marshal(entry)
	if err != nil {
		logger.Errorf("Failed to marshal request log: %v", err)
		return
	}

	message := fmt.Sprintf("[REQUEST_LOG] %s %s - %d (%dms)", entry.Method, entry.Path, entry.StatusCode, entry.DurationMs)
	switch {
	case entry.StatusCode >= 500:
		logger.Errorf("%s | %s", message, data)
	case entry.StatusCode >= 400:
		logger.Warnf("%s | %s", message, data)
	default:
		logger.Infof("%s | %s", message, data)
	}
}

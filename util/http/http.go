package http

import (
	"context"
	"fmt"
	"time"
)

type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam 描述一次请求。Body 可以是 io.Reader、[]byte 或任意可 JSON 序列化的值；
// Response 为 *[]byte 时保存原始响应体，否则按 JSON 反序列化。
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	Timeout time.Duration

	// StatusCode 由客户端在收到响应后回填
	StatusCode int
}

// StatusError is returned for any non-2xx response. Body is kept verbatim.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP request failed with status %d: %s", e.StatusCode, e.Body)
}

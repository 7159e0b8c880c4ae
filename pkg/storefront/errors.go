package storefront

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ResponseError struct {
	Status  int
	Message string
}

func (e ResponseError) Error() string {
	msg := e.Message
	if msg == "" && e.Status > 0 {
		msg = http.StatusText(e.Status)
	}
	if msg == "" {
		msg = "unknown error"
	}

	if e.Status > 0 {
		return fmt.Sprintf("%03d: %s", e.Status, msg)
	}

	return msg
}

type ResponseDecodingError struct {
	ResponseError
	Body []byte
}

type RateLimitError struct {
	ResponseError
	RetryAfter time.Duration
}

func NewResponseDecodingError(res *http.Response, err error, data []byte) error {
	return ResponseDecodingError{
		ResponseError: ResponseError{
			Status:  res.StatusCode,
			Message: err.Error(),
		},
		Body: data,
	}
}

// CheckResponseError converts a non-2xx response into a typed error.
// The stores disagree on error body shapes, so only the common keys are
// probed; anything else degrades to the HTTP status text.
func CheckResponseError(res *http.Response) error {
	if http.StatusOK <= res.StatusCode && res.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	_ = res.Body.Close()

	if len(body) > 0 {
		// best effort; upstream error bodies are frequently HTML
		_ = json.Unmarshal(body, &payload)
	}

	msg := payload.Error
	if msg == "" {
		msg = payload.Message
	}

	responseError := ResponseError{
		Status:  res.StatusCode,
		Message: msg,
	}

	if res.StatusCode == http.StatusTooManyRequests {
		after, err := retryAfter(res)
		if err != nil {
			return err
		}
		return RateLimitError{
			ResponseError: responseError,
			RetryAfter:    after,
		}
	}

	return responseError
}

func retryAfter(res *http.Response) (time.Duration, error) {
	const bits = 64
	h := strings.TrimSpace(res.Header.Get(hRetryAfter))
	if h == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(h, bits)
	if err != nil {
		return 0, err
	}
	return time.Duration(float64(time.Second) * f), nil
}

package http

import (
	"encoding/json"
	"strings"
)

// Response is the normalized result of a call. Local and delegated calls
// produce the same shape.
type Response struct {
	StatusCode int               `json:"statusCode"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers"`
	Body       Body              `json:"-"`
}

// BodyBytes returns the payload as bytes whatever its variant
func (r *Response) BodyBytes() []byte {
	switch b := r.Body.(type) {
	case Bytes:
		return []byte(b)
	case Text:
		return []byte(b)
	case Value:
		data, _ := json.Marshal(b.V)
		return data
	}
	return nil
}

func (r *Response) BodyString() string {
	return string(r.BodyBytes())
}

func (r *Response) BodyJSON() (any, error) {
	var result any
	if err := json.Unmarshal(r.BodyBytes(), &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Response) Header(key string) string {
	for k, v := range r.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Response) IsClientError() bool {
	return r.StatusCode >= 400 && r.StatusCode < 500
}

func (r *Response) IsServerError() bool {
	return r.StatusCode >= 500
}

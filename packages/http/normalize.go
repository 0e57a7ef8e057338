package http

import "strings"

// normalize shapes a raw result into a Response. Header names are
// lowercased and repeated values joined. A binary request always gets a
// non-nil Bytes body, empty when the server sent nothing; any other request
// gets the payload back untouched as Text.
func normalize(raw *rawResponse, binary bool) *Response {
	headers := make(map[string]string, len(raw.Header))
	for k, v := range raw.Header {
		headers[strings.ToLower(k)] = strings.Join(v, ", ")
	}

	resp := &Response{
		StatusCode: raw.StatusCode,
		StatusText: raw.Status,
		Headers:    headers,
	}

	if binary {
		body := make([]byte, len(raw.Body))
		copy(body, raw.Body)
		resp.Body = Bytes(body)
	} else {
		resp.Body = Text(raw.Body)
	}

	return resp
}

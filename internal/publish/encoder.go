package publish

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// acceptedImageTypes is the fixed allow-list for listing images.
var acceptedImageTypes = []string{"image/gif", "image/jpeg", "image/png"}

// AcceptedImageType reports whether contentType may be attached to a
// listing. This is the single place the allow-list is checked, so a future
// revision can surface rejections to the user without touching the pipeline.
func AcceptedImageType(contentType string) bool {
	for _, t := range acceptedImageTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

// EncodeDataURL reads the full image content and returns it as a
// self-contained data URL. The returned string alone reconstructs the bytes;
// nothing is stored externally. A read failure is returned as an error and
// surfaces as a pipeline failure, never as a silently empty image.
func EncodeDataURL(contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image content: %w", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// DecodeDataURL is the inverse of EncodeDataURL.
func DecodeDataURL(s string) (contentType string, data []byte, err error) {
	if !strings.HasPrefix(s, "data:") {
		return "", nil, fmt.Errorf("not a data URL")
	}
	rest := strings.TrimPrefix(s, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, fmt.Errorf("missing base64 payload")
	}
	contentType = rest[:sep]
	data, err = base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return contentType, data, nil
}

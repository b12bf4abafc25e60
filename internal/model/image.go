package model

import (
	"encoding/base64"
	"errors"
	"strings"
)

var ErrNotRawImage = errors.New("image ref is not raw image data")

const dataURIPrefix = "data:"

// IsRawImage reports whether ref carries inline image data (a data URI)
// rather than an already hosted URL.
func IsRawImage(ref string) bool {
	return strings.HasPrefix(ref, dataURIPrefix)
}

// DecodeImage extracts the bytes and the mime type from a base64 data URI.
func DecodeImage(ref string) (data []byte, mimeType string, err error) {
	if !IsRawImage(ref) {
		return nil, "", ErrNotRawImage
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, dataURIPrefix), ",")
	if !ok {
		return nil, "", errors.New("malformed data uri")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", errors.New("only base64 data uris are supported")
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

func EncodeImage(data []byte, mimeType string) string {
	return dataURIPrefix + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

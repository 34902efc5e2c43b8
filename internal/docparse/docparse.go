package docparse

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"memochat-backend/pkg/api"
)

// NormalizeBase64 strips embedded whitespace and newlines from a base64
// payload. Some encoders inject line breaks that break strict decoders.
func NormalizeBase64(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, s)
}

// SplitDataURL splits a data:<mime>;base64,<payload> string into its MIME
// type and raw base64 payload without decoding. Plain base64 without the data
// URL prefix is accepted, in which case the returned MIME type is empty.
func SplitDataURL(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return "", s
	}

	comma := strings.Index(s, ",")
	if comma < 0 {
		return "", s
	}

	header := s[len("data:"):comma]
	header = strings.TrimSuffix(header, ";base64")
	if semi := strings.Index(header, ";"); semi >= 0 {
		header = header[:semi]
	}

	return header, s[comma+1:]
}

// ParseDataURL splits a data URL and decodes its payload.
func ParseDataURL(s string) (string, []byte, error) {
	mimeType, payload := SplitDataURL(s)

	data, err := base64.StdEncoding.DecodeString(NormalizeBase64(payload))
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 payload: %w", err)
	}

	return mimeType, data, nil
}

// IsBinaryType reports whether a document type carries its content as an
// encoded binary payload rather than raw text.
func IsBinaryType(docType string) bool {
	return docType == api.DocTypeImage || docType == api.DocTypePDF
}

// SniffType infers a document type from an explicit type, a MIME type, or the
// file extension, in that order of preference.
func SniffType(name, explicitType, mimeType string) string {
	switch explicitType {
	case api.DocTypeText, api.DocTypeJSON, api.DocTypeMarkdown, api.DocTypeCSV, api.DocTypeImage, api.DocTypePDF:
		return explicitType
	}

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return api.DocTypeImage
	case mimeType == "application/pdf":
		return api.DocTypePDF
	case mimeType == "application/json":
		return api.DocTypeJSON
	case mimeType == "text/markdown":
		return api.DocTypeMarkdown
	case mimeType == "text/csv":
		return api.DocTypeCSV
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return api.DocTypeJSON
	case ".md", ".markdown":
		return api.DocTypeMarkdown
	case ".csv":
		return api.DocTypeCSV
	case ".pdf":
		return api.DocTypePDF
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return api.DocTypeImage
	}

	return api.DocTypeText
}

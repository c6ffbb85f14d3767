// Package filetype holds the closed set of file types s3drop accepts and the
// MIME types they map to.
package filetype

import "strings"

type FileType string

const (
	JPEG FileType = "jpeg"
	PNG  FileType = "png"
	PDF  FileType = "pdf"
	JPG  FileType = "jpg"

	// Binary is a content-type target only. It is never inferred from a MIME
	// type and is not a valid upload type.
	Binary FileType = "binary"
)

const (
	MIMEPNG    = "image/png"
	MIMEJPEG   = "image/jpeg"
	MIMEPDF    = "application/pdf"
	MIMEBinary = "application/octet-stream"
)

// All lists the upload file types.
var All = []FileType{JPEG, PNG, PDF, JPG}

var contentTypes = map[FileType]string{
	PNG:    MIMEPNG,
	JPG:    MIMEJPEG,
	JPEG:   MIMEJPEG,
	PDF:    MIMEPDF,
	Binary: MIMEBinary,
}

// inferOrder decides which type wins when several map to one MIME type.
// image/jpeg resolves to jpeg, not jpg.
var inferOrder = []FileType{PNG, JPEG, JPG, PDF}

// supportedMIME is the set of MIME types an upload may declare.
var supportedMIME = map[string]bool{
	MIMEPNG:  true,
	MIMEJPEG: true,
	MIMEPDF:  true,
}

func (t FileType) String() string {
	return string(t)
}

// Valid reports whether t is one of the upload file types.
func (t FileType) Valid() bool {
	for _, ft := range All {
		if ft == t {
			return true
		}
	}
	return false
}

// ContentType returns the MIME type for t, or "" when t has no mapping.
func (t FileType) ContentType() string {
	return contentTypes[t]
}

// Parse converts s into a FileType without validating it.
func Parse(s string) FileType {
	return FileType(strings.TrimSpace(s))
}

// IsSupportedMIME reports whether mimeType may be uploaded.
func IsSupportedMIME(mimeType string) bool {
	return supportedMIME[mimeType]
}

// SupportedMIMETypes returns the accepted upload MIME types in a stable order.
func SupportedMIMETypes() []string {
	return []string{MIMEPNG, MIMEJPEG, MIMEPDF}
}

// FromMIME returns the file type whose content type is mimeType.
func FromMIME(mimeType string) (FileType, bool) {
	for _, ft := range inferOrder {
		if contentTypes[ft] == mimeType {
			return ft, true
		}
	}
	return "", false
}

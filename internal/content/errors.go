package content

import "errors"

var (
	ErrPathTraversal   = errors.New("path escapes content root")
	ErrNotFound        = errors.New("not found")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrMimeUnresolved  = errors.New("unable to determine MIME type")
)

// User-facing messages. The markdown ones are rendered into error pages.
const (
	MsgUnsupportedFile = "File type not supported"
	MsgNotFound        = "# 404 Not Found\n\nThe requested resource could not be found."
	MsgGenericError    = "# Error\n\nAn unexpected error occurred. Please try again later."
	MsgNoValidFiles    = "No valid files found in the directory"
)

package upload

import "errors"

// Upload errors surfaced to the uploading client as request failures.
var (
	// ErrNoFile is returned when the request carries no file.
	ErrNoFile = errors.New("no file uploaded")

	// ErrFileTooLarge is returned when the file exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
)

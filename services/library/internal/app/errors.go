package app

import "errors"

var (
	ErrBookNotFound        = errors.New("book not found")
	ErrEmptyText           = errors.New("no text to process")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrHighlightNotFound   = errors.New("highlight not found")
)

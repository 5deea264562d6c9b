package storage

import (
	dErrors "clearcrew/pkg/domain-errors"
)

var (
	// ErrEmptyContent is returned for zero-length uploads; a sealed report is
	// never empty.
	ErrEmptyContent = dErrors.New(dErrors.CodeUploadFailed, "content is empty")
)

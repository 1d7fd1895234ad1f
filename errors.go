package stablefs

import (
	"github.com/jmgilman/go/errors"
)

const (
	CodePathFormat         errors.ErrorCode = "PATH_FORMAT"
	CodeNotADirectory      errors.ErrorCode = "NOT_A_DIRECTORY"
	CodeIsADirectory       errors.ErrorCode = "IS_A_DIRECTORY"
	CodeDirectoryNotEmpty  errors.ErrorCode = "DIRECTORY_NOT_EMPTY"
	CodeTextDecode         errors.ErrorCode = "TEXT_DECODE"
	CodeStorageExhausted   errors.ErrorCode = "STORAGE_EXHAUSTED"
	CodeVolumeNotFormatted errors.ErrorCode = "VOLUME_NOT_FORMATTED"
)

// Sentinels for every failure a file system operation can surface.
// Returned errors wrap one of these, so errors.Is works against them
// and errors.GetCode reports the matching code.
var (
	ErrPathFormat         = errors.New(CodePathFormat, "path is empty or not anchored at the root")
	ErrEntryNotFound      = errors.New(errors.CodeNotFound, "entry not found")
	ErrEntryAlreadyExists = errors.New(errors.CodeAlreadyExists, "entry already exists")
	ErrNotADirectory      = errors.New(CodeNotADirectory, "not a directory")
	ErrIsADirectory       = errors.New(CodeIsADirectory, "is a directory")
	ErrDirectoryNotEmpty  = errors.New(CodeDirectoryNotEmpty, "directory not empty")
	ErrTextDecode         = errors.New(CodeTextDecode, "content is not valid UTF-8")
	ErrStorageExhausted   = errors.New(CodeStorageExhausted, "storage exhausted")
	ErrVolumeNotFormatted = errors.New(CodeVolumeNotFormatted, "volume not formatted")
)

// Errorf wraps a sentinel with a formatted message, keeping the
// sentinel's code.
func Errorf(sentinel errors.PlatformError, format string, args ...interface{}) error {
	return errors.Wrapf(sentinel, sentinel.Code(), format, args...)
}

// PathErrorf is Errorf with the offending path attached as context.
func PathErrorf(sentinel errors.PlatformError, path string, format string, args ...interface{}) error {
	return errors.WithContext(errors.Wrapf(sentinel, sentinel.Code(), format, args...), "path", path)
}

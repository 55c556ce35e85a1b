package subset

import "errors"

var (
	// ErrInputNotFound is returned when the input directory does not exist.
	ErrInputNotFound = errors.New("subset: input directory not found")
	// ErrInputNotDirectory is returned when the input path exists but is not a directory.
	ErrInputNotDirectory = errors.New("subset: input path is not a directory")
	// ErrPermissionDenied is returned when the input directory cannot be read.
	ErrPermissionDenied = errors.New("subset: permission denied reading input directory")
	// ErrMissingSubsetsDir is returned when <input>/metadata/subsets is absent.
	ErrMissingSubsetsDir = errors.New("subset: metadata/subsets directory not found")
	// ErrNoValidSubsets is returned when every discovered subset file was
	// malformed or unreadable, leaving nothing to schedule.
	ErrNoValidSubsets = errors.New("subset: no valid subset files found")
)

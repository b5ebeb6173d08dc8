package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound             = errors.New("entity not found")
	ErrAlreadyExists        = errors.New("entity already exists")
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrNoCategoriesSelected = errors.New("no categories selected")
	ErrInvalidItemCount     = errors.New("item count must be between 1 and 50")
	ErrBatchInProgress      = errors.New("a generation batch is already in progress")
	ErrEmptyGroup           = errors.New("duplicate group has no members")
	ErrNotInGroup           = errors.New("item is not a member of the group")
	ErrPartialResolution    = errors.New("some duplicate group members could not be resolved")
)

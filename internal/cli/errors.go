package cli

import "errors"

var (
	errUnknownStore   = errors.New("unknown PUSH_STORE")
	errMissingUser    = errors.New("--user is required")
	errMissingMessage = errors.New("--title and --body are required")
)

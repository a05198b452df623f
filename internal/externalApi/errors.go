package externalApi

import "errors"

var (
	ErrNotFound    = errors.New("error not found in external api")
	ErrRateLimited = errors.New("error external api rate limited")
	ErrUpstream    = errors.New("error external api upstream failure")
)

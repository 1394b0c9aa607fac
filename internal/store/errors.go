package store

import "errors"

// ErrStoreClosed is returned for operations attempted after Close.
var ErrStoreClosed = errors.New("store is closed")

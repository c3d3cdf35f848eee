package watcher

import "errors"

var (
	ErrNothingToWatch = errors.New("nothing to watch")
	ErrStopped        = errors.New("watcher is stopped")
)

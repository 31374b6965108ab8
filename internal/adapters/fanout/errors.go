package fanout

import "errors"

// ErrHubClosed is returned when subscribing after Close.
var ErrHubClosed = errors.New("fanout hub closed")

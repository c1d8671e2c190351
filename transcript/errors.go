package transcript

import "errors"

// ErrWriteFailed wraps any filesystem failure while persisting a transcript.
var ErrWriteFailed = errors.New("transcript write failed")

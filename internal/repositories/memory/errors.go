package memory

import "errors"

var errEmptySession = errors.New("memory: session id is required")

package node

import "errors"

var errAlreadyRunning = errors.New("node: already running")

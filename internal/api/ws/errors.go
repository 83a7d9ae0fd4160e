package ws

import "errors"

var errMissingRequest = errors.New("execute frame has no request")

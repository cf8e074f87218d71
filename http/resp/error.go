package resp

import "errors"

var ErrMissingData = errors.New("missing data")

package errs

import "errors"

var ErrNotFound = errors.New("not found")

var ErrAlreadyExists = errors.New("already exists")

var ErrInternal = errors.New("internal error")

var ErrInvalidCredentials = errors.New("invalid credentials")

var ErrInsufficientFunds = errors.New("insufficient funds")

var ErrInsufficientPosition = errors.New("insufficient position")

var ErrPriceUnavailable = errors.New("price unavailable")

package core

import (
	"errors"
)

var (
	ErrTerminated      = errors.New("thread terminated")
	ErrNotStarted      = errors.New("not started")
	ErrAlreadyStarted  = errors.New("already started")
	ErrInvalidArgument = errors.New("invalid argument")
)

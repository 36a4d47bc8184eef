package repository

import "errors"

var (
	ErrNotFound    = errors.New("not found")
	ErrRunFinished = errors.New("sync run already finished")
)

package store

import "github.com/AdguardTeam/golibs/errors"

const (
	ErrNotFound      errors.Error = "not found"
	ErrAlreadyExists errors.Error = "already exists"
)

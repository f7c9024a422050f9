package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
	// ErrOutOfStock is returned when a conditional stock decrement matches no
	// rows, meaning the item ran out between selection and commit.
	ErrOutOfStock = errors.New("out of stock")
)

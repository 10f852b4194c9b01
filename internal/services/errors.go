// Package services defines the business logic for tasks.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Task-related errors.
var (
	// ErrTaskNotFound indicates that no live task exists for the given ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrDescricaoRequired is returned when a create (or an update that sets
	// descricao) carries an empty or blank description.
	ErrDescricaoRequired = errors.New("descricao is required")
)

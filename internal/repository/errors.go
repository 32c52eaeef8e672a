// Package repository contains the raw-SQL data access layer.  This file
// defines sentinel errors shared by several repositories so that handlers
// and the booking manager can branch on failure kinds without string
// matching.  Entity-specific sentinels (ErrScheduleNotFound, ErrEmailExists
// and friends) live next to their repository.
package repository

import "errors"

// ErrForbidden is returned when the caller holds no right to the resource,
// e.g. a customer reading someone else's booking.  Handlers translate it
// into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// dependent state, such as deleting a schedule whose seat ledger still has
// rows.  Handlers translate it into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrNoChange is returned by update methods when the submitted values equal
// the stored ones, letting handlers answer 409 instead of issuing an empty
// UPDATE.
var ErrNoChange = errors.New("no fields changed")

package repositories

import "errors"

// ErrNotFound is returned by the MongoDB repositories when a document
// does not exist. The PostgreSQL repositories surface
// gorm.ErrRecordNotFound directly.
var ErrNotFound = errors.New("not found")

// ErrUnknownAction is returned when a ledger write names an action the
// ledger does not support.
var ErrUnknownAction = errors.New("unknown interaction action")

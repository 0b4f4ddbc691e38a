// Package service provides application-level services for authentication and
// for managing users, notes, and background tasks. Services coordinate
// domain objects, stores, and the event emitter, and own transaction
// boundaries.
package service

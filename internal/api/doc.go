// Package api contains the HTTP layer: handlers, request and response
// models, and the error-to-status mapping. Handlers decode and validate
// incoming JSON, call the service layer, and format responses; no business
// rules live here.
package api

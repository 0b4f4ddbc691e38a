// Package gemini provides an implementation of the generation.Generator
// interface that uses Google's Gemini API for enhancing and summarizing
// user notes.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external Gemini AI
// service. It translates between the application's domain models and the
// Gemini API without exposing the details of the external service to the
// core application.
//
// Error handling follows the generation package's error taxonomy: transient
// API failures are retried with exponential backoff and jitter, while
// permanent failures (blocked content, malformed responses) are returned
// immediately.
package gemini

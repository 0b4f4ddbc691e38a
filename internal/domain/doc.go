// Package domain contains the core business entities of the Companion
// application: users, notes, and the validation rules that govern them.
// Entities here are persistence-agnostic; stores and services depend on
// this package, never the other way around.
package domain

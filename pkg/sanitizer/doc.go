// Package sanitizer normalizes caller-supplied identifiers and free text
// before validation.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// empty strings rather than errors.
//
// Normalization includes:
//   - Identifiers (unit ids, booking ids, tokens): trim, drop control characters
//   - Free text (block references): collapse whitespace, trim leading/trailing spaces
//   - Enumerations (block kinds): trim and lowercase
package sanitizer

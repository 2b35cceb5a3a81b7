// Package sanitizer provides input normalization for booking data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings or empty slices rather than errors.
//
// Normalization includes:
//   - Titles and descriptions: Collapse whitespace, trim leading/trailing spaces
//   - Room names: Collapse whitespace, preserve case
//   - Equipment tags: Lowercase, whitespace collapsed
//   - Slices: Remove duplicates and empty values after normalization
package sanitizer

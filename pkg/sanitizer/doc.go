// Package sanitizer provides input normalization for booking data.
//
// All normalization functions are idempotent - applying them multiple times
// produces the same result. Functions handle invalid input gracefully,
// typically by returning empty strings rather than errors.
//
// Normalization includes:
//   - Strings: Collapse whitespace, trim leading/trailing spaces
//   - Titles: Whitespace-normalized, preserved case
//   - Admin notes: Whitespace-normalized, control characters stripped
//   - URLs: Enforce HTTPS, lowercase domains, preserve paths
package sanitizer

// Package ptr provides helpers for the pointer fields of Kubernetes API types.
package ptr

// To returns a pointer to v.
func To[T any](v T) *T { return &v }

// Bool returns a pointer to the given bool value.
func Bool(b bool) *bool { return &b }

// Int32 returns a pointer to the given int32 value.
func Int32(i int32) *int32 { return &i }

// Int64 returns a pointer to the given int64 value.
func Int64(i int64) *int64 { return &i }

// String returns a pointer to the given string value.
func String(s string) *string { return &s }

// Package errors provides structured error types for the dotnet host.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the field path, the offending raw value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConfig, errors.KindFieldMissing).
//		Path("assets", "3", "culture").
//		Value(raw).
//		Detail("satellite assembly needs a culture").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FieldMissing(errors.PhaseConfig, path, "virtual_path")
//	err := errors.FetchFailed("dotnet.dll", cause)
//
// All errors implement the standard error interface and support errors.Is/As.
package errors

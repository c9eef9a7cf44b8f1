// Package errors provides the classified error primitives used across marksite.
//
// A ClassifiedError carries a category (what subsystem failed), a severity
// (whether the build can continue) and structured context for logging. The
// CLI adapter turns them into exit codes and user-facing messages.
//
//	err := errors.ConfigError("site.title is required").
//		WithContext("file", path).
//		Build()
package errors

// Package logger wraps zap for the packager:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing and quiet-mode switching.
//
// Build steps receive a context and pull the logger out of it, so every
// line printed by a concurrent task pipeline carries that task's fields.
package logger

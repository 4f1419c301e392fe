// Package logx configures quartznet's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - A zero-value-safe Logger so components can be constructed before a
//     root logger is available without nil checks at every call site
package logx

// Package soroban recovers the structure of a Soroban contract from raw
// source text without a grammar.
//
// The parser masks comments and literal contents, then scans forward for
// items preceded by #[contracttype] / #[contract] (types) or #[contractimpl]
// (implementation blocks). Signatures and bodies are delimited with
// depth-aware bracket matching, so multi-line parameter lists containing
// generics or tuples are handled. Everything else is skipped.
//
// Types are kept as raw text. Nothing is resolved; rules compare text only.
package soroban

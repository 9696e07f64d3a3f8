// Package report renders scan outcomes: a JSON/YAML batch document with a
// stable schema, SARIF for code-scanning uploads, one-line short output and
// a colored terminal view with source context.
package report

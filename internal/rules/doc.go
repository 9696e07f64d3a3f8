// Package rules holds the heuristic checks run over a parsed Soroban
// contract and the Engine that runs them.
//
// Every check works on text: declared type strings and the masked source of
// function bodies. Nothing is resolved, so results are probable findings
// rather than proofs. Rules are independent of each other and the Engine
// preserves registration order in its output.
package rules

// Package expr evaluates condition-step expressions: a small closed
// grammar of comparison and boolean operators over named scalar
// bindings. No host-language code is ever executed.
package expr

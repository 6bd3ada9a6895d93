// Package formats provides parsers for the Source 2 text formats produced by
// the model decompiler.
package formats

// Note: DMX (keyvalues2 geometry description) is implemented in dmx.go
// Note: VMDL (KV3 model description) is implemented in vmdl.go
// Note: both share the tokenizer in lexer.go

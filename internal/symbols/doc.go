// Package symbols certifies that a shared library exports only approved
// symbols.
//
// The dynamic symbol table is read from `nm -gDC` output. A symbol is a
// violation when it is undefined (no address), does not carry the reserved
// engine API prefix, and is absent from the allowlist.
package symbols

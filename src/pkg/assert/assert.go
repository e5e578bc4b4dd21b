// Package assert provides a single invariant-checking helper used
// throughout the hash table, replacer, and buffer pool manager. A failed
// assertion is always a bug in a caller, never a recoverable condition,
// so it panics rather than returning an error.
package assert

import "fmt"

// Assert panics with msgAndArgs (formatted with fmt.Sprintf if more than
// one argument is given) when cond is false.
func Assert(cond bool, msgAndArgs ...any) {
	if cond {
		return
	}

	if len(msgAndArgs) == 0 {
		panic("assertion failed")
	}

	format, ok := msgAndArgs[0].(string)
	if !ok {
		panic(fmt.Sprint(msgAndArgs...))
	}

	if len(msgAndArgs) == 1 {
		panic(format)
	}

	panic(fmt.Sprintf(format, msgAndArgs[1:]...))
}

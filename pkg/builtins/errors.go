package builtins

import (
	"fmt"

	"valuescript/pkg/values"
)

// RuntimeTypeError and RuntimeRangeError build the `{name, message}`
// exception objects spec §7 says built-in helpers construct, wrapped as
// a Go error via values.Throw so native method bodies can just `return
// values.Void(), RuntimeTypeError(...)`.
func RuntimeTypeError(format string, args ...interface{}) error {
	return values.Throw(values.NewError("TypeError", fmt.Sprintf(format, args...)))
}

func RuntimeRangeError(format string, args ...interface{}) error {
	return values.Throw(values.NewError("RangeError", fmt.Sprintf(format, args...)))
}

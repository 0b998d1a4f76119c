package hooks

import "fmt"

var (
	// ErrScriptCompile is returned when a compatibility script does not compile.
	ErrScriptCompile = fmt.Errorf("failed to compile compatibility script")
	// ErrScriptResult is returned when a script leaves a non-boolean "compatible".
	ErrScriptResult = fmt.Errorf("compatibility script must leave a boolean in compatible")
	// ErrScriptExtension is returned for script files without the .tengo extension.
	ErrScriptExtension = fmt.Errorf("compatibility scripts must have the .tengo extension")
)

package hooks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/repository"
)

// ScriptExtension is the required extension of compatibility script files.
const ScriptExtension = ".tengo"

// LoadScriptChecker reads and compiles the compatibility script at path.
func LoadScriptChecker(path string, device repository.DeviceChecker) (*ScriptChecker, error) {
	if filepath.Ext(path) != ScriptExtension {
		return nil, fmt.Errorf("%w: %s", ErrScriptExtension, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading compatibility script %s", path)
	}
	return NewScriptChecker(filepath.Base(path), content, device)
}

// ScriptTemplate is a starting point for a compatibility script.
const ScriptTemplate = `// Compatibility script
// Runs once per version while syncing. "compatible" starts with the built-in
// decision (SDK range and native ABIs) and is read back when the script ends.
//
// Available variables:
// - packageName: string
// - versionCode: int
// - versionName: string
// - minSdk, targetSdk: int - 0 when the version does not declare them
// - maxSdk: int - 0 when the version has no upper bound
// - nativecode, features: array of strings
// - deviceSdk: int
// - deviceAbis: array of strings
//
// Assign with "=", the variables are already declared.
// Define err := "reason" to fail the sync.

// Example: hide builds that require a newer target than the device
/*
if targetSdk > deviceSdk + 2 {
    compatible = false
}
*/
`

package hooks

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/cperrin88/idxsync/pkg/errors"
	"github.com/cperrin88/idxsync/pkg/model"
	"github.com/cperrin88/idxsync/pkg/repository"
)

// ScriptChecker decides compatibility with a Tengo script. The script starts
// with the decision of Device in "compatible" and may overwrite it.
type ScriptChecker struct {
	Device repository.DeviceChecker

	name     string
	compiled *tengo.Compiled
}

var _ repository.CompatibilityChecker = (*ScriptChecker)(nil)

// NewScriptChecker compiles source once. name identifies the script in errors.
func NewScriptChecker(name string, source []byte, device repository.DeviceChecker) (*ScriptChecker, error) {
	script := tengo.NewScript(source)
	script.SetImports(stdlib.GetModuleMap("fmt", "math", "strings", "text"))

	// Declare every variable so the compiled script can be cloned and re-bound per version.
	for _, variable := range scriptVars {
		if err := script.Add(variable, nil); err != nil {
			return nil, fmt.Errorf("failed to add %s to script: %w", variable, err)
		}
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrScriptCompile, err)
	}
	return &ScriptChecker{Device: device, name: name, compiled: compiled}, nil
}

// IsCompatible runs the script for v. Safe for concurrent use.
func (c *ScriptChecker) IsCompatible(v model.Version) (bool, error) {
	return c.IsCompatibleContext(context.Background(), v)
}

// IsCompatibleContext is IsCompatible with cancellation of long running scripts.
func (c *ScriptChecker) IsCompatibleContext(ctx context.Context, v model.Version) (bool, error) {
	builtin, err := c.Device.IsCompatible(v)
	if err != nil {
		return false, err
	}

	run := c.compiled.Clone()
	for name, value := range c.vars(v, builtin) {
		if err := run.Set(name, value); err != nil {
			return false, fmt.Errorf("failed to set %s: %w", name, err)
		}
	}
	if err := run.RunContext(ctx); err != nil {
		return false, errors.Wrapf(errors.ErrHookScript, "%s: %s/%s: %v", c.name, v.PackageName, v.VersionID, err)
	}

	if errVar := run.Get(VarErr); errVar != nil {
		switch e := errVar.Value().(type) {
		case error:
			return false, errors.Wrap(errors.ErrHookScript, e.Error())
		case string:
			if e != "" {
				return false, errors.Wrap(errors.ErrHookScript, e)
			}
		}
	}

	result, ok := run.Get(VarCompatible).Value().(bool)
	if !ok {
		return false, fmt.Errorf("%s: %w, got %s", c.name, ErrScriptResult, run.Get(VarCompatible).ValueType())
	}
	return result, nil
}

func (c *ScriptChecker) vars(v model.Version, builtin bool) map[string]interface{} {
	m := v.Manifest
	var minSdk, targetSdk, maxSdk int
	if m.UsesSdk != nil {
		minSdk, targetSdk = int(m.UsesSdk.MinSdkVersion), int(m.UsesSdk.TargetSdkVersion)
	}
	if m.MaxSdkVersion != nil {
		maxSdk = int(*m.MaxSdkVersion)
	}
	return map[string]interface{}{
		VarPackageName: v.PackageName,
		VarVersionCode: m.VersionCode,
		VarVersionName: m.VersionName,
		VarMinSdk:      minSdk,
		VarTargetSdk:   targetSdk,
		VarMaxSdk:      maxSdk,
		VarNativecode:  list(m.Nativecode),
		VarFeatures:    list(m.Features),
		VarDeviceSdk:   c.Device.SDK,
		VarDeviceAbis:  list(c.Device.ABIs),
		VarCompatible:  builtin,
	}
}

// list converts strings to a value Tengo can import as an array.
func list(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

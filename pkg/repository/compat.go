package repository

import (
	"slices"

	"github.com/cperrin88/idxsync/pkg/model"
)

// DeviceChecker judges compatibility from the SDK level and native ABIs of a device.
type DeviceChecker struct {
	SDK  int
	ABIs []string
}

// IsCompatible reports whether minSdk <= SDK <= maxSdk and, for builds with
// native code, whether one of their ABIs is supported.
func (d DeviceChecker) IsCompatible(v model.Version) (bool, error) {
	m := v.Manifest
	if m.UsesSdk != nil && int(m.UsesSdk.MinSdkVersion) > d.SDK {
		return false, nil
	}
	if m.MaxSdkVersion != nil && int(*m.MaxSdkVersion) < d.SDK {
		return false, nil
	}
	if len(m.Nativecode) == 0 {
		return true, nil
	}
	for _, abi := range m.Nativecode {
		if slices.Contains(d.ABIs, abi) {
			return true, nil
		}
	}
	return false, nil
}

// AlwaysCompatible accepts every version.
type AlwaysCompatible struct{}

func (AlwaysCompatible) IsCompatible(model.Version) (bool, error) { return true, nil }

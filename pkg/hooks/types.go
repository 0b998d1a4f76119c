// Package hooks runs user supplied Tengo scripts that decide whether a
// version can be installed on this device.
package hooks

// Variables available to a compatibility script.
const (
	VarPackageName = "packageName"
	VarVersionCode = "versionCode"
	VarVersionName = "versionName"
	VarMinSdk      = "minSdk"
	VarTargetSdk   = "targetSdk"
	// VarMaxSdk is 0 when the version declares no upper bound.
	VarMaxSdk     = "maxSdk"
	VarNativecode = "nativecode"
	VarFeatures   = "features"
	VarDeviceSdk  = "deviceSdk"
	VarDeviceAbis = "deviceAbis"

	// VarCompatible holds the built-in decision when the script starts and
	// the final decision when it ends.
	VarCompatible = "compatible"
	// VarErr fails the sync when the script defines it as a non-empty string or an error.
	VarErr = "err"
)

var scriptVars = []string{
	VarPackageName, VarVersionCode, VarVersionName, VarMinSdk, VarTargetSdk, VarMaxSdk,
	VarNativecode, VarFeatures, VarDeviceSdk, VarDeviceAbis, VarCompatible,
}

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cperrin88/idxsync/pkg/errors"
)

// Keys lists the settings reachable through SetValue and GetValue, in display order.
var Keys = []string{
	"database_path",
	"payload_name",
	"max_payload_entry_size",
	"device.sdk",
	"device.abis",
	"compatibility_script",
	"log_level",
	"log_format",
	"metrics_file",
}

// SetValue sets a configuration value by key.
// List values (device.abis) are comma separated.
func (c *Config) SetValue(key, value string) error {
	switch key {
	case "database_path":
		c.Settings.DatabasePath = value
	case "payload_name":
		c.Settings.PayloadName = value
	case "max_payload_entry_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		c.Settings.MaxPayloadEntrySize = n
	case "device.sdk":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		c.Settings.Device.SDK = n
	case "device.abis":
		c.Settings.Device.ABIs = splitList(value)
	case "compatibility_script":
		c.Settings.CompatibilityScript = value
	case "log_level":
		c.Settings.LogLevel = strings.ToLower(value)
	case "log_format":
		c.Settings.LogFormat = strings.ToLower(value)
	case "metrics_file":
		c.Settings.MetricsFile = value
	default:
		return errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
	}
	return nil
}

// GetValue returns the value of a configuration key as a string.
func (c *Config) GetValue(key string) (string, error) {
	switch key {
	case "database_path":
		return c.Settings.DatabasePath, nil
	case "payload_name":
		return c.Settings.PayloadName, nil
	case "max_payload_entry_size":
		return strconv.FormatInt(c.Settings.MaxPayloadEntrySize, 10), nil
	case "device.sdk":
		return strconv.Itoa(c.Settings.Device.SDK), nil
	case "device.abis":
		return strings.Join(c.Settings.Device.ABIs, ","), nil
	case "compatibility_script":
		return c.Settings.CompatibilityScript, nil
	case "log_level":
		return c.Settings.LogLevel, nil
	case "log_format":
		return c.Settings.LogFormat, nil
	case "metrics_file":
		return c.Settings.MetricsFile, nil
	default:
		return "", errors.Wrapf(errors.ErrUnknownConfigKey, "%s", key)
	}
}

// ToMap returns every setting keyed by its name.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		// Keys only holds known keys
		value, _ := c.GetValue(key)
		result[key] = value
	}
	return result
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

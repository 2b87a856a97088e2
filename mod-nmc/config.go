/*
 * apccheck - Reliable and lightweight APC UPS monitoring plugins written in Go
 * Copyright (C) 2019  Pascal Mathis
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package modnmc

import (
	"fmt"
	"github.com/snapserv/nagopher"
	"gopkg.in/yaml.v2"
	"io/ioutil"
)

// sensorOverride contains the per-sensor threshold overrides read from an overrides file. All thresholds are given as
// Nagios range specifiers and empty values leave the according threshold unset.
type sensorOverride struct {
	Warning          string `yaml:"warning"`
	Critical         string `yaml:"critical"`
	HumidityWarning  string `yaml:"humidity-warning"`
	HumidityCritical string `yaml:"humidity-critical"`
}

type overridesFile struct {
	Sensors map[string]sensorOverride `yaml:"sensors"`
}

// loadSensorOverrides reads an overrides file and returns the threshold overrides of all sensors keyed by the sensor
// item, which is either a sensor name or a port number.
func loadSensorOverrides(path string) (map[string]sensorOverride, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read overrides file [%s]: %s", path, err.Error())
	}

	overrides := overridesFile{}
	if err := yaml.UnmarshalStrict(data, &overrides); err != nil {
		return nil, fmt.Errorf("could not parse overrides file [%s]: %s", path, err.Error())
	}

	if overrides.Sensors == nil {
		overrides.Sensors = make(map[string]sensorOverride)
	}

	return overrides.Sensors, nil
}

// lookupSensorOverride returns the threshold overrides for a single sensor item. An empty path or an item without an
// entry in the overrides file both yield an empty override, only loading or parsing failures are being reported.
func lookupSensorOverride(path string, item string) (sensorOverride, error) {
	if path == "" {
		return sensorOverride{}, nil
	}

	overrides, err := loadSensorOverrides(path)
	if err != nil {
		return sensorOverride{}, err
	}

	return overrides[item], nil
}

// resolveThreshold returns the effective threshold by preferring the command line flag over the overrides file. An
// empty result gets returned when neither source defines a threshold, which leaves the decision to the device-side
// alarm thresholds.
func resolveThreshold(flagThreshold nagopher.OptionalBounds, overrideRange string) (nagopher.OptionalBounds, error) {
	if nagopher.OptionalBoundsPtr(flagThreshold) != nil {
		return flagThreshold, nil
	}

	if overrideRange == "" {
		return nagopher.OptionalBounds{}, nil
	}

	bounds, err := nagopher.NewBoundsFromNagiosRange(overrideRange)
	if err != nil {
		return nagopher.OptionalBounds{}, fmt.Errorf("could not parse threshold override [%s]: %s", overrideRange, err.Error())
	}

	return nagopher.NewOptionalBounds(bounds), nil
}

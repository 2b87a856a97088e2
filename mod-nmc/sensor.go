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
	"sort"
	"strconv"
	"strings"
	"time"
)

// Unit represents a temperature unit and tracks which unit a given reading or threshold is currently stored in. All
// conversions are gated on this type, so converting a value into the unit it already has never changes it.
type Unit string

// These constants represent an 'Enum' for all supported temperature units
const (
	UnitCelsius    Unit = "celsius"
	UnitFahrenheit Unit = "fahrenheit"
)

// Sensor represents a single external sensor after merging the status and configuration tables of the network
// management card. The temperature reading and the optional device thresholds share the unit of the containing
// sensor set once 'Normalize()' was called.
type Sensor struct {
	Port        int
	Name        string
	Model       string
	Location    string
	CommStatus  int
	AlarmStatus int

	Temperature float64
	Unit        Unit

	Humidity    float64
	HasHumidity bool

	DeviceLevels *DeviceLevels
}

// DeviceLevels contains the temperature alarm thresholds as configured on the network management card itself, where
// 'High' maps to a warning and 'Max' to a critical condition.
type DeviceLevels struct {
	High float64
	Max  float64
}

// SensorSet contains all discovered external sensors of a network management card together with the detected unit of
// the device-side thresholds.
type SensorSet struct {
	Sensors       []Sensor
	ThresholdUnit Unit
}

// ParseUnit returns the unit matching the given name, which gets matched case-insensitively. Unknown or empty names
// default to Celsius.
func ParseUnit(value string) Unit {
	if strings.ToLower(strings.TrimSpace(value)) == string(UnitFahrenheit) {
		return UnitFahrenheit
	}

	return UnitCelsius
}

// Suffix returns the display suffix of this temperature unit
func (u Unit) Suffix() string {
	if u == UnitFahrenheit {
		return "°F"
	}

	return "°C"
}

func fahrenheitToCelsius(value float64) float64 {
	return (value - 32) * 5 / 9
}

func celsiusToFahrenheit(value float64) float64 {
	return value*9/5 + 32
}

// ConvertTemperature converts a temperature reading between units. Passing the same source and target unit returns
// the value unchanged, which keeps repeated conversions of already converted data safe.
func ConvertTemperature(value float64, from Unit, to Unit) float64 {
	if from == to {
		return value
	}

	if from == UnitFahrenheit {
		return fahrenheitToCelsius(value)
	}

	return celsiusToFahrenheit(value)
}

// ConvertTemperatureDelta converts a temperature difference between units. Only the scale factor applies to
// differences, the offset between both scales must not be added.
func ConvertTemperatureDelta(value float64, from Unit, to Unit) float64 {
	if from == to {
		return value
	}

	if from == UnitFahrenheit {
		return value * 5 / 9
	}

	return value * 9 / 5
}

// detectThresholdUnit guesses the unit of the threshold values configured on a network management card, which depends
// on the localization settings of the card and can not be queried directly. Data center alarm thresholds configured
// in Celsius stay well below 50, while the same thresholds configured in Fahrenheit end up above 50. Thresholds of
// zero or below are placeholders of unconfigured sensor ports and get ignored, and without any usable threshold the
// most common unit Celsius gets assumed.
func detectThresholdUnit(thresholds []float64) Unit {
	thresholdSum := float64(0)
	thresholdCount := 0

	for _, threshold := range thresholds {
		if threshold > 0 {
			thresholdSum += threshold
			thresholdCount++
		}
	}

	if thresholdCount == 0 {
		return UnitCelsius
	}

	if thresholdSum/float64(thresholdCount) > 50 {
		return UnitFahrenheit
	}

	return UnitCelsius
}

// mergeSensorData combines the status and configuration records of all sensor ports into a sensor set. Ports without
// a valid temperature reading are being skipped, as the network management card reports table rows even for ports
// without an attached probe. Device thresholds are only attached to a sensor when both the high and the maximum
// threshold are configured, a single threshold on its own is not usable for alerting.
func mergeSensorData(status []SensorStatusRecord, config []SensorConfigRecord) *SensorSet {
	configByPort := make(map[int]SensorConfigRecord, len(config))
	thresholds := make([]float64, 0, len(config)*2)

	for _, record := range config {
		configByPort[record.Port] = record

		if record.HasHigh {
			thresholds = append(thresholds, record.High)
		}
		if record.HasMax {
			thresholds = append(thresholds, record.Max)
		}
	}

	sensorSet := &SensorSet{
		Sensors:       make([]Sensor, 0, len(status)),
		ThresholdUnit: detectThresholdUnit(thresholds),
	}

	for _, record := range status {
		if !record.TemperatureValid {
			continue
		}

		sensor := Sensor{
			Port:        record.Port,
			Name:        record.Name,
			Model:       record.Model,
			CommStatus:  record.CommStatus,
			AlarmStatus: record.AlarmStatus,
			Temperature: record.Temperature,
			Unit:        record.TemperatureUnit,
			Humidity:    record.Humidity,
			HasHumidity: record.HasHumidity,
		}

		if sensor.Name == "" {
			sensor.Name = fmt.Sprintf("Port %d", record.Port)
		}

		if configRecord, ok := configByPort[record.Port]; ok {
			sensor.Location = configRecord.Location

			if configRecord.HasHigh && configRecord.HasMax {
				sensor.DeviceLevels = &DeviceLevels{
					High: configRecord.High,
					Max:  configRecord.Max,
				}
			}
		}

		sensorSet.Sensors = append(sensorSet.Sensors, sensor)
	}

	sort.Slice(sensorSet.Sensors, func(i, j int) bool {
		return sensorSet.Sensors[i].Port < sensorSet.Sensors[j].Port
	})

	return sensorSet
}

// Normalize converts all sensor readings and device thresholds of this sensor set into the given target unit. Every
// value tracks the unit it is currently stored in, so calling this method repeatedly or with partially converted
// data never applies a conversion twice.
func (s *SensorSet) Normalize(target Unit) {
	for i := range s.Sensors {
		sensor := &s.Sensors[i]

		sensor.Temperature = ConvertTemperature(sensor.Temperature, sensor.Unit, target)
		sensor.Unit = target

		if sensor.DeviceLevels != nil {
			sensor.DeviceLevels.High = ConvertTemperature(sensor.DeviceLevels.High, s.ThresholdUnit, target)
			sensor.DeviceLevels.Max = ConvertTemperature(sensor.DeviceLevels.Max, s.ThresholdUnit, target)
		}
	}

	s.ThresholdUnit = target
}

// Lookup returns the sensor matching the given item, which is either the sensor name as displayed by the network
// management card or the number of the universal I/O port the sensor is attached to.
func (s *SensorSet) Lookup(item string) (*Sensor, error) {
	for i := range s.Sensors {
		if s.Sensors[i].Name == item {
			return &s.Sensors[i], nil
		}
	}

	if port, err := strconv.Atoi(strings.TrimSpace(item)); err == nil {
		for i := range s.Sensors {
			if s.Sensors[i].Port == port {
				return &s.Sensors[i], nil
			}
		}
	}

	return nil, fmt.Errorf("could not find sensor [%s]", item)
}

// temperatureTrend returns the temperature change per minute between two samples
func temperatureTrend(previous float64, current float64, elapsed time.Duration) (float64, bool) {
	if elapsed <= 0 {
		return 0, false
	}

	return (current - previous) / elapsed.Minutes(), true
}

// collectSensors fetches all external sensor data through the given session and normalizes it into the target unit.
// The device identity gets verified first, so sensor data only ever gets interpreted when the target device is
// actually an APC network management card.
func collectSensors(session Session, target Unit) (*SensorSet, *Identity, error) {
	identity, err := session.Identity()
	if err != nil {
		return nil, nil, err
	}

	if !IsSupported(identity.Description) {
		return nil, nil, fmt.Errorf("device [%s] does not look like an APC network management card", identity.Description)
	}

	status, err := session.SensorStatus()
	if err != nil {
		return nil, nil, err
	}

	config, err := session.SensorConfig()
	if err != nil {
		return nil, nil, err
	}

	sensorSet := mergeSensorData(status, config)
	sensorSet.Normalize(target)

	return sensorSet, identity, nil
}

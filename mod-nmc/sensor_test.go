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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type fakeSession struct {
	identity *Identity
	status   []SensorStatusRecord
	config   []SensorConfigRecord
}

func (s *fakeSession) Identity() (*Identity, error) {
	return s.identity, nil
}

func (s *fakeSession) SensorStatus() ([]SensorStatusRecord, error) {
	return s.status, nil
}

func (s *fakeSession) SensorConfig() ([]SensorConfigRecord, error) {
	return s.config, nil
}

func (s *fakeSession) Close() error {
	return nil
}

func TestParseUnit(t *testing.T) {
	assert.Equal(t, UnitCelsius, ParseUnit("celsius"))
	assert.Equal(t, UnitCelsius, ParseUnit("Celsius"))
	assert.Equal(t, UnitFahrenheit, ParseUnit("fahrenheit"))
	assert.Equal(t, UnitFahrenheit, ParseUnit(" FAHRENHEIT "))

	assert.Equal(t, UnitCelsius, ParseUnit(""))
	assert.Equal(t, UnitCelsius, ParseUnit("kelvin"))
}

func TestUnitSuffix(t *testing.T) {
	assert.Equal(t, "°C", UnitCelsius.Suffix())
	assert.Equal(t, "°F", UnitFahrenheit.Suffix())
}

func TestConvertTemperature(t *testing.T) {
	assert.InDelta(t, 0, ConvertTemperature(32, UnitFahrenheit, UnitCelsius), 1e-9)
	assert.InDelta(t, 24, ConvertTemperature(75.2, UnitFahrenheit, UnitCelsius), 1e-9)
	assert.InDelta(t, 32, ConvertTemperature(0, UnitCelsius, UnitFahrenheit), 1e-9)
	assert.InDelta(t, 212, ConvertTemperature(100, UnitCelsius, UnitFahrenheit), 1e-9)
	assert.InDelta(t, -40, ConvertTemperature(-40, UnitFahrenheit, UnitCelsius), 1e-9)
}

func TestConvertTemperatureGate(t *testing.T) {
	converted := ConvertTemperature(75.2, UnitFahrenheit, UnitCelsius)

	assert.Equal(t, converted, ConvertTemperature(converted, UnitCelsius, UnitCelsius))
	assert.Equal(t, 75.2, ConvertTemperature(75.2, UnitFahrenheit, UnitFahrenheit))
	assert.Equal(t, 24.0, ConvertTemperature(24.0, UnitCelsius, UnitCelsius))
}

func TestConvertTemperatureDelta(t *testing.T) {
	assert.InDelta(t, 5, ConvertTemperatureDelta(9, UnitFahrenheit, UnitCelsius), 1e-9)
	assert.InDelta(t, 9, ConvertTemperatureDelta(5, UnitCelsius, UnitFahrenheit), 1e-9)
	assert.InDelta(t, 0, ConvertTemperatureDelta(0, UnitFahrenheit, UnitCelsius), 1e-9)
	assert.Equal(t, 1.5, ConvertTemperatureDelta(1.5, UnitCelsius, UnitCelsius))
}

func TestDetectThresholdUnit(t *testing.T) {
	assert.Equal(t, UnitCelsius, detectThresholdUnit(nil))
	assert.Equal(t, UnitCelsius, detectThresholdUnit([]float64{}))
	assert.Equal(t, UnitCelsius, detectThresholdUnit([]float64{25, 30}))
	assert.Equal(t, UnitCelsius, detectThresholdUnit([]float64{45, 55}))
	assert.Equal(t, UnitFahrenheit, detectThresholdUnit([]float64{70, 80}))

	assert.Equal(t, UnitCelsius, detectThresholdUnit([]float64{-1, 0}))
	assert.Equal(t, UnitFahrenheit, detectThresholdUnit([]float64{-1, 0, 77}))
}

func TestMergeSensorData(t *testing.T) {
	status := []SensorStatusRecord{
		{Port: 2, Name: "Rack B12", CommStatus: CommStatusEstablished, Temperature: 68, TemperatureUnit: UnitFahrenheit,
			TemperatureValid: true, AlarmStatus: AlarmStatusNormal},
		{Port: 1, Name: "Server Room", CommStatus: CommStatusEstablished, Temperature: 75.2, TemperatureUnit: UnitFahrenheit,
			TemperatureValid: true, Humidity: 41, HasHumidity: true, AlarmStatus: AlarmStatusNormal},
		{Port: 3, Name: "Broken Probe", CommStatus: CommStatusLost, AlarmStatus: AlarmStatusUnknown},
		{Port: 4, CommStatus: CommStatusEstablished, Temperature: 71.6, TemperatureUnit: UnitFahrenheit,
			TemperatureValid: true, AlarmStatus: AlarmStatusNormal},
	}
	config := []SensorConfigRecord{
		{Port: 1, Name: "Server Room", Location: "DC1 Row 4", High: 70, Max: 80, HasHigh: true, HasMax: true},
		{Port: 2, Name: "Rack B12", High: 75, HasHigh: true},
	}

	sensorSet := mergeSensorData(status, config)
	require.Len(t, sensorSet.Sensors, 3)
	assert.Equal(t, UnitFahrenheit, sensorSet.ThresholdUnit)

	assert.Equal(t, 1, sensorSet.Sensors[0].Port)
	assert.Equal(t, "Server Room", sensorSet.Sensors[0].Name)
	assert.Equal(t, "DC1 Row 4", sensorSet.Sensors[0].Location)
	assert.True(t, sensorSet.Sensors[0].HasHumidity)
	require.NotNil(t, sensorSet.Sensors[0].DeviceLevels)
	assert.Equal(t, float64(70), sensorSet.Sensors[0].DeviceLevels.High)
	assert.Equal(t, float64(80), sensorSet.Sensors[0].DeviceLevels.Max)

	assert.Equal(t, 2, sensorSet.Sensors[1].Port)
	assert.Nil(t, sensorSet.Sensors[1].DeviceLevels)
	assert.False(t, sensorSet.Sensors[1].HasHumidity)

	assert.Equal(t, 4, sensorSet.Sensors[2].Port)
	assert.Equal(t, "Port 4", sensorSet.Sensors[2].Name)
}

func TestSensorSetNormalize(t *testing.T) {
	sensorSet := &SensorSet{
		ThresholdUnit: UnitFahrenheit,
		Sensors: []Sensor{
			{Port: 1, Temperature: 75.2, Unit: UnitFahrenheit, DeviceLevels: &DeviceLevels{High: 70, Max: 80}},
			{Port: 2, Temperature: 20, Unit: UnitCelsius},
		},
	}

	sensorSet.Normalize(UnitCelsius)
	assert.Equal(t, UnitCelsius, sensorSet.ThresholdUnit)
	assert.Equal(t, UnitCelsius, sensorSet.Sensors[0].Unit)
	assert.InDelta(t, 24, sensorSet.Sensors[0].Temperature, 1e-9)
	assert.InDelta(t, 21.111111, sensorSet.Sensors[0].DeviceLevels.High, 1e-6)
	assert.InDelta(t, 26.666667, sensorSet.Sensors[0].DeviceLevels.Max, 1e-6)
	assert.InDelta(t, 20, sensorSet.Sensors[1].Temperature, 1e-9)

	normalizedTemperature := sensorSet.Sensors[0].Temperature
	sensorSet.Normalize(UnitCelsius)
	assert.Equal(t, normalizedTemperature, sensorSet.Sensors[0].Temperature)
	assert.InDelta(t, 20, sensorSet.Sensors[1].Temperature, 1e-9)

	sensorSet.Normalize(UnitFahrenheit)
	assert.InDelta(t, 75.2, sensorSet.Sensors[0].Temperature, 1e-9)
	assert.InDelta(t, 70, sensorSet.Sensors[0].DeviceLevels.High, 1e-9)
	assert.InDelta(t, 68, sensorSet.Sensors[1].Temperature, 1e-9)
}

func TestSensorSetLookup(t *testing.T) {
	sensorSet := &SensorSet{
		Sensors: []Sensor{
			{Port: 1, Name: "Server Room"},
			{Port: 2, Name: "2"},
			{Port: 3, Name: "Rack B12"},
		},
	}

	sensor, err := sensorSet.Lookup("Rack B12")
	require.NoError(t, err)
	assert.Equal(t, 3, sensor.Port)

	sensor, err = sensorSet.Lookup("2")
	require.NoError(t, err)
	assert.Equal(t, 2, sensor.Port)

	sensor, err = sensorSet.Lookup("3")
	require.NoError(t, err)
	assert.Equal(t, "Rack B12", sensor.Name)

	_, err = sensorSet.Lookup("Basement")
	assert.Error(t, err)
}

func TestTemperatureTrend(t *testing.T) {
	trend, ok := temperatureTrend(20, 23, 2*time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, 1.5, trend, 1e-9)

	trend, ok = temperatureTrend(23, 20, 5*time.Minute)
	assert.True(t, ok)
	assert.InDelta(t, -0.6, trend, 1e-9)

	_, ok = temperatureTrend(20, 23, 0)
	assert.False(t, ok)

	_, ok = temperatureTrend(20, 23, -time.Minute)
	assert.False(t, ok)
}

func TestCollectSensors(t *testing.T) {
	session := &fakeSession{
		identity: &Identity{Description: "APC Web/SNMP Management Card (MB:v4.1.0 PF:v6.8.2)", Uptime: time.Hour},
		status: []SensorStatusRecord{
			{Port: 1, Name: "Server Room", CommStatus: CommStatusEstablished, Temperature: 75.2,
				TemperatureUnit: UnitFahrenheit, TemperatureValid: true, AlarmStatus: AlarmStatusNormal},
		},
		config: []SensorConfigRecord{
			{Port: 1, Name: "Server Room", High: 70, Max: 80, HasHigh: true, HasMax: true},
		},
	}

	sensorSet, identity, err := collectSensors(session, UnitCelsius)
	require.NoError(t, err)
	require.NotNil(t, identity)
	require.Len(t, sensorSet.Sensors, 1)

	assert.Equal(t, time.Hour, identity.Uptime)
	assert.InDelta(t, 24, sensorSet.Sensors[0].Temperature, 1e-9)
	require.NotNil(t, sensorSet.Sensors[0].DeviceLevels)
	assert.InDelta(t, 21.111111, sensorSet.Sensors[0].DeviceLevels.High, 1e-6)
}

func TestCollectSensorsUnsupportedDevice(t *testing.T) {
	session := &fakeSession{
		identity: &Identity{Description: "Linux srv01 4.19.0-9-amd64"},
	}

	_, _, err := collectSensors(session, UnitCelsius)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not look like an APC network management card")
}

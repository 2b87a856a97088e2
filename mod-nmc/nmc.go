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
	"github.com/snapserv/apccheck/apccheck"
	"github.com/snapserv/apccheck/mod-nmc/gonmc"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// These constants contain all OIDs of the PowerNet-MIB which are being used for monitoring the external sensors of an
// APC network management card. The status table contains the current sensor readings, while the config table contains
// the alarm thresholds as configured on the card itself. Both tables share the same row index, which equals the
// universal I/O port the sensor is attached to.
const (
	oidSystemDescription = ".1.3.6.1.2.1.1.1.0" // sysDescr
	oidSystemUptime      = ".1.3.6.1.2.1.1.3.0" // sysUpTime, hundredths of a second

	oidSensorStatusName        = ".1.3.6.1.4.1.318.1.1.25.1.2.1.3"  // uioSensorStatusSensorName
	oidSensorStatusCommStatus  = ".1.3.6.1.4.1.318.1.1.25.1.2.1.4"  // uioSensorStatusCommStatus
	oidSensorStatusTempF       = ".1.3.6.1.4.1.318.1.1.25.1.2.1.5"  // uioSensorStatusTemperatureDegF, always Fahrenheit
	oidSensorStatusHumidity    = ".1.3.6.1.4.1.318.1.1.25.1.2.1.7"  // uioSensorStatusHumidity, -1 if unsupported
	oidSensorStatusAlarmStatus = ".1.3.6.1.4.1.318.1.1.25.1.2.1.10" // uioSensorStatusAlarmStatus

	oidSensorConfigName     = ".1.3.6.1.4.1.318.1.1.25.1.4.1.3" // uioSensorConfigSensorName
	oidSensorConfigLocation = ".1.3.6.1.4.1.318.1.1.25.1.4.1.4" // uioSensorConfigSensorLocation
	oidSensorConfigTempHigh = ".1.3.6.1.4.1.318.1.1.25.1.4.1.7" // uioSensorConfigTemperatureHighThreshold
	oidSensorConfigTempMax  = ".1.3.6.1.4.1.318.1.1.25.1.4.1.8" // uioSensorConfigTemperatureMaxThreshold
)

// These constants represent an 'Enum' for all communication states between the network management card and an
// external sensor.
const (
	CommStatusNotDiscovered = 1
	CommStatusEstablished   = 2
	CommStatusLost          = 3
)

// These constants represent an 'Enum' for all alarm states which an external sensor reports based on the thresholds
// configured on the network management card itself.
const (
	AlarmStatusUnknown  = 1
	AlarmStatusNormal   = 2
	AlarmStatusWarning  = 3
	AlarmStatusCritical = 4
)

var (
	consoleResultPattern = regexp.MustCompile(`^E(?P<code>\d{3})\s*:\s*(?P<message>.*)$`)
	consolePortPattern   = regexp.MustCompile(`^Port\s+(?P<port>\d+)\s*:\s*(?P<model>\S.*)$`)
	consoleFieldPattern  = regexp.MustCompile(`^\s+(?P<key>[A-Za-z ]+?)\s*:\s*(?P<value>.*)$`)
	consoleUptimePattern = regexp.MustCompile(`Up\s*Time\s*:\s*(?P<days>\d+)\s+Days?\s+(?P<hours>\d+)\s+Hours?\s+(?P<minutes>\d+)\s+Minutes?`)
	consoleValuePattern  = regexp.MustCompile(`^(?P<value>-?\d+(?:\.\d+)?)\s*(?P<unit>[CF])$`)
)

// Session represents an active connection for communicating with an APC network management card
type Session interface {
	Identity() (*Identity, error)
	SensorStatus() ([]SensorStatusRecord, error)
	SensorConfig() ([]SensorConfigRecord, error)
	Close() error
}

// Identity contains generic information about a network management card, which gets used for ensuring that the target
// device is actually supported before interpreting any sensor readings.
type Identity struct {
	Description string
	Uptime      time.Duration
}

// SensorStatusRecord contains the current readings of a single external sensor port as reported by the network
// management card. Readings which the sensor does not support are being flagged accordingly instead of carrying
// placeholder values.
type SensorStatusRecord struct {
	Port             int
	Name             string
	Model            string
	CommStatus       int
	Temperature      float64
	TemperatureUnit  Unit
	TemperatureValid bool
	Humidity         float64
	HasHumidity      bool
	AlarmStatus      int
}

// SensorConfigRecord contains the configuration of a single external sensor port, most importantly the alarm
// thresholds as configured on the network management card itself. Thresholds are stored without a known unit, as this
// depends on the localization settings of the card.
type SensorConfigRecord struct {
	Port     int
	Name     string
	Location string
	High     float64
	Max      float64
	HasHigh  bool
	HasMax   bool
}

type snmpSession struct {
	client    *gonmc.SnmpClient
	connected bool
}

type consoleSession struct {
	client    *gonmc.ConsoleClient
	connected bool
}

// IsSupported returns whether a device with the given system description looks like an APC network management card.
func IsSupported(description string) bool {
	return strings.Contains(description, "APC Web/SNMP") ||
		strings.Contains(description, "American Power Conversion")
}

// NewSnmpSession instantiates a new Session which communicates with the SNMP agent of a network management card
func NewSnmpSession(hostname string, port uint16, community string, version string, timeout time.Duration, retries int) (Session, error) {
	client, err := gonmc.NewSnmpClient(hostname, port, community, version, timeout, retries)
	if err != nil {
		return nil, err
	}

	return &snmpSession{client: client}, nil
}

func (s *snmpSession) ensureConnected() error {
	if s.connected {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return err
	}

	s.connected = true
	return nil
}

func (s *snmpSession) Identity() (*Identity, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	description, err := s.client.GetString(oidSystemDescription)
	if err != nil {
		return nil, fmt.Errorf("could not fetch system description: %s", err.Error())
	}

	uptimeTicks, err := s.client.GetNumber(oidSystemUptime)
	if err != nil {
		return nil, fmt.Errorf("could not fetch system uptime: %s", err.Error())
	}

	return &Identity{
		Description: strings.Join(strings.Fields(description), " "),
		Uptime:      time.Duration(uptimeTicks) * 10 * time.Millisecond,
	}, nil
}

func (s *snmpSession) SensorStatus() ([]SensorStatusRecord, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	names, err := s.client.WalkStrings(oidSensorStatusName)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor names: %s", err.Error())
	}

	commStates, err := s.client.WalkNumbers(oidSensorStatusCommStatus)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor communication states: %s", err.Error())
	}

	temperatures, err := s.client.WalkNumbers(oidSensorStatusTempF)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor temperatures: %s", err.Error())
	}

	humidities, err := s.client.WalkNumbers(oidSensorStatusHumidity)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor humidities: %s", err.Error())
	}

	alarmStates, err := s.client.WalkNumbers(oidSensorStatusAlarmStatus)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor alarm states: %s", err.Error())
	}

	records := make([]SensorStatusRecord, 0, len(names))
	for port, name := range names {
		record := SensorStatusRecord{
			Port:            port,
			Name:            strings.TrimSpace(name),
			CommStatus:      CommStatusNotDiscovered,
			TemperatureUnit: UnitFahrenheit,
			AlarmStatus:     AlarmStatusUnknown,
		}

		if commStatus, ok := commStates[port]; ok {
			record.CommStatus = int(commStatus)
		}
		if alarmStatus, ok := alarmStates[port]; ok {
			record.AlarmStatus = int(alarmStatus)
		}
		if temperature, ok := temperatures[port]; ok && temperature != -1 {
			record.Temperature = float64(temperature)
			record.TemperatureValid = true
		}
		if humidity, ok := humidities[port]; ok && humidity != -1 {
			record.Humidity = float64(humidity)
			record.HasHumidity = true
		}

		records = append(records, record)
	}

	return records, nil
}

func (s *snmpSession) SensorConfig() ([]SensorConfigRecord, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	names, err := s.client.WalkStrings(oidSensorConfigName)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor names: %s", err.Error())
	}

	locations, err := s.client.WalkStrings(oidSensorConfigLocation)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor locations: %s", err.Error())
	}

	highThresholds, err := s.client.WalkNumbers(oidSensorConfigTempHigh)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor high thresholds: %s", err.Error())
	}

	maxThresholds, err := s.client.WalkNumbers(oidSensorConfigTempMax)
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor maximum thresholds: %s", err.Error())
	}

	records := make([]SensorConfigRecord, 0, len(names))
	for port, name := range names {
		record := SensorConfigRecord{
			Port: port,
			Name: strings.TrimSpace(name),
		}

		if location, ok := locations[port]; ok {
			record.Location = strings.TrimSpace(location)
		}
		if high, ok := highThresholds[port]; ok && high > 0 {
			record.High = float64(high)
			record.HasHigh = true
		}
		if max, ok := maxThresholds[port]; ok && max > 0 {
			record.Max = float64(max)
			record.HasMax = true
		}

		records = append(records, record)
	}

	return records, nil
}

func (s *snmpSession) Close() error {
	if !s.connected {
		return nil
	}

	s.connected = false
	return s.client.Close()
}

// NewConsoleSession instantiates a new Session which communicates with the telnet command line interface of a network
// management card. Please note that the command line interface does not expose the configured alarm thresholds, so
// 'SensorConfig()' always returns an empty result and the card-side thresholds are unavailable in this mode.
func NewConsoleSession(hostname string, port uint16, username string, password string) Session {
	return &consoleSession{
		client: gonmc.NewConsoleClient(fmt.Sprintf("%s:%d", hostname, port), username, password),
	}
}

func (s *consoleSession) ensureConnected() error {
	if s.connected {
		return nil
	}

	if err := s.client.Connect(); err != nil {
		return err
	}

	s.connected = true
	return nil
}

func (s *consoleSession) Identity() (*Identity, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	return parseConsoleIdentity(s.client.Banner())
}

func (s *consoleSession) SensorStatus() ([]SensorStatusRecord, error) {
	if err := s.ensureConnected(); err != nil {
		return nil, err
	}

	output, err := s.client.Execute("uio -st")
	if err != nil {
		return nil, fmt.Errorf("could not fetch sensor status: %s", err.Error())
	}

	return parseConsoleSensors(output)
}

func (s *consoleSession) SensorConfig() ([]SensorConfigRecord, error) {
	return []SensorConfigRecord{}, nil
}

func (s *consoleSession) Close() error {
	if !s.connected {
		return nil
	}

	s.connected = false
	return s.client.Close()
}

// parseConsoleIdentity extracts the device description and uptime from the welcome banner of the command line
// interface. The first non-empty banner line always contains the vendor and firmware identification.
func parseConsoleIdentity(banner string) (*Identity, error) {
	identity := &Identity{}

	for _, line := range strings.Split(banner, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		identity.Description = strings.Join(strings.Fields(line), " ")
		break
	}

	if identity.Description == "" {
		return nil, fmt.Errorf("could not find device description in console banner")
	}

	if matches, ok := apccheck.RegexpSubMatchMap(consoleUptimePattern, banner); ok {
		days, _ := strconv.Atoi(matches["days"])
		hours, _ := strconv.Atoi(matches["hours"])
		minutes, _ := strconv.Atoi(matches["minutes"])

		identity.Uptime = time.Duration(days)*24*time.Hour +
			time.Duration(hours)*time.Hour +
			time.Duration(minutes)*time.Minute
	}

	return identity, nil
}

// parseConsoleSensors parses the output of the 'uio -st' command into sensor status records. The output starts with a
// result code line followed by one indented block per universal I/O port, where each block lists the current sensor
// readings as key/value pairs.
func parseConsoleSensors(output string) ([]SensorStatusRecord, error) {
	records := make([]SensorStatusRecord, 0)

	var record *SensorStatusRecord
	resultSeen := false

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !resultSeen {
			matches, ok := apccheck.RegexpSubMatchMap(consoleResultPattern, strings.TrimSpace(line))
			if !ok {
				return nil, fmt.Errorf("could not parse console result code from [%s]", line)
			}
			if matches["code"] != "000" {
				return nil, fmt.Errorf("console command failed with [E%s: %s]", matches["code"], matches["message"])
			}

			resultSeen = true
			continue
		}

		if matches, ok := apccheck.RegexpSubMatchMap(consolePortPattern, line); ok {
			if record != nil {
				records = append(records, *record)
			}

			port, err := strconv.Atoi(matches["port"])
			if err != nil {
				return nil, fmt.Errorf("could not parse port number from [%s]", line)
			}

			record = &SensorStatusRecord{
				Port:        port,
				Model:       strings.TrimSpace(matches["model"]),
				CommStatus:  CommStatusNotDiscovered,
				AlarmStatus: AlarmStatusUnknown,
			}
			continue
		}

		matches, ok := apccheck.RegexpSubMatchMap(consoleFieldPattern, line)
		if !ok || record == nil {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(matches["key"]))
		value := strings.TrimSpace(matches["value"])

		switch key {
		case "name":
			record.Name = value
		case "comm status":
			record.CommStatus = parseConsoleCommStatus(value)
		case "temperature":
			if reading, ok := apccheck.RegexpSubMatchMap(consoleValuePattern, value); ok {
				temperature, err := strconv.ParseFloat(reading["value"], 64)
				if err == nil {
					record.Temperature = temperature
					record.TemperatureUnit = UnitCelsius
					record.TemperatureValid = true

					if strings.EqualFold(reading["unit"], "F") {
						record.TemperatureUnit = UnitFahrenheit
					}
				}
			}
		case "humidity":
			fields := strings.Fields(value)
			if len(fields) > 0 {
				humidity, err := strconv.ParseFloat(fields[0], 64)
				if err == nil && humidity != -1 {
					record.Humidity = humidity
					record.HasHumidity = true
				}
			}
		case "alarm status":
			record.AlarmStatus = parseConsoleAlarmStatus(value)
		}
	}

	if record != nil {
		records = append(records, *record)
	}

	return records, nil
}

func parseConsoleCommStatus(value string) int {
	switch strings.ToLower(value) {
	case "established", "connected":
		return CommStatusEstablished
	case "lost", "comm lost":
		return CommStatusLost
	default:
		return CommStatusNotDiscovered
	}
}

func parseConsoleAlarmStatus(value string) int {
	switch strings.ToLower(value) {
	case "normal":
		return AlarmStatusNormal
	case "warning":
		return AlarmStatusWarning
	case "critical":
		return AlarmStatusCritical
	default:
		return AlarmStatusUnknown
	}
}

// CommStatusName returns a human readable name for the given sensor communication state.
func CommStatusName(commStatus int) string {
	switch commStatus {
	case CommStatusNotDiscovered:
		return "not discovered"
	case CommStatusEstablished:
		return "established"
	case CommStatusLost:
		return "lost"
	default:
		return "unknown"
	}
}

// AlarmStatusName returns a human readable name for the given sensor alarm state.
func AlarmStatusName(alarmStatus int) string {
	switch alarmStatus {
	case AlarmStatusNormal:
		return "normal"
	case AlarmStatusWarning:
		return "warning"
	case AlarmStatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

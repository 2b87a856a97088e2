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
	"strings"
	"testing"
	"time"
)

const consoleBannerFixture = `American Power Conversion               Network Management Card AOS      v6.8.2
(c) Copyright 2019 All Rights Reserved  Smart-UPS & Matrix-UPS APP       v6.8.0
-------------------------------------------------------------------------------
Name      : apcups01                                  Date : 04/02/2019
Contact   : Unknown                                   Time : 10:15:32
Location  : Server Room                               User : Administrator
Up Time   : 42 Days 7 Hours 3 Minutes                 Stat : P+ N4+ N6+ A+`

const consoleSensorFixture = `E000: Success
Port 1: AP9335TH
    Name         : Server Room
    Comm Status  : Established
    Temperature  : 75.2 F
    Humidity     : 41 %RH
    Alarm Status : Normal
Port 2: AP9335T
    Name         : Rack B12
    Comm Status  : Connected
    Temperature  : 20.5 C
    Humidity     : -1 %RH
    Alarm Status : Warning
Port 3: Unknown
    Comm Status  : Lost
    Alarm Status : Not Available`

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("APC Web/SNMP Management Card (MB:v4.1.0 PF:v6.8.2 PN:apc_hw05_aos_682.bin)"))
	assert.True(t, IsSupported("American Power Conversion Network Management Card AOS v6.8.2"))

	assert.False(t, IsSupported("Linux srv01 4.19.0-9-amd64 #1 SMP Debian"))
	assert.False(t, IsSupported(""))
}

func TestParseConsoleIdentity(t *testing.T) {
	identity, err := parseConsoleIdentity(consoleBannerFixture)
	require.NoError(t, err)

	assert.Equal(t, "American Power Conversion Network Management Card AOS v6.8.2", identity.Description)
	assert.Equal(t, 42*24*time.Hour+7*time.Hour+3*time.Minute, identity.Uptime)
}

func TestParseConsoleIdentityWithoutUptime(t *testing.T) {
	identity, err := parseConsoleIdentity("American Power Conversion  Network Management Card AOS  v6.8.2")
	require.NoError(t, err)

	assert.Equal(t, "American Power Conversion Network Management Card AOS v6.8.2", identity.Description)
	assert.Equal(t, time.Duration(0), identity.Uptime)
}

func TestParseConsoleIdentityEmptyBanner(t *testing.T) {
	_, err := parseConsoleIdentity("\r\n   \r\n")
	assert.Error(t, err)
}

func TestParseConsoleSensors(t *testing.T) {
	records, err := parseConsoleSensors(consoleSensorFixture)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, 1, records[0].Port)
	assert.Equal(t, "AP9335TH", records[0].Model)
	assert.Equal(t, "Server Room", records[0].Name)
	assert.Equal(t, CommStatusEstablished, records[0].CommStatus)
	assert.True(t, records[0].TemperatureValid)
	assert.Equal(t, 75.2, records[0].Temperature)
	assert.Equal(t, UnitFahrenheit, records[0].TemperatureUnit)
	assert.True(t, records[0].HasHumidity)
	assert.Equal(t, float64(41), records[0].Humidity)
	assert.Equal(t, AlarmStatusNormal, records[0].AlarmStatus)

	assert.Equal(t, 2, records[1].Port)
	assert.Equal(t, CommStatusEstablished, records[1].CommStatus)
	assert.True(t, records[1].TemperatureValid)
	assert.Equal(t, 20.5, records[1].Temperature)
	assert.Equal(t, UnitCelsius, records[1].TemperatureUnit)
	assert.False(t, records[1].HasHumidity)
	assert.Equal(t, AlarmStatusWarning, records[1].AlarmStatus)

	assert.Equal(t, 3, records[2].Port)
	assert.Equal(t, "", records[2].Name)
	assert.Equal(t, CommStatusLost, records[2].CommStatus)
	assert.False(t, records[2].TemperatureValid)
	assert.False(t, records[2].HasHumidity)
	assert.Equal(t, AlarmStatusUnknown, records[2].AlarmStatus)
}

func TestParseConsoleSensorsCarriageReturns(t *testing.T) {
	records, err := parseConsoleSensors(strings.Replace(consoleSensorFixture, "\n", "\r\n", -1))
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "Server Room", records[0].Name)
	assert.Equal(t, 75.2, records[0].Temperature)
}

func TestParseConsoleSensorsCommandError(t *testing.T) {
	_, err := parseConsoleSensors("E102: Parameter Error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E102")
}

func TestParseConsoleSensorsMissingResultCode(t *testing.T) {
	_, err := parseConsoleSensors("Port 1: AP9335TH")
	assert.Error(t, err)
}

func TestParseConsoleSensorsEmptyResult(t *testing.T) {
	records, err := parseConsoleSensors("E000: Success")
	require.NoError(t, err)
	assert.Len(t, records, 0)
}

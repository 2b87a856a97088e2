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
	"github.com/snapserv/nagopher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"testing"
)

const overridesFixture = `sensors:
  Server Room:
    warning: "20:30"
    critical: "15:35"
    humidity-warning: "35:65"
  "2":
    critical: "10:40"
`

func writeOverridesFixture(t *testing.T, content string) (string, func()) {
	file, err := ioutil.TempFile("", "apccheck-overrides")
	require.NoError(t, err)

	_, err = file.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, file.Close())

	return file.Name(), func() {
		_ = os.Remove(file.Name())
	}
}

func TestLoadSensorOverrides(t *testing.T) {
	path, cleanup := writeOverridesFixture(t, overridesFixture)
	defer cleanup()

	overrides, err := loadSensorOverrides(path)
	require.NoError(t, err)
	require.Len(t, overrides, 2)

	assert.Equal(t, "20:30", overrides["Server Room"].Warning)
	assert.Equal(t, "15:35", overrides["Server Room"].Critical)
	assert.Equal(t, "35:65", overrides["Server Room"].HumidityWarning)
	assert.Equal(t, "", overrides["Server Room"].HumidityCritical)
	assert.Equal(t, "10:40", overrides["2"].Critical)
}

func TestLoadSensorOverridesMissingFile(t *testing.T) {
	_, err := loadSensorOverrides("/nonexistent/apccheck-overrides.yml")
	assert.Error(t, err)
}

func TestLoadSensorOverridesUnknownField(t *testing.T) {
	path, cleanup := writeOverridesFixture(t, "sensors:\n  Server Room:\n    warnign: \"20:30\"\n")
	defer cleanup()

	_, err := loadSensorOverrides(path)
	assert.Error(t, err)
}

func TestLookupSensorOverride(t *testing.T) {
	path, cleanup := writeOverridesFixture(t, overridesFixture)
	defer cleanup()

	override, err := lookupSensorOverride(path, "Server Room")
	require.NoError(t, err)
	assert.Equal(t, "20:30", override.Warning)

	override, err = lookupSensorOverride(path, "Basement")
	require.NoError(t, err)
	assert.Equal(t, sensorOverride{}, override)

	override, err = lookupSensorOverride("", "Server Room")
	require.NoError(t, err)
	assert.Equal(t, sensorOverride{}, override)
}

func TestResolveThreshold(t *testing.T) {
	flagBounds, err := nagopher.NewBoundsFromNagiosRange("15:25")
	require.NoError(t, err)

	resolved, err := resolveThreshold(nagopher.NewOptionalBounds(flagBounds), "20:30")
	require.NoError(t, err)
	require.NotNil(t, nagopher.OptionalBoundsPtr(resolved))
	assert.True(t, resolved.OrElse(nagopher.NewBounds()).Match(18))
	assert.False(t, resolved.OrElse(nagopher.NewBounds()).Match(28))

	resolved, err = resolveThreshold(nagopher.OptionalBounds{}, "20:30")
	require.NoError(t, err)
	require.NotNil(t, nagopher.OptionalBoundsPtr(resolved))
	assert.False(t, resolved.OrElse(nagopher.NewBounds()).Match(18))
	assert.True(t, resolved.OrElse(nagopher.NewBounds()).Match(28))

	resolved, err = resolveThreshold(nagopher.OptionalBounds{}, "")
	require.NoError(t, err)
	assert.Nil(t, nagopher.OptionalBoundsPtr(resolved))

	_, err = resolveThreshold(nagopher.OptionalBounds{}, "foo")
	assert.Error(t, err)
}

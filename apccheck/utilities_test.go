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

package apccheck

import (
	"fmt"
	"github.com/stretchr/testify/assert"
	"math"
	"regexp"
	"testing"
	"time"
)

func TestRound(t *testing.T) {
	assert.InDelta(t, 24.5, Round(24.46, 1), 1e-9)
	assert.InDelta(t, 24.4, Round(24.44, 1), 1e-9)
	assert.InDelta(t, -24.5, Round(-24.46, 1), 1e-9)
	assert.InDelta(t, 25.0, Round(24.5, 0), 1e-9)
	assert.InDelta(t, 24.46, Round(24.456, 2), 1e-9)
}

func TestRegexpSubMatchMap(t *testing.T) {
	pattern := regexp.MustCompile(`(?P<key>\w+)\s*:\s*(?P<value>\w+)`)

	matchMap, matched := RegexpSubMatchMap(pattern, "Mode : Active")
	assert.True(t, matched)
	assert.Equal(t, "Mode", matchMap["key"])
	assert.Equal(t, "Active", matchMap["value"])

	_, matched = RegexpSubMatchMap(pattern, "---")
	assert.False(t, matched)
}

func TestRetryDuring(t *testing.T) {
	attempts := 0
	err := RetryDuring(time.Second, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("attempt %d failed", attempts)
		}

		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryDuringTimeout(t *testing.T) {
	err := RetryDuring(10*time.Millisecond, time.Millisecond, func() error {
		return fmt.Errorf("permanent failure")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "permanent failure")
}

func TestDurationString(t *testing.T) {
	assert.Equal(t, "42s", DurationString(42*time.Second))
	assert.Equal(t, "1h30m0s", DurationString(90*time.Minute))
	assert.Equal(t, "2d3h0m0s", DurationString(51*time.Hour))
}

func TestFormatTemperature(t *testing.T) {
	assert.Equal(t, "24.0°C", FormatTemperature(24, "°C"))
	assert.Equal(t, "75.2°F", FormatTemperature(75.23, "°F"))
	assert.Equal(t, "-8.5°C", FormatTemperature(-8.46, "°C"))
	assert.Equal(t, "N/A", FormatTemperature(math.NaN(), "°C"))
}

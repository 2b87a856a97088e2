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
	"github.com/snapserv/nagopher"
)

type sensorsPlugin struct {
	apccheck.Plugin

	TargetUnitName string

	targetUnit Unit
}

type sensorsResource struct {
	apccheck.Resource

	sensorSet *SensorSet
	identity  *Identity
}

type sensorsSummarizer struct {
	apccheck.Summarizer
}

func newSensorsPlugin() *sensorsPlugin {
	return &sensorsPlugin{
		Plugin: apccheck.NewPlugin("sensors",
			apccheck.PluginDescription("Sensor Discovery"),
			apccheck.PluginForceVerbose(true),
		),
	}
}

func (p *sensorsPlugin) DefineFlags(node apccheck.KingpinNode) {
	node.Flag("unit", "Specifies the unit in which temperatures are being displayed, which can either be celsius "+
		"or fahrenheit.").
		Short('u').Default("celsius").EnumVar(&p.TargetUnitName, "celsius", "fahrenheit")
}

func (p *sensorsPlugin) DefineCheck() nagopher.Check {
	p.targetUnit = ParseUnit(p.TargetUnitName)

	check := nagopher.NewCheck("sensors", newSensorsSummarizer(p))
	check.AttachResources(newSensorsResource(p))
	check.AttachContexts(
		nagopher.NewScalarContext(
			"sensors",
			nagopher.OptionalBoundsPtr(p.WarningThreshold()),
			nagopher.OptionalBoundsPtr(p.CriticalThreshold()),
		),

		nagopher.NewStringInfoContext("device"),
		nagopher.NewStringInfoContext("sensor"),
		apccheck.NewHiddenScalarContext(p, "temperature", nil, nil),
	)

	return check
}

func (p *sensorsPlugin) ThisModule() *nmcModule {
	return p.Plugin.Module().(*nmcModule)
}

func newSensorsResource(plugin *sensorsPlugin) *sensorsResource {
	return &sensorsResource{
		Resource: apccheck.NewResource(plugin),
	}
}

func (r *sensorsResource) Probe(warnings nagopher.WarningCollection) (metrics []nagopher.Metric, _ error) {
	valueRange := nagopher.NewBounds(nagopher.BoundsOpt(nagopher.LowerBound(0)))

	if err := r.Collect(); err != nil {
		return metrics, err
	}

	metrics = append(metrics,
		nagopher.MustNewNumericMetric("sensors", float64(len(r.sensorSet.Sensors)), "", &valueRange, ""),
		nagopher.MustNewStringMetric("device", fmt.Sprintf(
			"device: %s, up since %s",
			r.identity.Description, apccheck.DurationString(r.identity.Uptime),
		), ""),
	)

	for _, sensor := range r.sensorSet.Sensors {
		description := fmt.Sprintf("#%d %s: %s", sensor.Port, sensor.Name,
			apccheck.FormatTemperature(sensor.Temperature, sensor.Unit.Suffix()))
		if sensor.HasHumidity {
			description += fmt.Sprintf(", humidity %.0f%%", sensor.Humidity)
		}
		description += fmt.Sprintf(", comm %s, alarm %s",
			CommStatusName(sensor.CommStatus), AlarmStatusName(sensor.AlarmStatus))
		if sensor.Location != "" {
			description += fmt.Sprintf(" (%s)", sensor.Location)
		}

		metrics = append(metrics,
			nagopher.MustNewStringMetric(
				fmt.Sprintf("sensor%d", sensor.Port),
				description,
				"sensor",
			),

			nagopher.MustNewNumericMetric(
				fmt.Sprintf("temperature%d", sensor.Port),
				sensor.Temperature, "", nil, "temperature",
			),
		)
	}

	return metrics, nil
}

func (r *sensorsResource) Collect() error {
	sensorSet, identity, err := collectSensors(r.Session(), r.ThisPlugin().targetUnit)
	if err != nil {
		return err
	}

	if len(sensorSet.Sensors) == 0 {
		return fmt.Errorf("no external sensors discovered")
	}

	r.sensorSet = sensorSet
	r.identity = identity

	return nil
}

func (r *sensorsResource) Session() Session {
	return r.ThisPlugin().ThisModule().session
}

func (r *sensorsResource) ThisPlugin() *sensorsPlugin {
	return r.Resource.Plugin().(*sensorsPlugin)
}

func newSensorsSummarizer(plugin *sensorsPlugin) *sensorsSummarizer {
	return &sensorsSummarizer{
		Summarizer: apccheck.NewSummarizer(plugin),
	}
}

func (s *sensorsSummarizer) Ok(check nagopher.Check) string {
	return fmt.Sprintf(
		"%d external sensors discovered",
		int64(check.Results().GetNumericMetricValue("sensors").OrElse(0)),
	)
}

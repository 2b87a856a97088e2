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
	"math"
	"time"
)

type temperaturePlugin struct {
	apccheck.Plugin

	SensorItem     string
	TargetUnitName string
	OverridesPath  string
	TrendWarning   nagopher.OptionalBounds
	TrendCritical  nagopher.OptionalBounds

	targetUnit  Unit
	overrideErr error
}

type temperatureResource struct {
	apccheck.Resource

	sensor   *Sensor
	store    temperatureStore
	trend    float64
	hasTrend bool
}

// temperatureStore contains the persisted state of the last plugin execution, which is required for calculating the
// temperature trend. The last reading is always stored in Celsius, so changing the target unit between two plugin
// executions can not skew the trend.
type temperatureStore struct {
	LastTemperature float64 `json:"last_temperature"`
	LastSampleTime  int64   `json:"last_sample_time"`
}

type temperatureContext struct {
	apccheck.Context

	warningThreshold  nagopher.OptionalBounds
	criticalThreshold nagopher.OptionalBounds
	targetUnit        Unit
}

type alarmContext struct {
	apccheck.Context
}

type temperatureSummarizer struct {
	apccheck.Summarizer
}

func newTemperaturePlugin() *temperaturePlugin {
	return &temperaturePlugin{
		Plugin: apccheck.NewPlugin("temperature",
			apccheck.PluginDescription("External Temperature Sensor"),
		),
	}
}

func (p *temperaturePlugin) DefineFlags(node apccheck.KingpinNode) {
	node.Arg("sensor", "Specifies the external sensor which should be monitored, which is either the sensor name as "+
		"displayed by the network management card or the number of the universal I/O port the sensor is attached to.").
		Required().StringVar(&p.SensorItem)

	node.Flag("unit", "Specifies the unit in which temperatures are being displayed and all thresholds are being "+
		"interpreted, which can either be celsius or fahrenheit. Readings and device thresholds are converted "+
		"automatically in case the network management card reports them in another unit.").
		Short('u').Default("celsius").EnumVar(&p.TargetUnitName, "celsius", "fahrenheit")

	node.Flag("overrides", "Path to a YAML file with per-sensor threshold overrides. Thresholds passed as command "+
		"line flags always take precedence over this file.").
		Short('o').StringVar(&p.OverridesPath)

	apccheck.NagopherBoundsVar(node.Flag("trend-warning", "Warning threshold for the temperature change per minute "+
		"formatted as Nagios range specifier.").
		Short('t'), &p.TrendWarning)

	apccheck.NagopherBoundsVar(node.Flag("trend-critical", "Critical threshold for the temperature change per minute "+
		"formatted as Nagios range specifier.").
		Short('T'), &p.TrendCritical)
}

func (p *temperaturePlugin) DefineCheck() nagopher.Check {
	p.targetUnit = ParseUnit(p.TargetUnitName)

	override, err := lookupSensorOverride(p.OverridesPath, p.SensorItem)
	p.overrideErr = err

	warningThreshold, err := resolveThreshold(p.WarningThreshold(), override.Warning)
	if err != nil && p.overrideErr == nil {
		p.overrideErr = err
	}

	criticalThreshold, err := resolveThreshold(p.CriticalThreshold(), override.Critical)
	if err != nil && p.overrideErr == nil {
		p.overrideErr = err
	}

	check := nagopher.NewCheck("temperature", newTemperatureSummarizer(p))
	check.AttachResources(newTemperatureResource(p))
	check.AttachContexts(
		newTemperatureContext(p, warningThreshold, criticalThreshold),
		newAlarmContext(p),

		nagopher.NewStringMatchContext("comm", nagopher.StateUnknown(), []string{"established"}),
		nagopher.NewScalarContext("trend",
			nagopher.OptionalBoundsPtr(p.TrendWarning),
			nagopher.OptionalBoundsPtr(p.TrendCritical),
		),
		nagopher.NewStringInfoContext("info_sensor"),
	)

	return check
}

func (p *temperaturePlugin) ThisModule() *nmcModule {
	return p.Plugin.Module().(*nmcModule)
}

func newTemperatureResource(plugin *temperaturePlugin) *temperatureResource {
	resource := &temperatureResource{}
	resource.Resource = apccheck.NewResource(plugin,
		apccheck.ResourcePersistence(plugin.ThisModule().Hostname+"-"+plugin.SensorItem, &resource.store),
	)

	return resource
}

func (r *temperatureResource) Probe(warnings nagopher.WarningCollection) (metrics []nagopher.Metric, _ error) {
	if err := r.Collect(); err != nil {
		return metrics, err
	}

	metrics = append(metrics,
		nagopher.MustNewNumericMetric("temperature", r.sensor.Temperature, "", nil, ""),
		nagopher.MustNewNumericMetric("alarm", float64(r.sensor.AlarmStatus), "", nil, ""),
		nagopher.MustNewStringMetric("comm", CommStatusName(r.sensor.CommStatus), ""),
	)

	if r.hasTrend {
		metrics = append(metrics, nagopher.MustNewNumericMetric("trend", r.trend, "", nil, ""))
	}

	info := fmt.Sprintf("sensor: port %d", r.sensor.Port)
	if r.sensor.Model != "" {
		info += fmt.Sprintf(", model %s", r.sensor.Model)
	}
	if r.sensor.Location != "" {
		info += fmt.Sprintf(", location %s", r.sensor.Location)
	}
	metrics = append(metrics, nagopher.MustNewStringMetric("info_sensor", info, ""))

	return metrics, nil
}

func (r *temperatureResource) Collect() error {
	plugin := r.ThisPlugin()
	if plugin.overrideErr != nil {
		return plugin.overrideErr
	}

	sensorSet, _, err := collectSensors(r.Session(), plugin.targetUnit)
	if err != nil {
		return err
	}

	sensor, err := sensorSet.Lookup(plugin.SensorItem)
	if err != nil {
		return err
	}

	r.sensor = sensor
	r.collectTrend()

	return nil
}

// collectTrend derives the temperature change per minute from the persisted state of the previous plugin execution.
// The very first execution has no previous sample and yields no trend.
func (r *temperatureResource) collectTrend() {
	currentTemperature := ConvertTemperature(r.sensor.Temperature, r.sensor.Unit, UnitCelsius)
	currentSampleTime := time.Now().Unix()

	if r.store.LastSampleTime > 0 {
		elapsed := time.Duration(currentSampleTime-r.store.LastSampleTime) * time.Second
		if trend, ok := temperatureTrend(r.store.LastTemperature, currentTemperature, elapsed); ok {
			r.trend = ConvertTemperatureDelta(trend, UnitCelsius, r.sensor.Unit)
			r.hasTrend = true
		}
	}

	r.store.LastTemperature = currentTemperature
	r.store.LastSampleTime = currentSampleTime
}

func (r *temperatureResource) Session() Session {
	return r.ThisPlugin().ThisModule().session
}

func (r *temperatureResource) ThisPlugin() *temperaturePlugin {
	return r.Resource.Plugin().(*temperaturePlugin)
}

func newTemperatureContext(plugin *temperaturePlugin, warningThreshold nagopher.OptionalBounds, criticalThreshold nagopher.OptionalBounds) *temperatureContext {
	return &temperatureContext{
		Context: apccheck.NewContext(plugin, nagopher.NewScalarContext("temperature",
			nagopher.OptionalBoundsPtr(warningThreshold),
			nagopher.OptionalBoundsPtr(criticalThreshold),
		)),

		warningThreshold:  warningThreshold,
		criticalThreshold: criticalThreshold,
		targetUnit:        plugin.targetUnit,
	}
}

func (c *temperatureContext) Describe(metric nagopher.Metric) string {
	numericMetric, ok := metric.(nagopher.NumericMetric)
	if !ok {
		return c.Context.Describe(metric)
	}

	return fmt.Sprintf("temperature is %s",
		apccheck.FormatTemperature(numericMetric.Value(), c.targetUnit.Suffix()))
}

func (c *temperatureContext) Evaluate(metric nagopher.Metric, resource nagopher.Resource) nagopher.Result {
	numericMetric, ok := metric.(nagopher.NumericMetric)
	if !ok {
		return apccheck.NewInvalidMetricTypeResult(c, metric, resource)
	}

	warningThreshold, criticalThreshold, deviceThresholds := c.effectiveThresholds(resource)

	if !criticalThreshold.Match(numericMetric.Value()) {
		return nagopher.NewResult(
			nagopher.ResultState(nagopher.StateCritical()),
			nagopher.ResultMetric(metric), nagopher.ResultContext(c), nagopher.ResultResource(resource),
			nagopher.ResultHint(c.violationHint(numericMetric.Value(), criticalThreshold, deviceThresholds)),
		)
	} else if !warningThreshold.Match(numericMetric.Value()) {
		return nagopher.NewResult(
			nagopher.ResultState(nagopher.StateWarning()),
			nagopher.ResultMetric(metric), nagopher.ResultContext(c), nagopher.ResultResource(resource),
			nagopher.ResultHint(c.violationHint(numericMetric.Value(), warningThreshold, deviceThresholds)),
		)
	}

	return nagopher.NewResult(
		nagopher.ResultState(nagopher.StateOk()),
		nagopher.ResultMetric(metric), nagopher.ResultContext(c), nagopher.ResultResource(resource),
	)
}

// effectiveThresholds returns the thresholds which should be applied to the temperature reading. User-defined
// thresholds from the command line or the overrides file always win, the alarm thresholds configured on the network
// management card itself only apply when the user did not define anything at all.
func (c *temperatureContext) effectiveThresholds(resource nagopher.Resource) (nagopher.Bounds, nagopher.Bounds, bool) {
	emptyBounds := nagopher.NewBounds()
	warningThreshold := c.warningThreshold.OrElse(emptyBounds)
	criticalThreshold := c.criticalThreshold.OrElse(emptyBounds)

	if nagopher.OptionalBoundsPtr(c.warningThreshold) != nil || nagopher.OptionalBoundsPtr(c.criticalThreshold) != nil {
		return warningThreshold, criticalThreshold, false
	}

	temperatureResource, ok := resource.(*temperatureResource)
	if !ok || temperatureResource.sensor == nil || temperatureResource.sensor.DeviceLevels == nil {
		return warningThreshold, criticalThreshold, false
	}

	deviceLevels := temperatureResource.sensor.DeviceLevels
	return nagopher.NewBounds(nagopher.UpperBound(deviceLevels.High)),
		nagopher.NewBounds(nagopher.UpperBound(deviceLevels.Max)),
		true
}

func (c *temperatureContext) violationHint(value float64, threshold nagopher.Bounds, deviceThresholds bool) string {
	hint := threshold.ViolationHint()

	upperBound := threshold.Upper().OrElse(math.NaN())
	if !math.IsNaN(upperBound) && value > upperBound {
		hint = fmt.Sprintf("greater than %s", apccheck.FormatTemperature(upperBound, c.targetUnit.Suffix()))
	}

	if deviceThresholds {
		hint += " (device threshold)"
	}

	return hint
}

func newAlarmContext(plugin *temperaturePlugin) *alarmContext {
	return &alarmContext{
		Context: apccheck.NewContext(plugin, nagopher.NewBaseContext("alarm", "%<value>s")),
	}
}

func (c *alarmContext) Describe(metric nagopher.Metric) string {
	numericMetric, ok := metric.(nagopher.NumericMetric)
	if !ok {
		return c.Context.Describe(metric)
	}

	return fmt.Sprintf("device alarm status is %s", AlarmStatusName(int(numericMetric.Value())))
}

func (c *alarmContext) Evaluate(metric nagopher.Metric, resource nagopher.Resource) nagopher.Result {
	numericMetric, ok := metric.(nagopher.NumericMetric)
	if !ok {
		return apccheck.NewInvalidMetricTypeResult(c, metric, resource)
	}

	alarmStatus := int(numericMetric.Value())
	state := nagopher.StateUnknown()
	switch alarmStatus {
	case AlarmStatusNormal:
		state = nagopher.StateOk()
	case AlarmStatusWarning:
		state = nagopher.StateWarning()
	case AlarmStatusCritical:
		state = nagopher.StateCritical()
	}

	if alarmStatus == AlarmStatusNormal {
		return nagopher.NewResult(
			nagopher.ResultState(state),
			nagopher.ResultMetric(metric), nagopher.ResultContext(c), nagopher.ResultResource(resource),
		)
	}

	return nagopher.NewResult(
		nagopher.ResultState(state),
		nagopher.ResultMetric(metric), nagopher.ResultContext(c), nagopher.ResultResource(resource),
		nagopher.ResultHint(fmt.Sprintf("device reports %s alarm", AlarmStatusName(alarmStatus))),
	)
}

func (c *alarmContext) Performance(metric nagopher.Metric, resource nagopher.Resource) (nagopher.OptionalPerfData, error) {
	return nagopher.OptionalPerfData{}, nil
}

func newTemperatureSummarizer(plugin *temperaturePlugin) *temperatureSummarizer {
	return &temperatureSummarizer{
		Summarizer: apccheck.NewSummarizer(plugin),
	}
}

func (s *temperatureSummarizer) Ok(check nagopher.Check) string {
	resultCollection := check.Results()
	plugin := s.Plugin().(*temperaturePlugin)

	summary := fmt.Sprintf("%s is %s", plugin.SensorItem, apccheck.FormatTemperature(
		resultCollection.GetNumericMetricValue("temperature").OrElse(math.NaN()),
		plugin.targetUnit.Suffix(),
	))

	trend := resultCollection.GetNumericMetricValue("trend").OrElse(math.NaN())
	if !math.IsNaN(trend) && trend != 0 {
		summary += fmt.Sprintf(", trend %+.1f%s/min", trend, plugin.targetUnit.Suffix())
	}

	return summary
}

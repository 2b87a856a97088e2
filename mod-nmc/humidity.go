package modnmc

import (
	"fmt"
	"github.com/snapserv/apccheck/apccheck"
	"github.com/snapserv/nagopher"
	"math"
)

type humidityPlugin struct {
	apccheck.Plugin

	SensorItem    string
	OverridesPath string

	overrideErr error
}

type humidityResource struct {
	apccheck.Resource

	sensor *Sensor
}

type humiditySummarizer struct {
	apccheck.Summarizer
}

func newHumidityPlugin() *humidityPlugin {
	return &humidityPlugin{
		Plugin: apccheck.NewPlugin("humidity",
			apccheck.PluginDescription("External Humidity Sensor"),
		),
	}
}

func (p *humidityPlugin) DefineFlags(node apccheck.KingpinNode) {
	node.Arg("sensor", "Specifies the external sensor which should be monitored, which is either the sensor name as "+
		"displayed by the network management card or the number of the universal I/O port the sensor is attached to.").
		Required().StringVar(&p.SensorItem)

	node.Flag("overrides", "Path to a YAML file with per-sensor threshold overrides. Thresholds passed as command "+
		"line flags always take precedence over this file.").
		Short('o').StringVar(&p.OverridesPath)
}

func (p *humidityPlugin) DefineCheck() nagopher.Check {
	override, err := lookupSensorOverride(p.OverridesPath, p.SensorItem)
	p.overrideErr = err

	warningThreshold, err := resolveThreshold(p.WarningThreshold(), override.HumidityWarning)
	if err != nil && p.overrideErr == nil {
		p.overrideErr = err
	}

	criticalThreshold, err := resolveThreshold(p.CriticalThreshold(), override.HumidityCritical)
	if err != nil && p.overrideErr == nil {
		p.overrideErr = err
	}

	check := nagopher.NewCheck("humidity", newHumiditySummarizer(p))
	check.AttachResources(newHumidityResource(p))
	check.AttachContexts(
		nagopher.NewScalarContext("humidity",
			nagopher.OptionalBoundsPtr(warningThreshold),
			nagopher.OptionalBoundsPtr(criticalThreshold),
		),

		nagopher.NewStringMatchContext("comm", nagopher.StateUnknown(), []string{"established"}),
	)

	return check
}

func (p *humidityPlugin) ThisModule() *nmcModule {
	return p.Plugin.Module().(*nmcModule)
}

func newHumidityResource(plugin *humidityPlugin) *humidityResource {
	return &humidityResource{
		Resource: apccheck.NewResource(plugin),
	}
}

func (r *humidityResource) Probe(warnings nagopher.WarningCollection) (metrics []nagopher.Metric, _ error) {
	valueRange := nagopher.NewBounds(nagopher.LowerBound(0), nagopher.UpperBound(100))

	if err := r.Collect(); err != nil {
		return metrics, err
	}

	metrics = append(metrics,
		nagopher.MustNewNumericMetric("humidity", r.sensor.Humidity, "%", &valueRange, ""),
		nagopher.MustNewStringMetric("comm", CommStatusName(r.sensor.CommStatus), ""),
	)

	return metrics, nil
}

func (r *humidityResource) Collect() error {
	plugin := r.ThisPlugin()
	if plugin.overrideErr != nil {
		return plugin.overrideErr
	}

	sensorSet, _, err := collectSensors(r.Session(), UnitCelsius)
	if err != nil {
		return err
	}

	sensor, err := sensorSet.Lookup(plugin.SensorItem)
	if err != nil {
		return err
	}

	if !sensor.HasHumidity {
		return fmt.Errorf("sensor [%s] does not provide humidity readings", plugin.SensorItem)
	}

	r.sensor = sensor

	return nil
}

func (r *humidityResource) Session() Session {
	return r.ThisPlugin().ThisModule().session
}

func (r *humidityResource) ThisPlugin() *humidityPlugin {
	return r.Resource.Plugin().(*humidityPlugin)
}

func newHumiditySummarizer(plugin *humidityPlugin) *humiditySummarizer {
	return &humiditySummarizer{
		Summarizer: apccheck.NewSummarizer(plugin),
	}
}

func (s *humiditySummarizer) Ok(check nagopher.Check) string {
	return fmt.Sprintf(
		"%s humidity is %.0f%%",
		s.Plugin().(*humidityPlugin).SensorItem,
		check.Results().GetNumericMetricValue("humidity").OrElse(math.NaN()),
	)
}

package influxdb

import (
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"

	"github.com/hearthd/hearthd/internal/export"
)

// measurementRoomSample is the measurement name for room observations.
const measurementRoomSample = "room_sample"

// Publish writes one room observation as a point. Writes are batched
// and flushed asynchronously by the underlying write API, so this
// never blocks the caller. Observations received while disconnected
// are dropped.
func (c *Client) Publish(obs export.Observation) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]any{
		"temperature_deci": int64(obs.CorrectedDeci),
		"heater_on":        obs.HeaterOn,
	}
	if obs.TargetDeci != nil {
		fields["target_deci"] = int64(*obs.TargetDeci)
	}
	if obs.HumidityDeci != nil {
		fields["humidity_deci"] = int64(*obs.HumidityDeci)
	}

	point := influxdb2.NewPoint(
		measurementRoomSample,
		map[string]string{"room": obs.Room},
		fields,
		obs.Time,
	)

	c.writeAPI.WritePoint(point)
}

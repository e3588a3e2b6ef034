// Package influxdb mirrors accepted climate readings into InfluxDB v2.
//
// SQLite remains the system of record; the mirror exists for dashboards.
// Points are written through the non-blocking batched write API, so a slow
// or unreachable InfluxDB never delays a sampling cycle. Write failures
// surface asynchronously through SetOnError.
//
// Measurements:
//
//	room_climate,room_id=0.1  temperature,humidity,voltage,health
//	aircon,room_id=airco0     power,mode,temperature_inside,temperature_target,
//	                          temperature_outside,compressor_freq,target_fallback
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	sched.SetMirror(client)
package influxdb

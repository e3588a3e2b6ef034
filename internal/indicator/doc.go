// Package indicator shows the health state of each room.
//
// A room's state is one of the three LED colours from package health. Two
// sinks are provided and may be combined with Multi:
//   - FileSink copies <asset_dir>/<colour>.png to <output_dir>/<room_id>.png,
//     where the status web page picks it up
//   - MQTTSink publishes the colour as a retained message on
//     graylogic/climate/room/<room_id>/led
//
// Indicator updates are cosmetic. Every failure is logged at debug level and
// otherwise ignored; Set never returns an error.
package indicator

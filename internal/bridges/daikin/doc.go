// Package daikin reads Daikin air-conditioners through their wireless LAN
// adapter.
//
// The adapter answers plain HTTP GET requests with a comma separated body:
//
//	GET /aircon/get_sensor_info
//	ret=OK,htemp=21.0,hhum=-,otemp=15.0,err=0,cmpfreq=30
//
//	GET /aircon/get_control_info
//	ret=OK,pow=1,mode=3,adv=,stemp=22.5,shum=0,...
//
// One poll issues both requests and combines them into a single
// device.ApplianceReading. In fan mode the adapter reports the target
// temperature as "--" and in dry mode as "M"; the reading then uses the
// inside temperature as target and is still accepted. An idle outdoor unit
// reports otemp (and sometimes cmpfreq) as "-"; those values are flagged
// missing and stored as NULL.
//
// Transport failures wrap device.ErrTimeout or device.ErrConnect, unparsable
// answers wrap device.ErrMalformed.
package daikin

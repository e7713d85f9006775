package main

import "github.com/dronebus-protocol/dronebus-go/pkg/datatype"

// Demo data types for the playground.

// sensorReading is the broadcast message published with the pub command.
type sensorReading struct {
	Seq   uint32  `cbor:"1,keyasint"`
	Value float64 `cbor:"2,keyasint"`
}

func (sensorReading) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "demo.SensorReading", Kind: datatype.KindMessage, PortID: 100}
}

// echoRequest and echoResponse form the service exercised by the call
// command. The peer answers with the text uppercased.
type echoRequest struct {
	Text string `cbor:"1,keyasint"`
}

func (echoRequest) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "demo.Echo", Kind: datatype.KindService, PortID: 200}
}

type echoResponse struct {
	Text string `cbor:"1,keyasint"`
}

func (echoResponse) DataType() datatype.Descriptor {
	return datatype.Descriptor{Name: "demo.Echo", Kind: datatype.KindService, PortID: 200}
}

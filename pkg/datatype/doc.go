// Package datatype defines the static descriptors that parameterize the
// node's generic endpoint factories, and the CBOR codec used for payloads.
//
// Every message and service type implements the Message interface by
// returning its Descriptor: the full data-type name, whether it is a
// subject or a service, the port ID it lives on, and its default transmit
// timeout. The descriptor is fixed per type; a request and its response
// share the service descriptor's port.
package datatype

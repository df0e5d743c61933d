// Package wire implements the upstream binary protocol: length-prefixed
// message framing and the protobuf encoding of the chat payloads carried
// inside frames.
//
// Every message on the wire is a frame:
//
//	[tag: 1 byte][length: 4 bytes, big-endian][payload: length bytes]
//
// The tag byte is a bitfield. Bit 0 marks a gzip-compressed payload; the
// remaining bits select the frame kind: KindProto frames carry a protobuf
// message, KindJSON frames carry stream control data (an empty JSON object
// terminates the stream, any other object is an upstream error report).
// Unknown kinds are skipped by consumers for forward compatibility.
//
// The framing layer performs no payload interpretation and is usable
// independently of the payload schema.
package wire

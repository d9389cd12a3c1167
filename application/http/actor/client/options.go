package client

import (
	"silq/application/http"
	"silq/application/http/transfer"
)

type Options struct {
	Send    SendOptions
	Receive ReceiveOptions
	Frame   FrameOptions

	ExtraTransferCoders []transfer.Coder

	// DriverErrorSink receives failures of a connection after its response
	// head was delivered. They are logged either way.
	DriverErrorSink func(err error)
}

type SendOptions struct {
	Encode http.EncodeOptions
}

type ReceiveOptions struct {
	Decode http.DecodeOptions

	// UseReceivedReasonPhrase uses reason phrase from response.
	// If false, the reason phrase will instead be filled with default value for the status code.
	// An empty received phrase is always filled.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4-9
	UseReceivedReasonPhrase bool
}

type FrameOptions struct {
	// MaxFrameSize caps the data of a single body frame.
	// Chunks bigger than this are split.
	MaxFrameSize uint
}

const DefaultMaxFrameSize = 16 * 1024

func DefaultOptions() Options {
	return Options{
		Send:    SendOptions{Encode: http.DefaultEncodeOptions},
		Receive: ReceiveOptions{Decode: http.DefaultDecodeOptions, UseReceivedReasonPhrase: true},
		Frame:   FrameOptions{MaxFrameSize: DefaultMaxFrameSize},
	}
}

func (o Options) maxFrameSize() uint {
	if o.Frame.MaxFrameSize == 0 {
		return DefaultMaxFrameSize
	}
	return o.Frame.MaxFrameSize
}

package server

import (
	"silq/application/http"
	"silq/application/http/semantic"
	"silq/application/http/transfer"
)

type Options struct {
	Encode http.EncodeOptions
	Decode http.DecodeOptions

	Parse semantic.ParseRequestOptions

	ExtraTransferCoders []transfer.Coder
}

func DefaultOptions() Options {
	return Options{
		Encode: http.DefaultEncodeOptions,
		Decode: http.DefaultDecodeOptions,
	}
}

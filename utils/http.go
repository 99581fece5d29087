package utils

import (
	"net/http"

	"github.com/galleryscreen/mosaic/shared"
)

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Add("User-Agent", shared.USER_AGENT)
	if uart.RT != nil {
		return uart.RT.RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}

func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &UARoundtripper{},
	}
}

package discord

import "net/http"

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripFunc) *Client {
	c := NewClient("https://discord.example/api/v10", "tok", 0)
	c.http = &httpClient{inner: &http.Client{Transport: fn}}
	return c
}

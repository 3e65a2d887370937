package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrMalformedMarket = errors.New("malformed market metadata")
	ErrMarketClosed    = errors.New("market closed for trading")
	ErrUnavailable     = errors.New("price unavailable")
	ErrImplausible     = errors.New("implausible price")
	ErrStalePrice      = errors.New("price moved beyond tolerance")
	ErrRejected        = errors.New("order rejected")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrWSDisconnect    = errors.New("websocket disconnected")
)

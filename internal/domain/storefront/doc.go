// Package storefront holds the shopper-facing model: the cart as the
// commerce backend reports it, delivery addresses, orders, the checkout
// state machine and the failures that cross the client boundary.
//
// The commerce backend owns every record here. Nothing in this package
// persists state; gateways defined in ports.go fetch and mutate it remotely.
package storefront

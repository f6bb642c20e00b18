package handler

// CountData carries the number of items in the cart
type CountData struct {
	Count int `json:"count"`
}

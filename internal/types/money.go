// README: Common value objects shared across modules.
package types

type ID string

// Point is a WGS84 coordinate. JSON field names follow what the mobile
// clients already send.
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

package entities

// GeoCoordinate represents the device's last known position. It is persisted
// as JSON under a well-known storage key and read on every outbound query;
// stale-but-available is acceptable, there is no TTL.
type GeoCoordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationOutcome is what local subscribers receive when a server-initiated
// location request resolves.
type LocationOutcome struct {
	Granted    bool           `json:"granted"`
	Coordinate *GeoCoordinate `json:"coordinate,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

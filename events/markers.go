package events

import "github.com/olablt/gio-events/tiles"

// Marker is a map pin bound to one event. Key is the event's index in the
// feed, so it stays the same across redraws.
type Marker struct {
	Key      int
	Position tiles.LatLng
	Title    string
}

// Markers places one marker per event, in feed order. Events sharing a venue
// get separate markers.
func Markers(list []Event) []Marker {
	markers := make([]Marker, len(list))
	for i, e := range list {
		markers[i] = Marker{
			Key:      i,
			Position: e.Position(),
			Title:    e.Title,
		}
	}
	return markers
}

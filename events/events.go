package events

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olablt/gio-events/tiles"
)

//go:embed events.json
var defaultFeed []byte

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Event is one record of the event feed. Only Lat and Long are needed to place
// a marker; the rest is carried for display.
type Event struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	DisplayName  string    `json:"displayName"`
	Address      string    `json:"address"`
	Description  string    `json:"description"`
	ExternalLink string    `json:"externalLink"`
	OwnerID      int       `json:"ownerId"`
	Bookmarked   int       `json:"bookmarked"`
	Attending    int       `json:"attending"`
	FriendEvent  int       `json:"friendEvent"`
	Lat          float64   `json:"lat"`
	Long         float64   `json:"long"`
	TimeCaptured time.Time `json:"timeCaptured"`
	Sessions     []Session `json:"sessions"`
}

type Session struct {
	ID            int          `json:"id"`
	StartDateTime time.Time    `json:"startDateTime"`
	EndDateTime   time.Time    `json:"endDateTime"`
	Recurrence    []Recurrence `json:"recurrence"`
}

// Recurrence fields are all optional in the feed.
type Recurrence struct {
	Period         *string `json:"period"`
	DayOfWeek      *string `json:"dayOfWeek"`
	DayOfMonth     *int    `json:"dayOfMonth"`
	StartTime      *string `json:"startTime"`
	EndTime        *string `json:"endTime"`
	RecurrenceType *string `json:"recurrenceType"`
}

// Position returns the event location.
func (e Event) Position() tiles.LatLng {
	return tiles.LatLng{Lat: e.Lat, Lng: e.Long}
}

// Load decodes a JSON array of events. A record with out of range
// coordinates fails the whole load.
func Load(r io.Reader) ([]Event, error) {
	var list []Event
	if err := json.NewDecoder(r).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	for i, e := range list {
		if !e.Position().Valid() {
			return nil, fmt.Errorf("event %d (id %d) at %v,%v: %w", i, e.ID, e.Lat, e.Long, ErrInvalidCoordinates)
		}
	}
	return list, nil
}

// LoadFile reads events from a JSON file.
func LoadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Default returns the bundled event feed.
func Default() ([]Event, error) {
	return Load(bytes.NewReader(defaultFeed))
}

package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/cleanspeed/types/trip"
)

// TripSavedFeed is emitted for every completed trip that is successfully persisted.
// Sends block until every subscriber has received, so subscribers must keep draining.
var TripSavedFeed = event.FeedOf[*trip.CompletedTrip]{}

package webd

import (
	"encoding/json"

	"github.com/olahol/melody"
	"github.com/rotblauer/cleanspeed/api"
	"github.com/rotblauer/cleanspeed/events"
	"github.com/rotblauer/cleanspeed/types/trip"
)

type websocketAction string

var (
	websocketActionTracking  websocketAction = "tracking"
	websocketActionTripSaved websocketAction = "trip_saved"
)

type broadcast struct {
	Action   websocketAction        `json:"action"`
	Tracking *trip.TrackingSnapshot `json:"tracking,omitempty"`
	Display  *api.Display           `json:"display,omitempty"`
	Trip     *trip.CompletedTrip    `json:"trip,omitempty"`
}

func (s *WebDaemon) trackingMessage(snap trip.TrackingSnapshot) ([]byte, error) {
	display := api.NewDisplay(snap, s.app.Preferences().Units)
	return json.Marshal(broadcast{
		Action:   websocketActionTracking,
		Tracking: &snap,
		Display:  &display,
	})
}

// initMelody sets up the websocket handler.
// New clients are sent the current tracking state.
func (s *WebDaemon) initMelody() {
	s.melodyInstance = melody.New()

	s.melodyInstance.HandleConnect(func(session *melody.Session) {
		s.logger.Debug("Websocket connected", "remote", session.Request.RemoteAddr)
		b, err := s.trackingMessage(s.app.Tracker().Snapshot())
		if err != nil {
			s.logger.Error("Failed to marshal tracking", "error", err)
			return
		}
		_ = session.Write(b)
	})

	// Clients have nothing to say. Log and drop.
	s.melodyInstance.HandleMessage(func(session *melody.Session, msg []byte) {
		s.logger.Debug("Websocket message", "remote", session.Request.RemoteAddr, "msg", string(msg))
	})

	s.melodyInstance.HandleDisconnect(func(session *melody.Session) {
		s.logger.Debug("Websocket disconnected", "remote", session.Request.RemoteAddr)
	})

	s.melodyInstance.HandleError(func(session *melody.Session, e error) {
		s.logger.Warn("Websocket error", "error", e, "remote", session.Request.RemoteAddr)
	})
}

// broadcastUpdates relays tracker snapshots and saved trips to all websocket clients
// until the returned func is called.
func (s *WebDaemon) broadcastUpdates() (unsubscribe func()) {
	snaps := make(chan trip.TrackingSnapshot, 16)
	snapSub := s.app.Tracker().Subscribe(snaps)
	saved := make(chan *trip.CompletedTrip, 4)
	savedSub := events.TripSavedFeed.Subscribe(saved)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer snapSub.Unsubscribe()
		defer savedSub.Unsubscribe()
		for {
			var b []byte
			var err error
			select {
			case snap := <-snaps:
				b, err = s.trackingMessage(snap)
			case t := <-saved:
				summary := t.Summary()
				b, err = json.Marshal(broadcast{
					Action: websocketActionTripSaved,
					Trip:   &summary,
				})
			case err := <-snapSub.Err():
				if err != nil {
					s.logger.Error("Tracking subscription failed", "error", err)
				}
				return
			case err := <-savedSub.Err():
				if err != nil {
					s.logger.Error("Saved trip subscription failed", "error", err)
				}
				return
			}
			if err != nil {
				s.logger.Error("Failed to marshal broadcast", "error", err)
				continue
			}
			if s.melodyInstance.IsClosed() {
				continue
			}
			if err := s.melodyInstance.Broadcast(b); err != nil {
				s.logger.Warn("Failed to broadcast", "error", err)
			}
		}
	}()
	return func() {
		snapSub.Unsubscribe()
		savedSub.Unsubscribe()
		<-done
	}
}

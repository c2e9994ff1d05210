package state

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/rotblauer/cleanspeed/units"
)

var (
	prefUnitsKey     = []byte("speed_unit")
	prefKeepAwakeKey = []byte("keep_screen_on")
)

// Preferences are the user's display settings.
type Preferences struct {
	Units     units.System `json:"units"`
	KeepAwake bool         `json:"keep_awake"`
}

func DefaultPreferences() Preferences {
	return Preferences{
		Units:     units.DefaultSystem,
		KeepAwake: false,
	}
}

// Prefs holds the current preferences in memory and persists every change.
type Prefs struct {
	state  *State
	logger *slog.Logger

	mu      sync.Mutex
	current Preferences
	feed    event.FeedOf[Preferences]
}

// NewPrefs loads stored preferences, falling back to the defaults
// for anything missing or unreadable.
func NewPrefs(s *State) (*Prefs, error) {
	p := &Prefs{
		state:   s,
		logger:  slog.With("d", "prefs"),
		current: DefaultPreferences(),
	}

	raw, err := s.readKV(prefsBucket, prefUnitsKey)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		if err := p.current.Units.UnmarshalText(raw); err != nil {
			p.logger.Warn("Ignoring stored unit system", "error", err)
			p.current.Units = units.DefaultSystem
		}
	}

	raw, err = s.readKV(prefsBucket, prefKeepAwakeKey)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		v, err := strconv.ParseBool(string(raw))
		if err != nil {
			p.logger.Warn("Ignoring stored keep awake", "error", err)
		} else {
			p.current.KeepAwake = v
		}
	}
	return p, nil
}

func (p *Prefs) Get() Preferences {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe delivers the preferences after every change.
func (p *Prefs) Subscribe(ch chan<- Preferences) event.Subscription {
	return p.feed.Subscribe(ch)
}

func (p *Prefs) SetUnits(sys units.System) error {
	text, err := sys.MarshalText()
	if err != nil {
		return err
	}
	if _, err := units.ParseSystem(string(text)); err != nil {
		return err
	}
	return p.set(prefUnitsKey, text, func(c *Preferences) { c.Units = sys })
}

func (p *Prefs) SetKeepAwake(v bool) error {
	return p.set(prefKeepAwakeKey, []byte(strconv.FormatBool(v)), func(c *Preferences) { c.KeepAwake = v })
}

func (p *Prefs) set(key, value []byte, apply func(*Preferences)) error {
	p.mu.Lock()
	if err := p.state.storeKV(prefsBucket, key, value); err != nil {
		p.mu.Unlock()
		return fmt.Errorf("store %s: %w", key, err)
	}
	apply(&p.current)
	current := p.current
	p.mu.Unlock()

	p.logger.Info("Preferences updated", "units", current.Units, "keep_awake", current.KeepAwake)
	p.feed.Send(current)
	return nil
}

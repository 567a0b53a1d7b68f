// Package model contains domain models passed between layers.
package model

import "fmt"

// Speed is the time-control class of a game, ordered fastest to slowest.
type Speed uint8

// Known speeds. The zero value is SpeedUnknown so a game decoded without a
// speed is distinguishable from an ultraBullet game.
const (
	SpeedUnknown Speed = iota
	UltraBullet
	Bullet
	Blitz
	Rapid
	Classical
	Correspondence
)

// NumSpeeds is the size of the closed Speed set.
const NumSpeeds = 6

var speedNames = [Correspondence + 1]string{
	UltraBullet:    "ultraBullet",
	Bullet:         "bullet",
	Blitz:          "blitz",
	Rapid:          "rapid",
	Classical:      "classical",
	Correspondence: "correspondence",
}

// Speeds returns every speed, fastest first.
func Speeds() []Speed {
	return []Speed{UltraBullet, Bullet, Blitz, Rapid, Classical, Correspondence}
}

// Valid reports whether s is one of the known speeds.
func (s Speed) Valid() bool { return s >= UltraBullet && s <= Correspondence }

func (s Speed) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Speed(%d)", uint8(s))
	}
	return speedNames[s]
}

// MarshalText uses the lichess API spelling.
func (s Speed) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid speed %d", uint8(s))
	}
	return []byte(speedNames[s]), nil
}

// UnmarshalText accepts the lichess API spelling.
func (s *Speed) UnmarshalText(text []byte) error {
	v, err := ParseSpeed(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseSpeed maps a lichess speed name to a Speed.
func ParseSpeed(name string) (Speed, error) {
	for _, s := range Speeds() {
		if speedNames[s] == name {
			return s, nil
		}
	}
	return SpeedUnknown, fmt.Errorf("unknown speed %q", name)
}

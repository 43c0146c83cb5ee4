package fitdecode

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/kit/semicircles"
	"github.com/muktihari/fit/profile/basetype"
	"github.com/muktihari/fit/profile/filedef"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
)

var errNoFITSequence = errors.New("no FIT sequence found")

// FITParser reads Garmin FIT activity files. Chained FIT sequences in one
// file are concatenated in order.
type FITParser struct{}

// Parse implements ContainerParser. The trailing CRC is not verified: files
// whose only damage is a bad checksum still decode.
func (FITParser) Parse(data []byte) (Container, error) {
	dec := decoder.New(bytes.NewReader(data), decoder.WithIgnoreChecksum())

	var (
		c         Container
		sequences int
	)
	for dec.Next() {
		fit, err := dec.Decode()
		if err != nil {
			return Container{}, fmt.Errorf("decode sequence %d: %w", sequences, err)
		}
		sequences++

		activity := filedef.NewActivity(fit.Messages...)
		for _, rec := range activity.Records {
			c.Records = append(c.Records, recordFromMesg(rec))
		}
		for _, ses := range activity.Sessions {
			c.Sessions = append(c.Sessions, sessionFromMesg(ses))
		}
	}
	if sequences == 0 {
		return Container{}, errNoFITSequence
	}
	return c, nil
}

func recordFromMesg(m *mesgdef.Record) Record {
	var r Record
	r.Timestamp = timePtr(m.Timestamp)
	if m.PositionLat != basetype.Sint32Invalid && m.PositionLong != basetype.Sint32Invalid {
		lat := semicircles.ToDegrees(m.PositionLat)
		lon := semicircles.ToDegrees(m.PositionLong)
		r.Lat, r.Lon = &lat, &lon
	}
	if m.Distance != basetype.Uint32Invalid {
		d := float64(m.Distance) / 100
		r.Distance = &d
	}
	return r
}

func sessionFromMesg(m *mesgdef.Session) Session {
	var s Session
	if m.Sport != typedef.SportInvalid {
		sport := m.Sport.String()
		s.Sport = &sport
	}
	s.StartTime = timePtr(m.StartTime)
	s.Timestamp = timePtr(m.Timestamp)
	if m.TotalDistance != basetype.Uint32Invalid {
		d := float64(m.TotalDistance) / 100
		s.TotalDistance = &d
	}
	return s
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

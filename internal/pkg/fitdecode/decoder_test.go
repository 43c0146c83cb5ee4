package fitdecode

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/kit/semicircles"
	"github.com/muktihari/fit/profile/filedef"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

var track = []domain.GeoPoint{
	{Lat: 43.2630, Lon: -2.9350},
	{Lat: 43.2641, Lon: -2.9338},
	{Lat: 43.2655, Lon: -2.9321},
}

type fitOptions struct {
	withSession   bool
	withPositions bool
}

func encodeActivity(t *testing.T, opts fitOptions) []byte {
	t.Helper()

	act := filedef.NewActivity()
	act.FileId = *mesgdef.NewFileId(nil).
		SetType(typedef.FileActivity).
		SetTimeCreated(t0).
		SetManufacturer(typedef.ManufacturerDevelopment).
		SetProduct(0)

	for i, p := range track {
		rec := mesgdef.NewRecord(nil).
			SetTimestamp(t0.Add(time.Duration(i) * time.Minute)).
			SetDistance(uint32(i * 50000))
		if opts.withPositions {
			rec.SetPositionLat(semicircles.ToSemicircles(p.Lat)).
				SetPositionLong(semicircles.ToSemicircles(p.Lon))
		}
		act.Records = append(act.Records, rec)
	}

	if opts.withSession {
		act.Sessions = append(act.Sessions, mesgdef.NewSession(nil).
			SetSport(typedef.SportRunning).
			SetStartTime(t0).
			SetTimestamp(t0.Add(30*time.Minute)).
			SetTotalDistance(123456))
	}

	fit := act.ToFIT(nil)
	var buf bytes.Buffer
	require.NoError(t, encoder.New(&buf).Encode(&fit))
	return buf.Bytes()
}

func TestDecoder_DecodeFIT(t *testing.T) {
	data := encodeActivity(t, fitOptions{withSession: true, withPositions: true})

	got, err := NewDecoder(nil).Decode("morning.fit", data)
	require.NoError(t, err)

	assert.Equal(t, "morning.fit", got.Name)
	assert.Equal(t, domain.SportRunning, got.Sport)
	assert.True(t, t0.Equal(got.StartedAt), "started at %s", got.StartedAt)
	assert.True(t, t0.Add(30*time.Minute).Equal(got.EndedAt), "ended at %s", got.EndedAt)
	assert.Equal(t, 1235.0, got.TotalDistanceMeters)

	require.Len(t, got.Points, len(track))
	for i, p := range track {
		assert.InDelta(t, p.Lat, got.Points[i].Lat, 1e-6)
		assert.InDelta(t, p.Lon, got.Points[i].Lon, 1e-6)
	}
	assert.InDelta(t, 43.2642, got.Centroid.Lat, 1e-4)
}

func TestDecoder_DecodeFITWithoutSession(t *testing.T) {
	data := encodeActivity(t, fitOptions{withPositions: true})

	got, err := NewDecoder(FITParser{}).Decode("nosession.fit", data)
	require.NoError(t, err)

	assert.Equal(t, domain.SportOther, got.Sport)
	assert.True(t, t0.Add(2*time.Minute).Equal(got.EndedAt))
	assert.Equal(t, 1000.0, got.TotalDistanceMeters)
}

func TestDecoder_DecodeFITWithBadChecksum(t *testing.T) {
	data := encodeActivity(t, fitOptions{withSession: true, withPositions: true})
	data[len(data)-1] ^= 0xFF
	data[len(data)-2] ^= 0xFF

	got, err := NewDecoder(nil).Decode("crc.fit", data)
	require.NoError(t, err)
	assert.Len(t, got.Points, len(track))
	assert.Equal(t, domain.SportRunning, got.Sport)
}

func TestDecoder_DecodeFITWithoutPositions(t *testing.T) {
	data := encodeActivity(t, fitOptions{withSession: true})

	_, err := NewDecoder(nil).Decode("indoor.fit", data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoGPSData))
}

func TestDecoder_Malformed(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("definitely not a FIT file")} {
		_, err := NewDecoder(nil).Decode("junk.fit", data)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedContainer)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, KindMalformedContainer, de.Kind)
		assert.Equal(t, "Could not parse junk.fit", de.Message())
	}
}

type stubParser struct {
	c   Container
	err error
}

func (s stubParser) Parse([]byte) (Container, error) { return s.c, s.err }

func TestDecoder_UsesParser(t *testing.T) {
	d := NewDecoder(stubParser{c: Container{Records: []Record{gpsRecord(10, 20, 0, 0)}}})
	got, err := d.Decode("stub.fit", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.GeoPoint{Lat: 10, Lon: 20}, got.Centroid)

	d = NewDecoder(stubParser{err: errors.New("boom")})
	_, err = d.Decode("stub.fit", nil)
	assert.ErrorIs(t, err, ErrMalformedContainer)
	assert.ErrorContains(t, err, "boom")
}

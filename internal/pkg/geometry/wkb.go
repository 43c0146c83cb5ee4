package geometry

import (
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

const (
	wkbPoint      = 1
	wkbLineString = 2

	ewkbZ    = 0x80000000
	ewkbM    = 0x40000000
	ewkbSRID = 0x20000000
)

// wkbReader walks a WKB buffer. Reads past the end set ok to false instead
// of panicking; callers check ok after each step.
type wkbReader struct {
	buf   []byte
	off   int
	order binary.ByteOrder
	ok    bool
}

func (r *wkbReader) uint32() uint32 {
	if !r.ok || r.off+4 > len(r.buf) {
		r.ok = false
		return 0
	}
	v := r.order.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *wkbReader) float64() float64 {
	if !r.ok || r.off+8 > len(r.buf) {
		r.ok = false
		return 0
	}
	v := math.Float64frombits(r.order.Uint64(r.buf[r.off:]))
	r.off += 8
	return v
}

func (r *wkbReader) skip(n int) {
	if !r.ok || r.off+n > len(r.buf) {
		r.ok = false
		return
	}
	r.off += n
}

func (r *wkbReader) remaining() int {
	return len(r.buf) - r.off
}

// wkbHeader is the parsed byte-order, type and optional SRID prefix.
type wkbHeader struct {
	geomType uint32
	extra    int // bytes of Z/M values per point
}

// openWKB decodes the hex string and reads the geometry header. Malformed
// hex returns a nil reader.
func openWKB(hexStr string) (*wkbReader, wkbHeader) {
	buf, err := hex.DecodeString(hexStr)
	if err != nil || len(buf) < 5 {
		return nil, wkbHeader{}
	}
	r := &wkbReader{buf: buf, off: 1, order: binary.BigEndian, ok: true}
	if buf[0] == 1 {
		r.order = binary.LittleEndian
	}
	typ := r.uint32()
	h := wkbHeader{geomType: typ & 0xff}
	if typ&ewkbZ != 0 {
		h.extra += 8
	}
	if typ&ewkbM != 0 {
		h.extra += 8
	}
	if typ&ewkbSRID != 0 {
		r.skip(4)
	}
	if !r.ok {
		return nil, wkbHeader{}
	}
	return r, h
}

// decodeWKBLineString reads a (possibly extended) WKB LineString from hex.
// Points with non-finite coordinates are dropped; a truncated buffer yields
// the points read before the end.
func decodeWKBLineString(hexStr string) []domain.GeoPoint {
	r, h := openWKB(hexStr)
	if r == nil || h.geomType != wkbLineString {
		return nil
	}
	count := int(r.uint32())
	if !r.ok {
		return nil
	}
	// The declared count is untrusted; size the slice from the bytes present.
	capacity := count
	if maxPts := r.remaining() / (16 + h.extra); maxPts < capacity {
		capacity = maxPts
	}
	points := make([]domain.GeoPoint, 0, capacity)
	for i := 0; i < count; i++ {
		lon := r.float64()
		lat := r.float64()
		r.skip(h.extra)
		if !r.ok {
			break
		}
		if finite(lat) && finite(lon) {
			points = append(points, domain.GeoPoint{Lat: lat, Lon: lon})
		}
	}
	return points
}

// decodeWKBPoint reads a (possibly extended) WKB Point from hex.
func decodeWKBPoint(hexStr string) (domain.GeoPoint, bool) {
	r, h := openWKB(hexStr)
	if r == nil || h.geomType != wkbPoint {
		return domain.GeoPoint{}, false
	}
	lon := r.float64()
	lat := r.float64()
	if !r.ok || !finite(lat) || !finite(lon) {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, true
}

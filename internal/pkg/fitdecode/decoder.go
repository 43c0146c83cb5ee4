package fitdecode

import (
	"github.com/samirrijal/trailwhisper/internal/core/domain"
)

// Decoder parses and normalizes workout files.
type Decoder struct {
	parser ContainerParser
}

// NewDecoder returns a Decoder using parser, or FITParser when nil.
func NewDecoder(parser ContainerParser) *Decoder {
	if parser == nil {
		parser = FITParser{}
	}
	return &Decoder{parser: parser}
}

// Decode turns the bytes of the file called name into an activity. Every
// failure is a *DecodeError naming the file.
func (d *Decoder) Decode(name string, data []byte) (domain.NormalizedActivity, error) {
	c, err := d.parser.Parse(data)
	if err != nil {
		return domain.NormalizedActivity{}, &DecodeError{File: name, Kind: KindMalformedContainer, Err: err}
	}
	return Normalize(name, c)
}

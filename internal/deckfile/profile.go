package deckfile

import (
	"io"
	"math"

	"github.com/mnarita/kioku/internal/srs"
)

var profileMagic = [4]byte{'K', 'P', 'R', 'F'}

// EncodeProfile writes the student profile counters.
func EncodeProfile(w io.Writer, p *srs.Profile) error {
	cw := &countingWriter{w: w}
	cw.write(profileMagic)
	cw.write(uint16(version))
	cw.write(uint32(p.CardCount))
	cw.write(math.Float64bits(p.MultiplierAverage))
	return cw.err
}

// DecodeProfile reads the student profile counters.
func DecodeProfile(r io.Reader) (*srs.Profile, error) {
	rd := &reader{r: r}
	var m [4]byte
	rd.read(&m)
	if rd.err != nil {
		return nil, rd.err
	}
	if m != profileMagic {
		return nil, ErrBadMagic
	}
	if v := rd.u16(); v != version && rd.err == nil {
		return nil, ErrBadVersion
	}
	count := rd.u32()
	avg := math.Float64frombits(rd.u64())
	if rd.err != nil {
		return nil, rd.err
	}
	return &srs.Profile{CardCount: int(count), MultiplierAverage: avg}, nil
}

// Package ring renders decoder state onto the 60+24 LED clock face.
//
// The outer ring has one LED per telegram second, colored by the field the
// second belongs to. The inner ring has 24 LEDs, two per hour, with the
// committed hour lit white. Colors are targets; any fading is up to the driver.
package ring

import (
	"fmt"

	"github.com/sweeney/dcf77-clock/internal/dcf77"
)

// LED layout.
const (
	SecondLEDs = dcf77.Seconds
	HourLEDs   = 24
	HourOffset = SecondLEDs // first inner-ring LED on a single strip
	TotalLEDs  = SecondLEDs + HourLEDs
)

// Hues on the 0-255 wheel.
const (
	HueGroup1 = 145
	HueGroup2 = 50
	hueGood   = 96
	hueBad    = 0
)

// Brightness levels.
const (
	valZero        = 50
	valOne         = 150
	valCurrentZero = 15
	valCurrentOne  = 250
	valWhite       = 200
	valMarker      = 50
)

// HSV is a color on the 0-255 hue wheel.
type HSV struct {
	H, S, V uint8
}

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

var (
	white  = HSV{H: 0, S: 0, V: valWhite}
	marker = HSV{H: HueGroup1, S: 255, V: valMarker}
)

// Ring is the full set of LED colors for one frame.
type Ring struct {
	Seconds [SecondLEDs]HSV
	Hours   [HourLEDs]HSV
	HourLED int // lit inner LED, -1 if the hour is unknown
}

// Render computes LED colors for a decoder frame.
func Render(f dcf77.Frame) Ring {
	var r Ring
	for pos := 0; pos < SecondLEDs; pos++ {
		r.Seconds[pos] = Second(f, pos)
	}

	led, lit := HourLED(f.RealHours, f.RealMinutes)
	r.HourLED = -1
	for i := 0; i < HourLEDs; i += 2 {
		r.Hours[i] = marker
	}
	if lit {
		r.HourLED = led
		r.Hours[led] = white
	}
	return r
}

// hue returns the field hue for a telegram second.
func hue(b dcf77.Buffer, pos int) uint8 {
	match := func(ok bool) uint8 {
		if ok {
			return hueGood
		}
		return hueBad
	}
	switch {
	case pos <= dcf77.BitStartOfTime:
		return HueGroup1
	case pos < dcf77.BitMinuteTens:
		return HueGroup2
	case pos < dcf77.BitMinuteParity:
		return HueGroup1
	case pos == dcf77.BitMinuteParity:
		return match(b.MinuteParityOK())
	case pos < dcf77.BitHourTens:
		return HueGroup2
	case pos < dcf77.BitHourParity:
		return HueGroup1
	case pos == dcf77.BitHourParity:
		return match(b.HourParityOK())
	case pos < dcf77.BitDayTens:
		return HueGroup2
	case pos < dcf77.BitWeekday:
		return HueGroup1
	case pos < dcf77.BitMonthOnes:
		return HueGroup2
	case pos < dcf77.BitMonthTens:
		return HueGroup1
	case pos < dcf77.BitYearOnes:
		return HueGroup2
	case pos < dcf77.BitYearTens:
		return HueGroup1
	case pos < dcf77.BitDateParity:
		return HueGroup2
	case pos == dcf77.BitDateParity:
		return match(b.DateParityOK())
	}
	return 0
}

// Second returns the color of the outer LED at pos.
func Second(f dcf77.Frame, pos int) HSV {
	if minute, ok := f.RealMinutes.Get(); ok && minute == pos {
		return white
	}

	bit := f.Bits.Bit(pos)
	c := HSV{H: hue(f.Bits, pos), S: 255, V: valZero}
	if bit == 1 {
		c.V = valOne
	}
	if pos == dcf77.BitLeapSecond {
		c.V = 0
	}

	if pos == f.Position {
		c.V = valCurrentZero
		if bit == 1 {
			c.V = valCurrentOne
		}
	}
	return c
}

// HourLED returns the inner-ring LED for a time. Each hour has two LEDs; the
// in-between LED lights after minute 20 and the next hour's LED after minute 40.
func HourLED(hours, minutes dcf77.Field) (int, bool) {
	h, ok := hours.Get()
	if !ok {
		return 0, false
	}
	led := (h * 2) % HourLEDs
	if m, ok := minutes.Get(); ok {
		if m > 20 {
			led++
		}
		if m > 40 {
			led++
		}
	}
	return led % HourLEDs, true
}

// Strip flattens the ring into single-strip order: seconds first, then hours.
func (r Ring) Strip() [TotalLEDs]HSV {
	var s [TotalLEDs]HSV
	copy(s[:], r.Seconds[:])
	copy(s[HourOffset:], r.Hours[:])
	return s
}

// RGB converts with the spectrum mapping: hue 0..255 covers 0..360 degrees.
func (c HSV) RGB() RGB {
	if c.S == 0 {
		return RGB{c.V, c.V, c.V}
	}

	h := int(c.H) * 6 // sector in the high byte, offset in the low byte
	sector := h >> 8
	frac := h & 0xff
	v, s := int(c.V), int(c.S)

	p := v * (255 - s) / 255
	q := v * (255 - s*frac/255) / 255
	t := v * (255 - s*(255-frac)/255) / 255

	switch sector {
	case 0:
		return RGB{uint8(v), uint8(t), uint8(p)}
	case 1:
		return RGB{uint8(q), uint8(v), uint8(p)}
	case 2:
		return RGB{uint8(p), uint8(v), uint8(t)}
	case 3:
		return RGB{uint8(p), uint8(q), uint8(v)}
	case 4:
		return RGB{uint8(t), uint8(p), uint8(v)}
	default:
		return RGB{uint8(v), uint8(p), uint8(q)}
	}
}

// CSS returns the color as #rrggbb.
func (c RGB) CSS() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// IsOff reports whether the LED is dark.
func (c HSV) IsOff() bool {
	return c.V == 0
}

package dcf77

// Nominal pulse lengths used when generating a telegram.
const (
	nominalZeroMs = 100
	nominalOneMs  = 200
	secondMs      = 1000
)

// Time holds the civil time fields carried by one telegram.
type Time struct {
	Hours   int
	Minutes int
	Day     int
	Weekday int // 1 = Monday .. 7 = Sunday
	Month   int
	Year    int // two digits
}

func (b *Buffer) putUint(from, width, v int) {
	for i := 0; i < width; i++ {
		b.Set(from+i, v&(1<<i) != 0)
	}
}

func (b *Buffer) putBCD(ones, onesWidth, tens, tensWidth, v int) {
	b.putUint(ones, onesWidth, v%10)
	b.putUint(tens, tensWidth, v/10)
}

// Encode builds a well-formed telegram for t with the start marker and all parity bits set.
func Encode(t Time) Buffer {
	var b Buffer
	b.Set(BitStartOfTime, true)

	b.putBCD(BitMinuteOnes, 4, BitMinuteTens, 3, t.Minutes)
	b.Set(BitMinuteParity, b.Parity(minuteFirst, minuteLast) == 1)

	b.putBCD(BitHourOnes, 4, BitHourTens, 2, t.Hours)
	b.Set(BitHourParity, b.Parity(hourFirst, hourLast) == 1)

	b.putBCD(BitDayOnes, 4, BitDayTens, 2, t.Day)
	b.putUint(BitWeekday, 3, t.Weekday)
	b.putBCD(BitMonthOnes, 4, BitMonthTens, 1, t.Month)
	b.putBCD(BitYearOnes, 4, BitYearTens, 4, t.Year)
	b.Set(BitDateParity, b.Parity(dateFirst, dateLast) == 1)

	return b
}

// Transmit returns the pulses for bits 0-58 of b as a transmitter sends them.
// Second 59 carries no pulse, so the last pause spans two seconds and marks the boundary.
func Transmit(b Buffer) []Pulse {
	out := make([]Pulse, 0, Seconds-1)
	for i := 0; i < Seconds-1; i++ {
		ms := nominalZeroMs
		if b.Bit(i) == 1 {
			ms = nominalOneMs
		}
		p := Pulse{PulseMs: ms, PauseMs: secondMs - ms}
		if i == Seconds-2 {
			p.PauseMs += secondMs
		}
		out = append(out, p)
	}
	return out
}

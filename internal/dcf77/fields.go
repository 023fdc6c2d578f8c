package dcf77

// Telegram layout (bit indexes within an aligned minute).
const (
	BitStartOfTime = 20

	BitMinuteOnes   = 21 // 4 bits
	BitMinuteTens   = 25 // 3 bits
	BitMinuteParity = 28

	BitHourOnes   = 29 // 4 bits
	BitHourTens   = 33 // 2 bits
	BitHourParity = 35

	BitDayOnes    = 36 // 4 bits
	BitDayTens    = 40 // 2 bits
	BitWeekday    = 42 // 3 bits
	BitMonthOnes  = 45 // 4 bits
	BitMonthTens  = 49 // 1 bit
	BitYearOnes   = 50 // 4 bits
	BitYearTens   = 54 // 4 bits
	BitDateParity = 58
	BitLeapSecond = 59
)

// Inclusive ranges covered by each parity bit.
const (
	minuteFirst = BitMinuteOnes
	minuteLast  = BitMinuteParity - 1
	hourFirst   = BitHourOnes
	hourLast    = BitHourParity - 1
	dateFirst   = BitDayOnes
	dateLast    = BitDateParity - 1
)

func (b *Buffer) bcd(ones, onesWidth, tens, tensWidth int) int {
	return 10*b.Uint(tens, tensWidth) + b.Uint(ones, onesWidth)
}

// Minutes decodes the BCD minute field without validation.
func (b *Buffer) Minutes() int {
	return b.bcd(BitMinuteOnes, 4, BitMinuteTens, 3)
}

// Hours decodes the BCD hour field without validation.
func (b *Buffer) Hours() int {
	return b.bcd(BitHourOnes, 4, BitHourTens, 2)
}

// Day decodes the BCD day-of-month field without validation.
func (b *Buffer) Day() int {
	return b.bcd(BitDayOnes, 4, BitDayTens, 2)
}

// Weekday decodes the weekday field (1 = Monday .. 7 = Sunday) without validation.
func (b *Buffer) Weekday() int {
	return b.Uint(BitWeekday, 3)
}

// Month decodes the BCD month field without validation.
func (b *Buffer) Month() int {
	return b.bcd(BitMonthOnes, 4, BitMonthTens, 1)
}

// Year decodes the two-digit BCD year field without validation.
func (b *Buffer) Year() int {
	return b.bcd(BitYearOnes, 4, BitYearTens, 4)
}

// MinuteParityOK reports whether bit 28 matches the parity of bits 21-27.
func (b *Buffer) MinuteParityOK() bool {
	return b.Bit(BitMinuteParity) == b.Parity(minuteFirst, minuteLast)
}

// HourParityOK reports whether bit 35 matches the parity of bits 29-34.
func (b *Buffer) HourParityOK() bool {
	return b.Bit(BitHourParity) == b.Parity(hourFirst, hourLast)
}

// DateParityOK reports whether bit 58 matches the parity of bits 36-57.
func (b *Buffer) DateParityOK() bool {
	return b.Bit(BitDateParity) == b.Parity(dateFirst, dateLast)
}

package format

import (
	"time"

	"github.com/rezonia/finvoice-processor/internal/model"
)

// DateFormatCode is the only Format attribute value Finvoice dates use
const DateFormatCode = "CCYYMMDD"

const dateLayout = "20060102"

// ParseDate parses an unhyphenated CCYYMMDD date. Any other format code
// fails; there is no guessing between date layouts.
func ParseDate(s, formatCode string) (time.Time, error) {
	if formatCode != DateFormatCode {
		return time.Time{}, model.NewUnsupportedDateFormatError(formatCode)
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, model.NewParseError("date", "invalid CCYYMMDD date", err)
	}
	return t, nil
}

// FormatDate returns the unhyphenated ISO-8601 form, 2020-01-02 becomes 20200102
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

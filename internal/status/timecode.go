package status

import "fmt"

const (
	centisecondsPerSecond = 100
	secondsPerMinute      = 60
	secondsPerHour        = 3600
	minutesPerHour        = 60
)

// Duration is the decomposed form of a centisecond encoded race score.
type Duration struct {
	Hours        int
	Minutes      int
	Seconds      int
	Centiseconds int
}

// SplitScore decomposes a race score. The two least significant decimal
// digits are centiseconds, the leading digits are whole seconds.
func SplitScore(score int) (Duration, error) {
	if score < 0 {
		return Duration{}, newError(ErrInvalidScore, -1, "negative race score %d", score)
	}

	total := score / centisecondsPerSecond
	hours := total / secondsPerHour

	return Duration{
		Hours:        hours,
		Minutes:      total/secondsPerMinute - minutesPerHour*hours,
		Seconds:      total % secondsPerMinute,
		Centiseconds: score % centisecondsPerSecond,
	}, nil
}

// String renders H:MM:SS.CC when hours are present, M:SS.CC otherwise.
func (d Duration) String() string {
	if d.Hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%02d", d.Hours, d.Minutes, d.Seconds, d.Centiseconds)
	}

	return fmt.Sprintf("%d:%02d.%02d", d.Minutes, d.Seconds, d.Centiseconds)
}

// FormatTime converts a race score into its display duration.
// Callers handle the spectator sentinel and zero score themselves.
func FormatTime(score int) (string, error) {
	d, err := SplitScore(score)
	if err != nil {
		return "", err
	}

	return d.String(), nil
}

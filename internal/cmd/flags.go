package cmd

import (
	"strings"
	"time"

	"github.com/caarlos0/duration"
)

// durationFlag is a pflag.Value that accepts extended duration units like
// "7d" in addition to the standard time.ParseDuration syntax.
type durationFlag time.Duration

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	*d = durationFlag(v)
	return err //nolint:wrapcheck
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}

type flagParseError struct {
	err       error
	flag      string
	reasonFmt string
}

func newFlagParseError(err error) flagParseError {
	var flag string
	var reason string
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "unknown flag: "):
		flag = strings.TrimPrefix(msg, "unknown flag: ")
		reason = "Flag %s is missing."
	case strings.HasPrefix(msg, "flag needs an argument: "):
		flag = strings.TrimPrefix(msg, "flag needs an argument: ")
		// "flag needs an argument: 'd' in -d"
		if i := strings.LastIndex(flag, " "); i >= 0 {
			flag = flag[i+1:]
		}
		reason = "Flag %s needs an argument."
	case strings.HasPrefix(msg, "invalid argument "):
		// `invalid argument "20dd" for "--tool-timeout" flag: ...`
		parts := strings.SplitN(msg, `"`, 5) //nolint:mnd
		if len(parts) >= 4 {                 //nolint:mnd
			flag = parts[3]
		}
		reason = "Flag %s has an invalid argument."
	default:
		reason = "Flag %s is invalid."
	}
	return flagParseError{err: err, flag: flag, reasonFmt: reason}
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) Flag() string {
	return f.flag
}

func (f flagParseError) ReasonFormat() string {
	return f.reasonFmt
}

package templates

import (
	"fmt"
	"time"
)

// Option pattern
type Option func(*EmailData)

func WithActionURL(url string) Option { return func(d *EmailData) { d.ActionURL = url } }

func WithTest(isTest bool) Option { return func(d *EmailData) { d.IsTest = isTest } }

// WithExpiresIn renders dur as "30 minutes" or "1 hour".
func WithExpiresIn(dur time.Duration) Option {
	return func(d *EmailData) { d.ExpiresIn = HumanDuration(dur) }
}

func HumanDuration(dur time.Duration) string {
	switch {
	case dur <= 0:
		return ""
	case dur%time.Hour == 0:
		return plural(int(dur/time.Hour), "hour")
	case dur%time.Minute == 0:
		return plural(int(dur/time.Minute), "minute")
	default:
		return plural(int(dur/time.Second), "second")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func NewEmailData(appName, name, email string, opts ...Option) EmailData {
	d := EmailData{Name: name, Email: email, AppName: appName}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

var reHHMM = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

// cronParser accepts the standard descriptors; only "@every" yields a fixed
// interval, everything else is rejected by ParseInterval.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseInterval parses a loop interval.
//
// Supported forms:
//   - Go duration: "55m", "2h30m", "500ms"
//   - HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
//   - Cron descriptor: "@every 55m"
//   - Prefixed: "interval:55m", "every:00:50"
//
// Cron expressions with calendar fields ("*/5 * * * *", "@hourly") are rejected:
// the loops sleep a fixed amount after every iteration.
func ParseInterval(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}

	low := strings.ToLower(s)
	for _, p := range []string{"interval:", "every:"} {
		if strings.HasPrefix(low, p) {
			s = strings.TrimSpace(s[len(p):])
			low = strings.ToLower(s)
			break
		}
	}

	if strings.HasPrefix(low, "@") {
		sched, err := cronParser.Parse(s)
		if err != nil {
			return 0, fmt.Errorf("%s: invalid schedule %q: %w", path, raw, err)
		}
		var delay time.Duration
		switch cs := sched.(type) {
		case cron.ConstantDelaySchedule:
			delay = cs.Delay
		case *cron.ConstantDelaySchedule:
			delay = cs.Delay
		default:
			return 0, fmt.Errorf("%s: %q is a calendar schedule; use a fixed interval like \"@every 5m\"", path, raw)
		}
		// cron rounds @every up to whole seconds
		if want, err := time.ParseDuration(strings.TrimSpace(s[len("@every"):])); err == nil && want != delay {
			return 0, fmt.Errorf("%s: %q is not a whole number of seconds; use a plain duration like %q", path, raw, want.String())
		}
		return delay, nil
	}

	if reHHMM.MatchString(s) {
		d, err := parseHHMMDuration(s)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", path, err)
		}
		return d, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid interval %q (use HH:MM, \"@every 5m\" or a Go duration like '55m')", path, raw)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: interval must be > 0", path)
	}
	return d, nil
}

func parseHHMMDuration(v string) (time.Duration, error) {
	m := reHHMM.FindStringSubmatch(v)
	if len(m) != 3 {
		return 0, fmt.Errorf("invalid HH:MM %q", v)
	}
	var hh int
	for i := 0; i < len(m[1]); i++ {
		hh = hh*10 + int(m[1][i]-'0')
	}
	mm := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	if mm > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", v)
	}
	d := time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

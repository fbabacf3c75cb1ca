package config

import (
	"errors"
	"fmt"
	"net"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"mycelium/pkg/logx"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report json paths ("seeding.content_dir") instead of Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate runs tag validation followed by the checks tags cannot express.
// Call ApplyDefaults first; Parse does that.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	_, err := ParseInterval("intervals.update_check", cfg.Intervals.UpdateCheck, 0)
	add(err)
	_, err = ParseInterval("intervals.heartbeat", cfg.Intervals.Heartbeat, 0)
	add(err)
	_, err = ParseInterval("intervals.seeding_status", cfg.Intervals.SeedingStatus, 0)
	add(err)

	if _, ok := logx.ParseLevel(cfg.Logging.Level); !ok {
		add(fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	if ml := strings.TrimSpace(cfg.Logging.Journal.MinLevel); ml != "" {
		if _, ok := logx.ParseLevel(ml); !ok {
			add(fmt.Errorf("logging.journal.min_level: unknown level %q", ml))
		}
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		add(errors.New("logging.file.path: required when logging.file.enabled"))
	}

	_, err = ParseDurationField("liveness.ping_timeout", cfg.Liveness.PingTimeout)
	add(err)

	if st := cfg.Storage; st != nil {
		d := strings.ToLower(strings.TrimSpace(st.Driver))
		if (d == "file" || d == "sqlite" || d == "sqlite3") && strings.TrimSpace(st.Path) == "" {
			add(fmt.Errorf("storage.path: required for driver %q", d))
		}
		_, err = ParseDurationField("storage.busy_timeout", st.BusyTimeout)
		add(err)
	}

	if cfg.Debug.Enabled {
		add(validateDebug(cfg.Debug))
	}

	return errors.Join(errs...)
}

func validateDebug(d DebugConfig) error {
	for path, raw := range map[string]string{
		"debug.read_timeout":  d.ReadTimeout,
		"debug.write_timeout": d.WriteTimeout,
		"debug.idle_timeout":  d.IdleTimeout,
	} {
		if _, err := ParseDurationField(path, raw); err != nil {
			return err
		}
	}
	addr := strings.TrimSpace(d.Addr)
	if addr == "" {
		return nil
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("debug.addr: %w", err)
	}
	if IsLoopbackHost(host) {
		return nil
	}
	if strings.TrimSpace(d.Token) == "" && !d.AllowInsecure {
		return fmt.Errorf("debug.addr: %q is not loopback; set debug.token or debug.allow_insecure", addr)
	}
	return nil
}

// IsLoopbackHost reports whether host only accepts local connections.
// An empty host binds every interface and is not loopback.
func IsLoopbackHost(host string) bool {
	h := strings.Trim(strings.TrimSpace(host), "[]")
	if h == "" {
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	return ip != nil && ip.IsLoopback()
}

func fieldMessage(fe validator.FieldError) string {
	// drop the root "Config." prefix
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return ns + ": required"
	case "url":
		return fmt.Sprintf("%s: %q is not a valid url", ns, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s: must be one of [%s]", ns, fe.Param())
	case "gtefield":
		return fmt.Sprintf("%s: must be >= %s", ns, strings.ToLower(fe.Param()))
	case "min":
		return fmt.Sprintf("%s: must be >= %s", ns, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be <= %s", ns, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", ns, fe.Tag())
	}
}

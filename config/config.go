// Package config loads gridcore tuning knobs from YAML, with defaults that
// match the components' built-in values.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chalkan3-sloth/gridcore/xerr"
)

// Worker tunes AsyncWorker supervision.
type Worker struct {
	Retries    int  `yaml:"retries"`
	DieOnError bool `yaml:"die_on_error"`
}

// Queue tunes ActiveQueue pools.
type Queue struct {
	Threads int `yaml:"threads"`
}

// Timer tunes the TimerService.
type Timer struct {
	WakeupFreqMS int `yaml:"wakeup_freq_ms"`
}

// Socket tunes the transport wrapper.
type Socket struct {
	SendRetries     int `yaml:"send_retries"`
	SendRetryMS     int `yaml:"send_retry_ms"`
	ValidWaitMS     int `yaml:"valid_wait_ms"`
	MaxSubscription int `yaml:"max_subscription"`
}

// Config is the full tuning document.
type Config struct {
	Worker Worker `yaml:"worker"`
	Queue  Queue  `yaml:"queue"`
	Timer  Timer  `yaml:"timer"`
	Socket Socket `yaml:"socket"`
}

// Default returns the built-in values.
func Default() Config {
	return Config{
		Worker: Worker{Retries: 10},
		Queue:  Queue{Threads: 4},
		Timer:  Timer{WakeupFreqMS: 30000},
		Socket: Socket{
			SendRetries:     10,
			SendRetryMS:     100,
			ValidWaitMS:     100,
			MaxSubscription: 1024,
		},
	}
}

// Load reads a YAML config file over the defaults; absent keys keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, xerr.Newf(xerr.CodeInvalidArgument, "cannot read config %q", path).WithCause(err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, xerr.Newf(xerr.CodeParseFailure, "cannot parse config %q", path).WithCause(err)
	}
	return cfg, nil
}

// TimerWakeupFreq converts the timer setting to a duration.
func (c Config) TimerWakeupFreq() time.Duration {
	return time.Duration(c.Timer.WakeupFreqMS) * time.Millisecond
}

// SendRetryStep converts the socket retry step to a duration.
func (c Config) SendRetryStep() time.Duration {
	return time.Duration(c.Socket.SendRetryMS) * time.Millisecond
}

// ValidWait converts the socket validity wait to a duration.
func (c Config) ValidWait() time.Duration {
	return time.Duration(c.Socket.ValidWaitMS) * time.Millisecond
}

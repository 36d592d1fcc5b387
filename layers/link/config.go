package link

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Discipline is the ARQ discipline run by a Sender/Receiver pair.
	Discipline int

	// Config contains the configs shared by a Sender and a Receiver.
	// Both ends of a link must agree on Discipline.
	Config struct {
		// Name identifies the link in logs and metrics.
		Name       string     `yaml:"name"`
		Discipline Discipline `yaml:"discipline"`
		WindowSize int        `yaml:"windowSize"`

		GBNTimeout           time.Duration `yaml:"gbnTimeout"`
		SRTimeout            time.Duration `yaml:"srTimeout"`
		ConnectRetryInterval time.Duration `yaml:"connectRetryInterval"`
		ConnectionTimeout    time.Duration `yaml:"connectionTimeout"`
		TransmissionTimeout  time.Duration `yaml:"transmissionTimeout"`
		ReceiverDrainTimeout time.Duration `yaml:"receiverDrainTimeout"`

		// MaxLastFrameResends bounds how many times a Go-Back-N sender
		// retransmits the tail frame alone before giving up.
		MaxLastFrameResends int `yaml:"maxLastFrameResends"`

		CorruptionProbability    float64 `yaml:"corruptionProbability"`
		AckCorruptionProbability float64 `yaml:"ackCorruptionProbability"`
		// Seed seeds the corruption model. Zero means seeded from the clock.
		Seed int64 `yaml:"seed"`

		// IdleBackoff is slept by the polling loops after an iteration
		// that made no progress.
		IdleBackoff time.Duration `yaml:"idleBackoff"`
	}
)

const (
	GoBackN Discipline = iota
	SelectiveRepeat
)

// DefaultConfig returns the configs used when nothing else is specified.
// YAML documents are decoded on top of it, so absent keys keep these values.
func DefaultConfig() Config {
	return Config{
		Discipline:           GoBackN,
		WindowSize:           3,
		GBNTimeout:           50 * time.Millisecond,
		SRTimeout:            50 * time.Millisecond,
		ConnectRetryInterval: 20 * time.Millisecond,
		ConnectionTimeout:    2 * time.Second,
		TransmissionTimeout:  10 * time.Second,
		ReceiverDrainTimeout: 300 * time.Millisecond,
		MaxLastFrameResends:  50,
		IdleBackoff:          100 * time.Microsecond,
	}
}

// Validate checks the ranges of all the configs.
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("window size must be at least 1, got %d", c.WindowSize)
	}
	if c.Discipline != GoBackN && c.Discipline != SelectiveRepeat {
		return fmt.Errorf("unknown discipline %d", int(c.Discipline))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"gbn timeout", c.GBNTimeout},
		{"sr timeout", c.SRTimeout},
		{"connect retry interval", c.ConnectRetryInterval},
		{"connection timeout", c.ConnectionTimeout},
		{"transmission timeout", c.TransmissionTimeout},
		{"receiver drain timeout", c.ReceiverDrainTimeout},
	} {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.MaxLastFrameResends < 1 {
		return fmt.Errorf("max last frame resends must be at least 1, got %d", c.MaxLastFrameResends)
	}
	if c.CorruptionProbability < 0 || 1 < c.CorruptionProbability {
		return fmt.Errorf("corruption probability must be in [0, 1], got %v", c.CorruptionProbability)
	}
	if c.AckCorruptionProbability < 0 || 1 < c.AckCorruptionProbability {
		return fmt.Errorf("ack corruption probability must be in [0, 1], got %v", c.AckCorruptionProbability)
	}
	if c.Discipline == SelectiveRepeat && c.AckCorruptionProbability > 0 {
		// a lost ack for frame k is never repeated: the receiver answers a
		// retransmitted k with the ack of expected, so k stays unacked
		return errors.New("ack corruption is not supported with selective repeat")
	}
	if c.IdleBackoff < 0 {
		return errors.New("idle backoff must not be negative")
	}
	return nil
}

// ParseDiscipline parses the names accepted in configs and flags.
func ParseDiscipline(s string) (Discipline, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gbn", "go-back-n", "gobackn":
		return GoBackN, nil
	case "sr", "selective-repeat", "selectiverepeat":
		return SelectiveRepeat, nil
	}
	return 0, fmt.Errorf("unknown discipline '%s'", s)
}

func (d Discipline) String() string {
	switch d {
	case GoBackN:
		return "gbn"
	case SelectiveRepeat:
		return "sr"
	}
	return fmt.Sprintf("Discipline(%d)", int(d))
}

func (d Discipline) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Discipline) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("error decoding discipline: %w", err)
	}
	parsed, err := ParseDiscipline(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SplitRecords splits data into count records of equal length. When the
// length of data is not a multiple of count the remainder goes to extra
// trailing records, so more than count records may be returned.
func SplitRecords(data []byte, count int) [][]byte {
	if len(data) == 0 {
		return nil
	}
	if count < 1 {
		count = 1
	}
	size := len(data) / count
	if size == 0 {
		size = 1
	}
	records := make([][]byte, 0, count+1)
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		records = append(records, data[i:end])
	}
	return records
}

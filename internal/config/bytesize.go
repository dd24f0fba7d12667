package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// ByteSize is a byte count that reads and prints in human form ("300 MiB").
// It satisfies encoding.TextUnmarshaler for YAML and pflag.Value for flags.
type ByteSize uint64

// String implements fmt.Stringer and pflag.Value.
func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

// Set implements pflag.Value.
func (b *ByteSize) Set(s string) error {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return fmt.Errorf("parse byte size %q: %w", s, err)
	}
	*b = ByteSize(n)
	return nil
}

// Type implements pflag.Value.
func (b *ByteSize) Type() string { return "bytes" }

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *ByteSize) UnmarshalText(text []byte) error {
	return b.Set(string(text))
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

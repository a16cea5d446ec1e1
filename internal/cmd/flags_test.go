package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hsolanki/seochat/internal/config"
)

var flagParseErrorTests = []struct {
	in     string
	flag   string
	reason string
}{
	{
		"unknown flag: --nope",
		"--nope",
		"Flag %s is missing.",
	},
	{
		"flag needs an argument: --stop",
		"--stop",
		"Flag %s needs an argument.",
	},
	{
		"flag needs an argument: 'm' in -m",
		"-m",
		"Flag %s needs an argument.",
	},
	{
		`invalid argument "20dd" for "--tool-timeout" flag: time: unknown unit "dd" in duration "20dd"`,
		"--tool-timeout",
		"Flag %s has an invalid argument.",
	},
	{
		`invalid argument "sdfjasdl" for "--max-tokens" flag: strconv.ParseInt: parsing "sdfjasdl": invalid syntax`,
		"--max-tokens",
		"Flag %s has an invalid argument.",
	},
	{
		`invalid argument "nope" for "-r, --raw" flag: strconv.ParseBool: parsing "nope": invalid syntax`,
		"-r, --raw",
		"Flag %s has an invalid argument.",
	},
}

func TestFlagParseError(t *testing.T) {
	for _, tf := range flagParseErrorTests {
		t.Run(tf.in, func(t *testing.T) {
			err := newFlagParseError(errors.New(tf.in))
			require.Equal(t, tf.flag, err.Flag())
			require.Equal(t, tf.reason, err.ReasonFormat())
			require.Equal(t, tf.in, err.Error())
		})
	}
}

func TestDurationFlag(t *testing.T) {
	t.Run("standard units", func(t *testing.T) {
		var d time.Duration
		f := newDurationFlag(0, &d)
		require.NoError(t, f.Set("90s"))
		require.Equal(t, 90*time.Second, d)
	})

	t.Run("extended units", func(t *testing.T) {
		var d time.Duration
		f := newDurationFlag(0, &d)
		require.NoError(t, f.Set("7d"))
		require.Equal(t, 7*24*time.Hour, d)
	})

	t.Run("invalid unit", func(t *testing.T) {
		var d time.Duration
		f := newDurationFlag(0, &d)
		require.ErrorContains(t, f.Set("20dd"), `unknown unit`)
	})

	t.Run("default value", func(t *testing.T) {
		var d time.Duration
		f := newDurationFlag(2*time.Minute, &d)
		require.Equal(t, 2*time.Minute, d)
		require.Equal(t, "2m0s", f.String())
	})
}

func TestRootFlags(t *testing.T) {
	t.Run("tool-timeout parses extended durations", func(t *testing.T) {
		cfg := config.Config{}
		cmd := NewRootCmd(BuildInfo{}, cfg, nil)

		err := cmd.ParseFlags([]string{"--tool-timeout", "30s", "--max-tool-calls", "10"})
		require.NoError(t, err)
		require.Equal(t, "30s", cmd.Flag("tool-timeout").Value.String())
		require.Equal(t, "10", cmd.Flag("max-tool-calls").Value.String())
	})

	t.Run("max-completion-tokens is registered", func(t *testing.T) {
		cfg := config.Config{}
		cmd := NewRootCmd(BuildInfo{}, cfg, nil)

		err := cmd.ParseFlags([]string{"--max-completion-tokens", "4096"})
		require.NoError(t, err)

		flag := cmd.Flag("max-completion-tokens")
		require.NotNil(t, flag)
		require.Equal(t, "4096", flag.Value.String())
	})
}

func TestHumanBytes(t *testing.T) {
	require.Equal(t, "512B", humanBytes(512))
	require.Equal(t, "1.0KiB", humanBytes(1024))
	require.Equal(t, "1.5MiB", humanBytes(3*1024*1024/2))
}

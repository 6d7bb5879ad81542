package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/sarchlab/csim/cache"
)

// errMissingArgument is returned when s, E, b or t is given nowhere.
var errMissingArgument = errors.New("missing essential argument")

// Environment variables that provide defaults for the matching flags.
const (
	envSetBits   = "CSIM_S"
	envLines     = "CSIM_E"
	envBlockBits = "CSIM_B"
	envTrace     = "CSIM_TRACE"
)

// options holds everything the root command reads from its flags.
type options struct {
	setBits   uint
	lines     int
	blockBits uint
	tracePath string

	verbose     bool
	details     bool
	check       bool
	configPath  string
	envFile     string
	recordPath  string
	resultsPath string
	cpuProfile  string
	logLevel    string
}

// environment looks variables up in the process environment first and in
// the env file second.
type environment struct {
	file map[string]string
}

func loadEnvironment(path string) (environment, error) {
	env := environment{file: map[string]string{}}
	if path == "" {
		return env, nil
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return env, errors.Wrapf(err, "failed to read %s", path)
	}
	env.file = values

	return env, nil
}

func (e environment) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	v, ok := e.file[key]
	return v, ok
}

func (e environment) lookupInt(key string) (int, bool, error) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return 0, false, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, errors.Wrapf(cache.ErrInvalidGeometry, "%s=%q is not a number", key, v)
	}
	if n < 0 {
		return 0, false, errors.Wrapf(cache.ErrInvalidGeometry, "%s=%d must not be negative", key, n)
	}

	return n, true, nil
}

// resolve merges the geometry file, the environment and the flags, in
// increasing priority, into a geometry and a trace path.
func (o *options) resolve(cmd *cobra.Command) (cache.Geometry, string, error) {
	var (
		g         cache.Geometry
		tracePath string
		haveS     bool
		haveE     bool
		haveB     bool
	)

	if o.configPath != "" {
		loaded, err := cache.LoadGeometry(o.configPath)
		if err != nil {
			return g, "", err
		}
		g = loaded
		haveS, haveE, haveB = true, true, true
	}

	env, err := loadEnvironment(o.envFile)
	if err != nil {
		return g, "", err
	}

	if n, ok, err := env.lookupInt(envSetBits); err != nil {
		return g, "", err
	} else if ok {
		g.SetBits, haveS = uint(n), true
	}
	if n, ok, err := env.lookupInt(envLines); err != nil {
		return g, "", err
	} else if ok {
		g.Lines, haveE = n, true
	}
	if n, ok, err := env.lookupInt(envBlockBits); err != nil {
		return g, "", err
	} else if ok {
		g.BlockBits, haveB = uint(n), true
	}
	if v, ok := env.lookup(envTrace); ok {
		tracePath = v
	}

	flags := cmd.Flags()
	if flags.Changed("set-bits") {
		g.SetBits, haveS = o.setBits, true
	}
	if flags.Changed("lines") {
		g.Lines, haveE = o.lines, true
	}
	if flags.Changed("block-bits") {
		g.BlockBits, haveB = o.blockBits, true
	}
	if flags.Changed("trace") {
		tracePath = o.tracePath
	}

	if !haveS || !haveE || !haveB || tracePath == "" {
		return g, "", errors.Wrapf(errMissingArgument,
			"-s %s -E %s -b %s -t %q",
			given(haveS, g.SetBits), given(haveE, g.Lines), given(haveB, g.BlockBits), tracePath)
	}

	if err := g.Validate(); err != nil {
		return g, "", err
	}

	return g, tracePath, nil
}

func given[T uint | int](ok bool, v T) string {
	if !ok {
		return "?"
	}
	return strconv.Itoa(int(v))
}

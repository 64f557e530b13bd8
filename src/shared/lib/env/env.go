package env

import (
	"github.com/cockroachdb/errors"
	"os"
)

const VarName = "ENVIRONMENT"

type Environment string

const (
	Production  Environment = "production"
	Development Environment = "development"
	Test        Environment = "test"
)

// Get panics when ENVIRONMENT is unset or unrecognized.
func Get() Environment {
	value, ok := os.LookupEnv(VarName)
	if value == "" || !ok {
		panic("No environment var is set")
	}

	environment, err := Parse(value)
	if err != nil {
		panic(err.Error())
	}

	return environment
}

func Parse(value string) (Environment, error) {
	switch Environment(value) {
	case Production, Development, Test:
		return Environment(value), nil
	default:
		return "", errors.Newf("invalid environment %q is set", value)
	}
}

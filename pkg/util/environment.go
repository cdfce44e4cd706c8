package util

import (
	"os"
	"strings"
)

// EnvironmentPrefix is shared by every variable the binaries read
const EnvironmentPrefix = "CELLROUTES_"

func GetEnvironmentVariables() map[string]string {
	environmentVariables := map[string]string{}

	for _, variable := range os.Environ() {
		name, value, found := strings.Cut(variable, "=")
		if !found || !strings.HasPrefix(name, EnvironmentPrefix) {
			continue
		}

		environmentVariables[name] = value
	}

	return environmentVariables
}

// EnvironmentFlag reports whether a variable is set to YES
func EnvironmentFlag(name string) bool {
	return strings.EqualFold(os.Getenv(name), "YES")
}

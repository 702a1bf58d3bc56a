package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Template variable names, which double as the environment variable names.
const (
	KeyTenant      = "SERVICE_TENANT"
	KeyEnvironment = "SERVICE_ENVIRONMENT"
	KeyName        = "SERVICE_NAME"
	KeyVersion     = "SERVICE_VERSION"
	KeyURL         = "SERVICE_URL"
)

// DefaultEnvFile is the dotenv file read from the working directory when no
// other path is given.
const DefaultEnvFile = ".env"

// Setting pairs an environment key with the value used when it is absent.
type Setting struct {
	Key     string
	Default string
}

// ServiceSettings lists the deployment identity settings in display order.
var ServiceSettings = []Setting{
	{Key: KeyTenant, Default: "aws"},
	{Key: KeyEnvironment, Default: "default"},
	{Key: KeyName, Default: "default"},
	{Key: KeyVersion, Default: "default"},
	{Key: KeyURL, Default: "default"},
}

// Lookup reports the value stored under key, if any. os.LookupEnv satisfies it.
type Lookup func(key string) (string, bool)

// MapLookup adapts a plain map to Lookup.
func MapLookup(values map[string]string) Lookup {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

// ServiceConfig identifies the running deployment. It is resolved once and
// never mutated.
type ServiceConfig struct {
	Tenant      string
	Environment string
	Name        string
	Version     string
	URL         string
}

// Resolve returns one value per setting: the looked-up value when present and
// non-empty, the setting default otherwise.
func Resolve(env Lookup, table []Setting) map[string]string {
	out := make(map[string]string, len(table))
	for _, s := range table {
		out[s.Key] = s.Default
		if env == nil {
			continue
		}
		if v, ok := env(s.Key); ok && v != "" {
			out[s.Key] = v
		}
	}
	return out
}

// ResolveService builds a ServiceConfig from env using ServiceSettings.
func ResolveService(env Lookup) ServiceConfig {
	values := Resolve(env, ServiceSettings)
	return ServiceConfig{
		Tenant:      values[KeyTenant],
		Environment: values[KeyEnvironment],
		Name:        values[KeyName],
		Version:     values[KeyVersion],
		URL:         values[KeyURL],
	}
}

// TemplateData exposes the fields under their template variable names.
func (s ServiceConfig) TemplateData() map[string]string {
	return map[string]string{
		KeyTenant:      s.Tenant,
		KeyEnvironment: s.Environment,
		KeyName:        s.Name,
		KeyVersion:     s.Version,
		KeyURL:         s.URL,
	}
}

// LoadEnvFile copies the variables defined in a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error; the boolean reports whether a file was read.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load env file %s: %w", path, err)
	}
	return true, nil
}

// ServiceFromEnv resolves the service identity from the process environment.
func ServiceFromEnv() ServiceConfig {
	return ResolveService(os.LookupEnv)
}

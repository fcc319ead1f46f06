package config

import "strings"

type EnvVars struct {
	Port           string `env:"PORT" envDefault:"3001"`
	AppName        string `env:"APP_NAME" envDefault:"Credential Service"`
	Env            string `env:"ENV" envDefault:"DEV"`
	ServiceAddress string `env:"SERVICE_ADDRESS" envDefault:"127.0.0.1:3001"`
}

var _ EnvConfig = EnvVars{}

// GetPort returns the listen address, e.g. ":3001".
func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return ":" + e.Port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}

// GetServiceAddress is used as both issuer and audience of access tokens.
func (e EnvVars) GetServiceAddress() string {
	return e.ServiceAddress
}

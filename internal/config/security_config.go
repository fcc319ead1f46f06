package config

import "time"

type Security struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTAlgorithm      string        `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTKeyID          string        `env:"JWT_KEY_ID" envDefault:"default"`
	JWTPrivateKeyFile string        `env:"JWT_PRIVATE_KEY_FILE"`
	JWTPublicKeyFile  string        `env:"JWT_PUBLIC_KEY_FILE"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" envDefault:"1h"`
	ConfirmationTTL   time.Duration `env:"CONFIRMATION_TTL" envDefault:"1h"`
	ConfirmURL        string        `env:"CONFIRM_URL" envDefault:"http://127.0.0.1:3001/api/auth/change-password/confirm"`
	PasswordHasher    string        `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
}

var _ SecurityConfig = Security{}

func (s Security) GetJWTSecret() string {
	return s.JWTSecret
}

func (s Security) GetJWTAlgorithm() string {
	return s.JWTAlgorithm
}

func (s Security) GetJWTKeyID() string {
	return s.JWTKeyID
}

func (s Security) GetJWTPrivateKeyFile() string {
	return s.JWTPrivateKeyFile
}

func (s Security) GetJWTPublicKeyFile() string {
	return s.JWTPublicKeyFile
}

func (s Security) GetTokenTTL() time.Duration {
	return s.TokenTTL
}

// GetConfirmationTTL is how long a password change confirmation token stays valid.
func (s Security) GetConfirmationTTL() time.Duration {
	return s.ConfirmationTTL
}

func (s Security) GetConfirmURL() string {
	return s.ConfirmURL
}

func (s Security) GetPasswordHasher() string {
	return s.PasswordHasher
}

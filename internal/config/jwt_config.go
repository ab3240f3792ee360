package config

import "os"

// JwtConfig holds the HMAC secret guarding the scheduler control endpoints.
type JwtConfig struct {
	Secret string
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret: os.Getenv("JWT_SECRET"),
	}
}

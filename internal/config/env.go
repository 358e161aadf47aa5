package config

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Existing environment variables win; a missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		val = strings.Trim(val, `"'`)
		if key == "" || os.Getenv(key) != "" {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return scanner.Err()
}

// mergeSecrets pulls the sensitive values out of the environment. Admin
// credentials and the JWT secret are generated per-process when absent so
// the admin surface always works; generated values are logged once.
func (c *Config) mergeSecrets() {
	c.Secrets.APIKey = os.Getenv("API_KEY")
	c.Secrets.AdminUsername = os.Getenv("ADMIN_USERNAME")
	c.Secrets.AdminPassword = os.Getenv("ADMIN_PASSWORD")
	c.Secrets.JWTSecret = os.Getenv("JWT_SECRET")
	c.Secrets.Proxy = firstNonEmpty(os.Getenv("PROXY"), os.Getenv("PROXY_URL"))
	c.Secrets.SystemInstruction = os.Getenv("SYSTEM_INSTRUCTION")
	c.Secrets.ImageBaseURL = os.Getenv("IMAGE_BASE_URL")

	if c.Secrets.AdminUsername == "" {
		c.Secrets.AdminUsername = "admin"
	}
	if c.Secrets.AdminPassword == "" {
		c.Secrets.AdminPassword = randomToken(8)
		log.WithFields(log.Fields{
			"username": c.Secrets.AdminUsername,
			"password": c.Secrets.AdminPassword,
		}).Warn("ADMIN_PASSWORD not set, generated credentials for this process")
	}
	if c.Secrets.JWTSecret == "" {
		c.Secrets.JWTSecret = randomToken(32)
		log.Warn("JWT_SECRET not set, admin sessions will not survive a restart")
	}
}

func randomToken(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return "fallback-secret"
	}
	return hex.EncodeToString(buf)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

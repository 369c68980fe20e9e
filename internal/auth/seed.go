package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for a generated seed password.
const seedPasswordBytes = 16

// SeedStaff creates the initial staff account on first boot if no users
// exist. When no password is configured, a random one is generated and
// logged; it must be changed immediately. Returns the password used
// (empty string if seeding was skipped).
func SeedStaff(ctx context.Context, repo UserRepository, username, password string, logger *slog.Logger) (string, error) {
	count, err := repo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Info("users exist, skipping staff seed")
		return "", nil
	}

	if username == "" {
		username = "admin"
	}

	generated := false
	if password == "" {
		raw := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		password = hex.EncodeToString(raw)
		generated = true
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	staff := &User{
		Username:     username,
		DisplayName:  "ThermoCloud Staff",
		PasswordHash: hash,
		Staff:        true,
		IsActive:     true,
	}
	if err := repo.Create(ctx, staff); err != nil {
		return "", fmt.Errorf("creating seed staff user: %w", err)
	}

	if generated {
		logger.Warn("seed staff account created",
			"username", username,
			"password", password,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("seed staff account created", "username", username)
	}

	return password, nil
}

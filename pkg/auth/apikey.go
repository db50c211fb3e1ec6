package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexedwards/argon2id"
)

// API keys are issued as "<tenant_id>.<secret>" so the tenant row can be
// looked up before the argon2id comparison; only the hash is stored.

func NewAPIKey(tenantID int64) (key, hash string, err error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	key = fmt.Sprintf("%d.%s", tenantID, hex.EncodeToString(b))

	hash, err = argon2id.CreateHash(key, argon2id.DefaultParams)
	if err != nil {
		return "", "", err
	}
	return key, hash, nil
}

// SplitAPIKey extracts the tenant id from a presented key.
func SplitAPIKey(key string) (int64, error) {
	id, _, found := strings.Cut(key, ".")
	if !found {
		return 0, errors.New("malformed api key")
	}
	tenantID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || tenantID <= 0 {
		return 0, errors.New("malformed api key")
	}
	return tenantID, nil
}

func VerifyAPIKey(key, hash string) bool {
	ok, err := argon2id.ComparePasswordAndHash(key, hash)
	return err == nil && ok
}
